package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"vpr/internal/config"
	"vpr/internal/logging"
	"vpr/internal/pipeline"
)

var (
	version = "dev"
	commit  = "none"
)

type env struct {
	cfg config.Config
	svc *pipeline.Service
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	e := &env{}
	return &cli.App{
		Name:    "vpr",
		Usage:   "Consolidate supplier price lists against a base part list",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); defaults to VPR_LOG_LEVEL",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			if _, err := logging.New(level); err != nil {
				return err
			}
			svc, err := pipeline.NewService(cfg)
			if err != nil {
				return err
			}
			e.cfg, e.svc = cfg, svc
			return nil
		},
		After: func(c *cli.Context) error {
			_ = zap.L().Sync()
			return nil
		},
		Commands: []*cli.Command{
			runCommand(e),
			inspectCommand(e),
			compareCommand(e),
			serveCommand(e),
			mailFetchCommand(e),
			mailWatchCommand(e),
		},
	}
}
