package listener

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vpr/internal/config"
	"vpr/internal/connectors"
	"vpr/internal/pipeline"
)

// Service polls the mailbox on an interval. Each new price-list message is
// saved to the drop directory and, when a base list is configured, exported
// against it right away.
type Service struct {
	cfg      config.Config
	fetch    *connectors.FetchService
	pipeline *pipeline.Service
	basePath string
	provider string
}

func NewService(cfg config.Config, conn connectors.MailConnector, svc *pipeline.Service, basePath string) *Service {
	return &Service{
		cfg:      cfg,
		fetch:    connectors.NewFetchService(cfg.MailDir, conn),
		pipeline: svc,
		basePath: basePath,
		provider: cfg.MailProvider,
	}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			zap.L().Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	res, err := s.fetch.FetchAndStore(ctx, s.cfg.MailLabel, s.cfg.MailFetchMax)
	if err != nil {
		return err
	}

	exported := 0
	if s.basePath != "" {
		for _, path := range newPaths(res) {
			if err := s.export(ctx, path); err != nil {
				zap.L().Warn("listener export failed", zap.String("mail", path), zap.Error(err))
				continue
			}
			exported++
		}
	}

	zap.L().Info("listener cycle done",
		zap.String("provider", s.provider),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
		zap.Int("exported", exported),
	)
	return nil
}

func (s *Service) export(ctx context.Context, mailPath string) error {
	req, err := pipeline.BuildRequest(s.basePath, pipeline.ColumnOverrides{}, []string{mailPath}, nil, s.pipeline.DefaultOptions())
	if err != nil {
		return err
	}
	data, res, err := s.pipeline.Export(ctx, req)
	if err != nil {
		return err
	}
	for _, is := range res.Issues {
		zap.L().Info("listener issue", zap.String("mail", mailPath), zap.String("issue", is.String()))
	}

	name := strings.TrimSuffix(filepath.Base(mailPath), filepath.Ext(mailPath)) + ".xlsx"
	out := filepath.Join(s.cfg.OutputDir, "listener", name)
	if err := writeExport(out, data); err != nil {
		return eris.Wrapf(err, "write %s", out)
	}
	return nil
}

// newPaths returns the messages first written to the drop directory during
// this cycle. Mail already on disk was exported by an earlier cycle.
func newPaths(res connectors.FetchResult) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range res.NewPaths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
