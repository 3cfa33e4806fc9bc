package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"

	"vpr/internal"
)

type Config struct {
	OutputDir string
	MailDir   string
	LogLevel  string

	DecimalSeparator internal.DecimalSeparator
	Order            internal.OrderMode
	TopN             int
	PDFTables        bool
	OriginalMarkers  []string
	SheetName        string
	ExportCacheSize  int

	HTTPAddr         string
	AuthorizedEmails []string
	MaxUploadMB      int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailProvider string
	MailLabel    string
	MailFetchMax int

	MailIntervalSec int
	WatchBasePath   string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, eris.Wrap(err, "getwd")
	}

	sep, err := internal.ParseDecimalSeparator(getEnv("VPR_DECIMAL_SEPARATOR", ","))
	if err != nil {
		return Config{}, eris.Wrap(err, "VPR_DECIMAL_SEPARATOR")
	}
	order, err := internal.ParseOrderMode(getEnv("VPR_ORDER", string(internal.OrderByPrice)))
	if err != nil {
		return Config{}, eris.Wrap(err, "VPR_ORDER")
	}

	cfg := Config{
		OutputDir: getEnv("VPR_OUTPUT_DIR", filepath.Join(cwd, "out")),
		MailDir:   getEnv("MAIL_DROP_DIR", filepath.Join(cwd, "data", "inbox")),
		LogLevel:  getEnv("VPR_LOG_LEVEL", "info"),

		DecimalSeparator: sep,
		Order:            order,
		TopN:             getEnvInt("VPR_TOP_N", 0),
		PDFTables:        getEnvBool("VPR_PDF_TABLES", true),
		OriginalMarkers:  getEnvList("VPR_ORIGINAL_MARKERS", []string{"оригинал", "original"}),
		SheetName:        getEnv("VPR_SHEET_NAME", "VPR"),
		ExportCacheSize:  getEnvInt("VPR_EXPORT_CACHE_SIZE", 32),

		HTTPAddr:         getEnv("VPR_HTTP_ADDR", ":8080"),
		AuthorizedEmails: getEnvList("VPR_AUTHORIZED_EMAILS", nil),
		MaxUploadMB:      getEnvInt("VPR_MAX_UPLOAD_MB", 64),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailProvider: getEnv("MAIL_PROVIDER", "imap"),
		MailLabel:    getEnv("MAIL_LABEL", "INBOX"),
		MailFetchMax: getEnvInt("MAIL_FETCH_MAX", 50),

		MailIntervalSec: getEnvInt("MAIL_INTERVAL_SEC", 60),
		WatchBasePath:   getEnv("VPR_WATCH_BASE", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return eris.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits a comma separated value; blank entries are dropped.
func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
