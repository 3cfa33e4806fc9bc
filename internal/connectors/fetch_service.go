package connectors

import (
	"bytes"
	"context"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vpr/internal/source"
)

type FetchService struct {
	connector MailConnector
	store     *DropStore
}

type FetchResult struct {
	Fetched  int
	Stored   int
	Skipped  int
	// Paths lists every stored price-list message; NewPaths only those
	// written during this call.
	Paths    []string
	NewPaths []string
}

func NewFetchService(dropDir string, connector MailConnector) *FetchService {
	return &FetchService{connector: connector, store: NewDropStore(dropDir)}
}

// FetchAndStore saves every fetched message that carries a price list, as an
// attachment or as an HTML table in the body. Other mail is counted as
// skipped.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, limit int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, limit)
	if err != nil {
		return FetchResult{}, eris.Wrap(err, "fetch inbox")
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		subject, ok := PriceListMessage(msg.Raw)
		if !ok {
			res.Skipped++
			zap.L().Debug("mail without price list", zap.String("id", msg.ID), zap.String("subject", subject))
			continue
		}
		path, created, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		if created {
			res.Stored++
			res.NewPaths = append(res.NewPaths, path)
		}
		res.Paths = append(res.Paths, path)
		zap.L().Info("mail stored", zap.String("id", msg.ID), zap.String("subject", subject), zap.String("path", path), zap.Bool("new", created))
	}
	return res, nil
}

// PriceListMessage reports whether raw holds something the importer can read
// and returns the subject for logging.
func PriceListMessage(raw []byte) (string, bool) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	subject := env.GetHeader("Subject")
	for _, a := range env.Attachments {
		switch source.KindOf(a.FileName) {
		case source.KindXLSX, source.KindCSV, source.KindPDF, source.KindHTML:
			return subject, true
		}
	}
	return subject, strings.Contains(strings.ToLower(env.HTML), "<table")
}
