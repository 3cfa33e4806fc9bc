package gmail

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"vpr/internal/config"
	"vpr/internal/connectors"
)

// priceListQuery narrows the listing to mail with spreadsheet, CSV or PDF
// attachments.
const priceListQuery = "has:attachment (filename:xlsx OR filename:csv OR filename:pdf)"

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, eris.Wrap(err, "gmail service")
	}
	return &Connector{service: svc}, nil
}

func (c *Connector) FetchInbox(ctx context.Context, label string, limit int) ([]connectors.Message, error) {
	call := c.service.Users.Messages.List("me").LabelIds(label).Q(priceListQuery).Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}
	listResp, err := call.Do()
	if err != nil {
		return nil, eris.Wrap(err, "list messages")
	}

	out := make([]connectors.Message, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, eris.Wrapf(err, "get message %s", ref.Id)
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}

		var received time.Time
		if msg.InternalDate > 0 {
			received = time.UnixMilli(msg.InternalDate)
		}
		out = append(out, connectors.Message{
			Provider:   "gmail",
			ID:         ref.Id,
			ReceivedAt: received,
			Raw:        raw,
		})
	}
	return out, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, eris.Wrap(err, "decode gmail raw payload")
}
