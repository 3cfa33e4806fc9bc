package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vpr/internal/config"
	"vpr/internal/connectors"
	"vpr/internal/source"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dial %s", addr)
	}
	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, eris.Wrap(err, "imap login")
	}
	return client, nil
}

// FetchInbox downloads the newest unseen messages of label that carry at
// least one attachment the importer can read. The body structure is checked
// first so unrelated mail is never downloaded.
func (c *Connector) FetchInbox(ctx context.Context, label string, limit int) ([]connectors.Message, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if _, err := client.Select(label, false); err != nil {
		return nil, eris.Wrapf(err, "select %s", label)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, eris.Wrap(err, "search unseen")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	wanted, err := c.withPriceLists(client, ids)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("imap candidates", zap.Int("unseen", len(ids)), zap.Int("with_attachments", len(wanted)))
	if len(wanted) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(wanted...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(wanted))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]connectors.Message, 0, len(wanted))
	var seen []uint32
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, eris.Wrap(err, "read message body")
		}
		out = append(out, connectors.Message{
			Provider:   "imap",
			ID:         fmt.Sprintf("%d", msg.Uid),
			ReceivedAt: msg.InternalDate,
			Raw:        raw,
		})
		seen = append(seen, msg.SeqNum)
	}
	if err := <-fetchDone; err != nil {
		return nil, eris.Wrap(err, "fetch bodies")
	}

	if c.markSeen && len(seen) > 0 {
		set := new(imap.SeqSet)
		set.AddNum(seen...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(set, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, eris.Wrap(err, "mark seen")
		}
	}
	return out, nil
}

func (c *Connector) withPriceLists(client *imapclient.Client, ids []uint32) ([]uint32, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() { done <- client.Fetch(seqset, []imap.FetchItem{imap.FetchBodyStructure}, messages) }()

	var out []uint32
	for msg := range messages {
		if msg != nil && hasPriceList(msg.BodyStructure) {
			out = append(out, msg.SeqNum)
		}
	}
	if err := <-done; err != nil {
		return nil, eris.Wrap(err, "fetch body structure")
	}
	return out, nil
}

// hasPriceList also accepts any text/html part, since suppliers often paste
// the table into the message body.
func hasPriceList(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	found := false
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if found {
			return false
		}
		if name, err := part.Filename(); err == nil && name != "" {
			switch source.KindOf(name) {
			case source.KindXLSX, source.KindCSV, source.KindPDF, source.KindHTML:
				found = true
			}
		}
		if part.MIMEType == "text" && part.MIMESubType == "html" {
			found = true
		}
		return !found
	})
	return found
}
