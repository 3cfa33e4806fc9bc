package connectors

import (
	"context"
	"time"
)

// Message is one raw RFC 822 message pulled from a mailbox.
type Message struct {
	Provider   string
	ID         string
	ReceivedAt time.Time
	Raw        []byte
}

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, limit int) ([]Message, error)
}
