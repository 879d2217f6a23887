package email

import "context"

// Attachment is one file carried on an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Provider interface {
	Send(ctx context.Context, to []string, subject, htmlBody string, attachments ...Attachment) error
}

type NoOpProvider struct{}

func (NoOpProvider) Send(ctx context.Context, to []string, subject, htmlBody string, attachments ...Attachment) error {
	return nil
}
