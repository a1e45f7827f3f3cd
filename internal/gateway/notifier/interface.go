package notifier

import (
	"context"
	"errors"
)

// Message is one report delivery. Text is Markdown for chat channels, HTML
// is the body for mail.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers a report.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Fanout sends to every notifier and joins the failures.
type Fanout []Notifier

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
