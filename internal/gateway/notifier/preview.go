package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/husnusametd/spectra/internal/logger"
)

// Preview writes the message to a writer instead of delivering it. It stands
// in when no channel is configured and backs --dry-run.
type Preview struct {
	Out io.Writer
}

func NewPreview(out io.Writer) *Preview {
	if out == nil {
		out = os.Stdout
	}
	return &Preview{Out: out}
}

func (p *Preview) Name() string { return "preview" }

func (p *Preview) Send(_ context.Context, msg Message) error {
	logger.Infof("[notify] no delivery channel configured, printing preview: %s", msg.Subject)
	body := msg.HTML
	if body == "" {
		body = msg.Text
	}
	_, err := fmt.Fprintf(p.Out, "\n==== PREVIEW: %s ====\n%s\n==== END PREVIEW ====\n", msg.Subject, body)
	return err
}
