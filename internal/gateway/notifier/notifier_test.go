package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_PostsMarkdown(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	require.NoError(t, tg.Send(context.Background(), Message{Subject: "s", Text: "*hello*"}))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*hello*", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegram_RetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegram("T", "1")
	tg.BaseURL = srv.URL
	tg.Retries = 2
	err := tg.Send(context.Background(), Message{Text: "x"})
	assert.ErrorContains(t, err, "status=502")
	assert.Equal(t, 2, calls)

	assert.Error(t, NewTelegram("", "1").Send(context.Background(), Message{Text: "x"}))
}

func TestPreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPreview(&buf).Send(context.Background(), Message{Subject: "Report", HTML: "<table></table>"}))
	assert.Contains(t, buf.String(), "PREVIEW: Report")
	assert.Contains(t, buf.String(), "<table></table>")
}

func TestSMTP(t *testing.T) {
	cfg := SMTPConfig{Host: "mail.local", User: "bot", Password: "pw", From: "bot@local", To: []string{"me@local"}}
	s := NewSMTP(cfg)
	var addr string
	var sent []byte
	s.send = func(a string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		addr = a
		sent = msg
		assert.Equal(t, []string{"me@local"}, to)
		return nil
	}
	require.NoError(t, s.Send(context.Background(), Message{Subject: "Signals", HTML: "<b>x</b>"}))
	assert.Equal(t, "mail.local:587", addr)
	assert.Contains(t, string(sent), "Subject: Signals\r\n")
	assert.Contains(t, string(sent), "text/html")
	assert.Contains(t, string(sent), "<b>x</b>")

	assert.False(t, SMTPConfig{Host: "h", User: "${SMTP_USER}", To: []string{"a"}}.Configured())
	assert.Error(t, NewSMTP(SMTPConfig{}).Send(context.Background(), Message{}))
}

type stubNotifier struct {
	err  error
	sent int
}

func (s *stubNotifier) Name() string { return "stub" }
func (s *stubNotifier) Send(context.Context, Message) error {
	s.sent++
	return s.err
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &stubNotifier{err: boom}, &stubNotifier{}
	err := Fanout{a, nil, b}.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.sent)
	assert.Equal(t, 1, b.sent)
}

func TestStructuredMessage(t *testing.T) {
	msg := StructuredMessage{
		Icon:      "📡",
		Title:     "Scan",
		Sections:  []MessageSection{{Title: "Signals", Lines: []string{"BTC breakout", " "}}},
		Timestamp: time.Date(2024, 1, 1, 8, 5, 0, 0, time.UTC),
	}
	out := msg.RenderMarkdown()
	assert.Contains(t, out, "📡 Scan")
	assert.Contains(t, out, "- BTC breakout")
	assert.Contains(t, out, "time: 2024-01-01 08:05:00 UTC")
}

func TestStructuredMessage_DropsWholeSectionsAndClosesFence(t *testing.T) {
	msg := StructuredMessage{Title: "Scan", Footer: "60 signal(s)", MoreLabel: "signal(s)", MaxLen: 1000}
	for i := 0; i < 60; i++ {
		msg.Sections = append(msg.Sections, MessageSection{
			Title: fmt.Sprintf("#%d COIN%02d", i+1, i),
			Lines: []string{"entry 1.2345", "sl 1.2  tp1 1.3  tp2 1.4"},
		})
	}
	out := msg.RenderMarkdown()

	assert.LessOrEqual(t, len(out), 1000)
	assert.Equal(t, 2, strings.Count(out, "```"))
	listed := strings.Count(out, "- entry ")
	require.Greater(t, listed, 0)
	assert.Equal(t, listed, strings.Count(out, "- sl "), "a section is never cut in half")
	assert.Contains(t, out, fmt.Sprintf("… %d more signal(s)", 60-listed))
	assert.True(t, strings.HasSuffix(strings.SplitN(out, "… ", 2)[0], "```\n\n"))
	assert.Contains(t, out, "60 signal(s)")
}

func TestStructuredMessage_LongLinesStayValidUTF8(t *testing.T) {
	msg := StructuredMessage{
		Title:    strings.Repeat("é", 3000),
		Sections: []MessageSection{{Title: "notes", Lines: []string{strings.Repeat("é", 3000)}}},
	}
	out := msg.RenderMarkdown()
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), MaxMarkdownLen)
	assert.Equal(t, 2, strings.Count(out, "```"))
	assert.Contains(t, out, "é…")
}

func TestStructuredMessage_EscapesHeaderAndKeepsFenceIntact(t *testing.T) {
	msg := StructuredMessage{
		Title:    "[Spectra] scan_report",
		Sections: []MessageSection{{Title: "raw", Lines: []string{"a ``` b", "snake_case *bold*"}}},
	}
	out := msg.RenderMarkdown()
	assert.Contains(t, out, `\[Spectra] scan\_report`)
	assert.Contains(t, out, "- a ''' b")
	assert.Contains(t, out, "- snake_case *bold*")
	assert.Equal(t, 2, strings.Count(out, "```"))
}

func TestStructuredMessage_NoSections(t *testing.T) {
	out := StructuredMessage{Title: "Scan", Footer: "No qualifying signals this run."}.RenderMarkdown()
	assert.Equal(t, "Scan\n\nNo qualifying signals this run.", out)
}
