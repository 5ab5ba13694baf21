// Package notify posts bank messages and processing errors to Slack
// incoming webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/metrics"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/transport"
)

// Channel names used for metrics
const (
	ChannelInfo = "info"
	ChannelLogs = "logs"
)

// MaxBodyLength is the longest info message body sent to Slack
const MaxBodyLength = 3000

// ErrNoWebhook is returned when the target webhook is not configured
var ErrNoWebhook = errors.New("webhook not configured")

// Block Kit payload
type message struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string  `json:"type"`
	Text     *text   `json:"text,omitempty"`
	Elements []*text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(s string) *text {
	return &text{Type: "mrkdwn", Text: s}
}

// newMessage builds a title, body and footer message. Slack rejects empty
// sections so an empty body is left out.
func newMessage(title, body, footer string) message {
	blocks := []block{{Type: "section", Text: mrkdwn(title)}}
	if body != "" {
		blocks = append(blocks, block{Type: "section", Text: mrkdwn(body)})
	}
	blocks = append(blocks, block{Type: "context", Elements: []*text{mrkdwn(footer)}})
	return message{Blocks: blocks}
}

// Poster sends JSON requests
type Poster interface {
	PostJSON(ctx context.Context, url string, header http.Header, body any) ([]byte, error)
}

// Config configures a Notifier
type Config struct {
	Stage       string
	InfoWebhook string
	LogsWebhook string
	// RequestsPerSecond limits webhook calls; zero disables limiting
	RequestsPerSecond float64
	Poster            Poster
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// Notifier sends Slack notifications. It is safe for concurrent use.
type Notifier struct {
	stage   string
	info    string
	logs    string
	limiter *rate.Limiter
	poster  Poster
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Notifier
func New(cfg Config) *Notifier {
	poster := cfg.Poster
	if poster == nil {
		poster = transport.NewClient(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Notifier{
		stage:   cfg.Stage,
		info:    cfg.InfoWebhook,
		logs:    cfg.LogsWebhook,
		limiter: rate.NewLimiter(limit, 1),
		poster:  poster,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// SplitInfo splits a bank info message into its header line and body.
// Banks append translations after a triple newline; only the first language
// is kept and the body is cut to MaxBodyLength characters.
func SplitInfo(data string) (header, body string) {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	header, body, _ = strings.Cut(data, "\n")
	body, _, _ = strings.Cut(body, "\n\n\n")

	if runes := []rune(body); len(runes) > MaxBodyLength {
		body = string(runes[:MaxBodyLength-3]) + "..."
	}
	return header, body
}

// Info forwards a bank info message read from the file key
func (n *Notifier) Info(ctx context.Context, data, key string) error {
	header, body := SplitInfo(data)
	n.logger.Info("bank message", slog.String("key", key), slog.String("header", header))

	msg := newMessage("*Viesti pankilta: "+header+"*", body, n.footer(key))
	return n.send(ctx, ChannelInfo, n.info, msg)
}

// Error reports a processing failure of the file key
func (n *Notifier) Error(ctx context.Context, cause error, key string) error {
	msg := newMessage("*Pankkilinkki error :broken_heart:*", cause.Error(), n.footer(key))
	return n.send(ctx, ChannelLogs, n.logs, msg)
}

func (n *Notifier) footer(key string) string {
	return fmt.Sprintf("pankkilinkki-%s (%s)", n.stage, key)
}

func (n *Notifier) send(ctx context.Context, channel, webhook string, msg message) error {
	if webhook == "" {
		n.logger.Debug("notification skipped", slog.String("channel", channel))
		return fmt.Errorf("%s: %w", channel, ErrNoWebhook)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		n.metrics.Notification(channel, err)
		return fmt.Errorf("waiting for %s rate limit: %w", channel, err)
	}

	_, err := n.poster.PostJSON(ctx, webhook, nil, msg)
	n.metrics.Notification(channel, err)
	if err != nil {
		return fmt.Errorf("posting %s notification: %w", channel, err)
	}
	return nil
}
