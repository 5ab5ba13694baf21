// Package registry delivers decoded bank data to the membership registry API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/metrics"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/receiverinfo"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/reliability"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/transport"
)

// HeaderAPIKey carries the registry credentials
const HeaderAPIKey = "API-Key"

// Operation names used for delivery tracking and metrics
const (
	OperationPayments     = "payments"
	OperationReceiverInfo = "receiver_info"
)

const closeDateLayout = "2006-01-02"

// Payment is one settled payment reported to the registry
type Payment struct {
	CloseDate       string      `json:"closeDate"`
	ArchiveID       string      `json:"archiveId"`
	ReferenceNumber string      `json:"referenceNumber"`
	Amount          json.Number `json:"amount"`
}

// PaymentsFromLedger maps every ledger row to a payment. The close date is
// the payment date of the row.
func PaymentsFromLedger(f *ledger.File) []Payment {
	payments := make([]Payment, 0, len(f.Rows))
	for _, r := range f.Rows {
		payments = append(payments, Payment{
			CloseDate:       r.PaymentDate.Format(closeDateLayout),
			ArchiveID:       r.ArchiveID,
			ReferenceNumber: r.ReferenceNumber,
			Amount:          json.Number(r.Amount.StringFixed(2)),
		})
	}
	return payments
}

type paymentsRequest struct {
	Payments []Payment `json:"payments"`
}

type paymentsResponse struct {
	Records *int `json:"records"`
}

type receiverInfoRequest struct {
	Messages []receiverinfo.Message `json:"messages"`
}

// Poster sends JSON requests
type Poster interface {
	PostJSON(ctx context.Context, url string, header http.Header, body any) ([]byte, error)
}

// Config configures a Client
type Config struct {
	Endpoint string
	APIKey   string
	Retry    reliability.RetryPolicy
	// Poster defaults to a transport.Client
	Poster  Poster
	Tracker *reliability.Tracker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Client calls the registry API
type Client struct {
	endpoint string
	apiKey   string
	retry    reliability.RetryPolicy
	poster   Poster
	tracker  *reliability.Tracker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a registry client
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("registry endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid registry endpoint: %w", err)
	}

	poster := cfg.Poster
	if poster == nil {
		poster = transport.NewClient(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		retry:    cfg.Retry,
		poster:   poster,
		tracker:  cfg.Tracker,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// PostPayments reports payments and returns the number of registry records
// modified
func (c *Client) PostPayments(ctx context.Context, id string, payments []Payment) (int, error) {
	body, err := c.post(ctx, OperationPayments, id, c.endpoint+"/rekisteri/payment", paymentsRequest{Payments: payments})
	if err != nil {
		return 0, err
	}

	var resp paymentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decoding payment response: %w", err)
	}
	if resp.Records == nil {
		return 0, nil
	}

	c.logger.Info("payments delivered",
		slog.String("id", id),
		slog.Int("payments", len(payments)),
		slog.Int("records", *resp.Records))
	return *resp.Records, nil
}

// PostReceiverInfo reports e-invoice recipient changes
func (c *Client) PostReceiverInfo(ctx context.Context, id string, messages []receiverinfo.Message) error {
	target := c.endpoint + "/rekisteri/?" + url.Values{"action": {"finvoice"}}.Encode()

	body, err := c.post(ctx, OperationReceiverInfo, id, target, receiverInfoRequest{Messages: messages})
	if err != nil {
		return err
	}

	c.logger.Info("receiver info delivered",
		slog.String("id", id),
		slog.Int("messages", len(messages)),
		slog.String("response", string(body)))
	return nil
}

func (c *Client) post(ctx context.Context, operation, id, target string, payload any) ([]byte, error) {
	header := http.Header{}
	header.Set(HeaderAPIKey, c.apiKey)
	header.Set(transport.HeaderRequestID, id)

	started := time.Now()
	var body []byte
	err := reliability.Retry(ctx, c.retry, c.tracker, operation+":"+id, func(ctx context.Context) error {
		var err error
		body, err = c.poster.PostJSON(ctx, target, header, payload)
		if err == nil {
			return nil
		}

		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return reliability.Permanent(err)
		}
		c.logger.Warn("registry request failed",
			slog.String("operation", operation),
			slog.String("id", id),
			slog.String("error", err.Error()))
		return err
	})
	c.metrics.RegistryRequest(operation, started, err)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", operation, err)
	}
	return body, nil
}
