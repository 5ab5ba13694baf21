package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/config"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/handler"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/metrics"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/registry"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage/memory"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/receiverinfo"
)

type nopRegistry struct{}

func (nopRegistry) PostPayments(ctx context.Context, id string, payments []registry.Payment) (int, error) {
	return len(payments), nil
}

func (nopRegistry) PostReceiverInfo(ctx context.Context, id string, messages []receiverinfo.Message) error {
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Info(ctx context.Context, data, key string) error { return nil }
func (nopNotifier) Error(ctx context.Context, cause error, key string) error { return nil }

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	cfg, err := config.Parse([]byte("registry:\n  endpoint: https://api.example.com\n  apiKey: x\nserver:\n  maxUploadBytes: 1024\n"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	store := memory.NewStore()
	h := handler.New(&handler.Config{
		Files:    store,
		Results:  store,
		Registry: nopRegistry{},
		Notifier: nopNotifier{},
		Metrics:  metrics.New(reg),
	})
	return New(cfg, store, h, reg, nil), store
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessFile_Upload(t *testing.T) {
	s, store := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/files/inbox/notice.INFO", "Header\nBody")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result storage.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "inbox/notice.INFO", result.Key)
	assert.Equal(t, storage.StatusProcessed, result.Status)

	stored, err := store.GetResult(context.Background(), "inbox/notice.INFO")
	require.NoError(t, err)
	assert.Equal(t, result.RunID, stored.RunID)
}

func TestProcessFile_Stored(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.PutFile(context.Background(), "day.INFO", strings.NewReader("h\nb")))

	rec := do(t, s, http.MethodPost, "/files/day.INFO", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessFile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"missing file", "/files/missing.TL", "", http.StatusNotFound},
		{"unknown type", "/files/file.XX", "data", http.StatusBadRequest},
		{"not implemented", "/files/invoices.XI", "<Finvoice/>", http.StatusNotImplemented},
		{"malformed ledger", "/files/bad.TL", "3SHORT", http.StatusUnprocessableEntity},
		{"too large", "/files/big.INFO", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := do(t, s, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestEvent(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.PutFile(context.Background(), "a.INFO", strings.NewReader("h\nb")))

	rec := do(t, s, http.MethodPost, "/events", `{"Records":[{"s3":{"object":{"key":"a.INFO"}}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var results []storage.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, storage.StatusProcessed, results[0].Status)

	rec = do(t, s, http.MethodPost, "/events", `{"Records":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResults(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.PutFile(context.Background(), "a.INFO", strings.NewReader("h\nb")))
	do(t, s, http.MethodPost, "/files/a.INFO", "")
	do(t, s, http.MethodPost, "/files/b.XX", "data")

	rec := do(t, s, http.MethodGet, "/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var results []storage.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2)

	rec = do(t, s, http.MethodGet, "/results?status=failed", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "b.XX", results[0].Key)

	rec = do(t, s, http.MethodGet, "/results?status=duplicate", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/results/a.INFO", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/results/none.INFO", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/results?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/results?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKey(t *testing.T) {
	cfg, err := config.Parse([]byte("registry:\n  endpoint: https://api.example.com\n  apiKey: x\nserver:\n  apiKey: s3cret\n"))
	require.NoError(t, err)
	store := memory.NewStore()
	h := handler.New(&handler.Config{Files: store, Results: store, Registry: nopRegistry{}, Notifier: nopNotifier{}})
	s := New(cfg, store, h, nil, nil)

	rec := do(t, s, http.MethodGet, "/results", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set(HeaderAPIKey, "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set(HeaderAPIKey, "s3cret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Probes stay open
	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Metrics are not served without a gatherer
	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/files/notice.INFO", "h\nb")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pankkilinkki_files_processed_total{outcome="success",type="INFO"} 1`)
}
