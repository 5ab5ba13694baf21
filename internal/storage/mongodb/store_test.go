package mongodb

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

var _ storage.Store = (*Store)(nil)

func TestResultQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, resultQuery(nil))

	since := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	q := resultQuery(&storage.ResultFilter{Status: storage.StatusFailed, Since: &since, Limit: 5})
	assert.Equal(t, bson.M{
		"status":       storage.StatusFailed,
		"processed_at": bson.M{"$gte": since},
	}, q)
}

func TestFileQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, fileQuery(""))
	assert.Equal(t, bson.M{"filename": bson.M{"$regex": `^inbox/2024\.01/`}}, fileQuery("inbox/2024.01/"))
}

func TestResult_BSON(t *testing.T) {
	r := storage.Result{
		Key:         "file.TL",
		FileType:    "TL",
		Checksum:    "abc",
		Status:      storage.StatusProcessed,
		Records:     3,
		ProcessedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	data, err := bson.Marshal(r)
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, "file.TL", raw["_id"])
	assert.Equal(t, "processed", raw["status"])
	assert.NotContains(t, raw, "error")

	var back storage.Result
	require.NoError(t, bson.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

// TestStore_Integration runs against a live server when MONGODB_TEST_URI is set
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewStore(ctx, &Config{URI: uri, Database: "pankkilinkki_test_" + time.Now().Format("20060102150405")})
	require.NoError(t, err)
	defer func() {
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	}()

	require.NoError(t, s.PutFile(ctx, "inbox/file.TL", strings.NewReader("first")))
	require.NoError(t, s.PutFile(ctx, "inbox/file.TL", strings.NewReader("second")))

	rc, err := s.OpenFile(ctx, "inbox/file.TL")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(data))

	_, err = s.OpenFile(ctx, "missing.TL")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	keys, err := s.ListFiles(ctx, "inbox/")
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox/file.TL"}, keys)

	r := &storage.Result{Key: "inbox/file.TL", Checksum: "c", Status: storage.StatusProcessed, ProcessedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, s.RecordResult(ctx, r))

	got, err := s.FindByChecksum(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, r.Key, got.Key)

	list, err := s.ListResults(ctx, &storage.ResultFilter{Status: storage.StatusProcessed})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
