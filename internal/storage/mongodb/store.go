// Package mongodb implements storage interfaces using MongoDB.
//
// Bank files live in a GridFS bucket keyed by file name. Uploading a file
// under an existing name adds a revision and readers get the newest one.
// Processing results are documents in a regular collection keyed by file name.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

// Store implements storage.Store using MongoDB
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	gridfs  *gridfs.Bucket
	files   *mongo.Collection
	results *mongo.Collection
}

// Config holds MongoDB connection settings
type Config struct {
	URI              string
	Database         string
	GridFSBucket     string
	ResultCollection string
	ChunkSizeBytes   int32
}

// NewStore creates a new MongoDB store
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	// Connect to MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	bucketName := cfg.GridFSBucket
	if bucketName == "" {
		bucketName = "bankfiles"
	}
	chunkSize := cfg.ChunkSizeBytes
	if chunkSize == 0 {
		chunkSize = 261120 // 255KB
	}
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().
		SetName(bucketName).
		SetChunkSizeBytes(chunkSize))
	if err != nil {
		return nil, fmt.Errorf("creating GridFS bucket: %w", err)
	}

	collection := cfg.ResultCollection
	if collection == "" {
		collection = "processed_files"
	}

	s := &Store{
		client:  client,
		db:      db,
		gridfs:  bucket,
		files:   db.Collection(bucketName + ".files"),
		results: db.Collection(collection),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.results.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "checksum", Value: 1}, {Key: "status", Value: 1}, {Key: "processed_at", Value: -1}}},
		{Keys: bson.D{{Key: "processed_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating result indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// FileStore implementation using GridFS

func (s *Store) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.gridfs.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("setting read deadline: %w", err)
		}
	}

	// Newest revision is the default
	stream, err := s.gridfs.OpenDownloadStreamByName(clean)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening download stream: %w", err)
	}
	return stream, nil
}

func (s *Store) PutFile(ctx context.Context, key string, r io.Reader) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.gridfs.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}

	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"uploaded_at": time.Now().UTC(),
	})
	if _, err := s.gridfs.UploadFromStream(clean, r, uploadOpts); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.files.Distinct(ctx, "filename", fileQuery(prefix))
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	keys := make([]string, 0, len(names))
	for _, n := range names {
		if name, ok := n.(string); ok {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func fileQuery(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}

// ResultStore implementation

func (s *Store) RecordResult(ctx context.Context, result *storage.Result) error {
	_, err := s.results.ReplaceOne(ctx, bson.M{"_id": result.Key}, result,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", result.Key, err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, key string) (*storage.Result, error) {
	var result storage.Result
	err := s.results.FindOne(ctx, bson.M{"_id": key}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) FindByChecksum(ctx context.Context, checksum string) (*storage.Result, error) {
	query := bson.M{"checksum": checksum, "status": storage.StatusProcessed}
	opts := options.FindOne().SetSort(bson.D{{Key: "processed_at", Value: -1}})

	var result storage.Result
	err := s.results.FindOne(ctx, query, opts).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) ListResults(ctx context.Context, filter *storage.ResultFilter) ([]*storage.Result, error) {
	query := resultQuery(filter)

	opts := options.Find().SetSort(bson.D{{Key: "processed_at", Value: -1}})
	if filter != nil && filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.results.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*storage.Result
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func resultQuery(filter *storage.ResultFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Since != nil {
		query["processed_at"] = bson.M{"$gte": *filter.Since}
	}
	return query
}
