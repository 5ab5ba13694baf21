package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
)

// Event is an object storage notification listing created objects
type Event struct {
	Records []EventRecord `json:"Records"`
}

// EventRecord is one created object
type EventRecord struct {
	S3 *struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// ParseEvent decodes and validates an event. Object keys are URL-decoded.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if len(ev.Records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidEvent)
	}
	for i, r := range ev.Records {
		if r.S3 == nil || r.S3.Object.Key == "" {
			return nil, fmt.Errorf("%w: record %d has no object", ErrInvalidEvent, i)
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidEvent, i, err)
		}
		r.S3.Object.Key = key
	}
	return &ev, nil
}

// Keys returns the object keys of the event in order
func (e *Event) Keys() []string {
	keys := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		keys = append(keys, r.S3.Object.Key)
	}
	return keys
}

// HandleEvent processes every object of the event in order and stops at the
// first failure
func (h *Handler) HandleEvent(ctx context.Context, ev *Event) ([]*storage.Result, error) {
	results := make([]*storage.Result, 0, len(ev.Records))
	for _, key := range ev.Keys() {
		result, err := h.Process(ctx, key)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
