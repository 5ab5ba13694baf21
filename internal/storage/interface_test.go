package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "file.TL", want: "file.TL"},
		{key: "/inbox/file.TL", want: "inbox/file.TL"},
		{key: "inbox/./2024/../file.RI", want: "inbox/file.RI"},
		{key: "", wantErr: true},
		{key: "/", wantErr: true},
		{key: "..", wantErr: true},
		{key: "../file.TL", wantErr: true},
		{key: "inbox/../../file.TL", wantErr: true},
		{key: `inbox\file.TL`, wantErr: true},
		{key: "file\x00.TL", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultFilter_Matches(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	r := &Result{Status: StatusProcessed, ProcessedAt: now}

	var nilFilter *ResultFilter
	assert.True(t, nilFilter.Matches(r))
	assert.True(t, (&ResultFilter{Status: StatusProcessed}).Matches(r))
	assert.False(t, (&ResultFilter{Status: StatusFailed}).Matches(r))
	assert.True(t, (&ResultFilter{Since: &earlier}).Matches(r))

	later := now.Add(time.Hour)
	assert.False(t, (&ResultFilter{Since: &later}).Matches(r))
}
