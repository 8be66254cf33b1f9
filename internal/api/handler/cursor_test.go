package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCursor_RoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)

	cursor := EncodeMessageCursor(createdAt, "msg-17")
	got, err := DecodeMessageCursor(cursor)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(createdAt))
}

func TestDecodeMessageCursor_Empty(t *testing.T) {
	got, err := DecodeMessageCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeMessageCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"missing separator", base64.StdEncoding.EncodeToString([]byte("1234567890"))},
		{"too many parts", base64.StdEncoding.EncodeToString([]byte("1|2|3"))},
		{"non numeric timestamp", base64.StdEncoding.EncodeToString([]byte("abc|msg-1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMessageCursor(tt.cursor)
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}
