package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// DecodeMessageCursor parses an opaque pagination cursor. The cursor
// carries the creation time and id of the oldest message already
// seen; paging filters on the timestamp alone. An empty cursor means
// the first page.
func DecodeMessageCursor(cursorStr string) (*time.Time, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var nanos int64
	if _, err := fmt.Sscanf(parts[0], "%d", &nanos); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	t := time.Unix(0, nanos)
	return &t, nil
}

// EncodeMessageCursor encodes a message's position as an opaque cursor.
func EncodeMessageCursor(createdAt time.Time, messageID string) string {
	cs := fmt.Sprintf("%d|%s", createdAt.UnixNano(), messageID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
