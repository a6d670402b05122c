package service

import (
	"encoding/base64"
	"strconv"
)

// Cursors encode the last-seen edge id of the previous page. They are opaque
// to callers: the encoding may change, and hand-built cursors are unsupported.

func encodeCursor(edgeID int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(edgeID, 10)))
}

// decodeCursor returns the edge id a cursor points past. A cursor that fails
// to decode is treated as absent rather than an error, so stale or garbled
// cursors restart pagination from the beginning instead of failing the
// request.
func decodeCursor(cursor string) int64 {
	if cursor == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
