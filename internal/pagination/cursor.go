// Package pagination implements forward-only keyset pagination over rows
// ordered newest first by (created_at, id).
//
// Cursors are opaque to callers. A cursor that fails to decode is treated as
// the start of the listing rather than as an error.
package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Key is the ordering key of a row. ID breaks ties between rows sharing a
// creation timestamp, so keys are totally ordered.
type Key struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func KeyOf(createdAt time.Time, id uuid.UUID) Key {
	return Key{CreatedAt: createdAt, ID: id}
}

// Compare orders keys ascending: -1 if a sorts before b, 1 if after, 0 if equal.
// IDs compare by their raw bytes, which matches PostgreSQL's uuid ordering.
func Compare(a, b Key) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

type wireKey struct {
	CreatedAt string `json:"c"`
	ID        string `json:"i"`
}

func Encode(k Key) string {
	raw, err := json.Marshal(wireKey{
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        k.ID.String(),
	})
	if err != nil {
		// Marshaling two strings cannot fail.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode returns the key encoded in cursor. ok is false for an empty or
// malformed cursor; callers then list from the beginning.
func Decode(cursor string) (key *Key, ok bool) {
	if cursor == "" {
		return nil, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, false
	}

	var w wireKey
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, false
	}

	return &Key{CreatedAt: createdAt, ID: id}, true
}

// Paginate trims rows fetched with a limit of pageSize+1 down to one page.
// The returned cursor is empty once the listing is exhausted.
func Paginate[T any](rows []T, pageSize int, keyFn func(T) Key) ([]T, string) {
	if len(rows) <= pageSize {
		return rows, ""
	}
	rows = rows[:pageSize]
	return rows, Encode(keyFn(rows[len(rows)-1]))
}

// ClampPageSize applies the default for absent or non-positive sizes and caps
// the result at max.
func ClampPageSize(requested, def, max int) int {
	size := requested
	if size <= 0 {
		size = def
	}
	if max > 0 && size > max {
		size = max
	}
	return size
}
