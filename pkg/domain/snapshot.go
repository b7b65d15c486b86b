package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Snapshot is the last observed text of the monitored page.
// Only one snapshot exists per store; every run overwrites it.
type Snapshot struct {
	// Timestamp is when the content was captured.
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// URL is the page the content was fetched from.
	URL string `bson:"url" json:"url"`

	// Content is the normalized page text.
	Content string `bson:"content" json:"content"`

	// Checksum is the hex xxh3 hash of Content. Older state files may not carry it.
	Checksum string `bson:"checksum,omitempty" json:"checksum,omitempty"`
}

// NewSnapshot creates a snapshot of content captured at the given time.
// Invalid UTF-8 is replaced with U+FFFD so the checksum matches what every
// store can persist.
func NewSnapshot(url, content string, capturedAt time.Time) Snapshot {
	content = strings.ToValidUTF8(content, "\uFFFD")
	return Snapshot{
		Timestamp: capturedAt,
		URL:       url,
		Content:   content,
		Checksum:  Checksum(content),
	}
}

// Checksum returns the hex xxh3 hash used to detect corrupted snapshots.
func Checksum(content string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(content))
}

// Verify reports whether the stored checksum matches the content.
// A snapshot without a checksum is accepted as is.
func (s Snapshot) Verify() error {
	if s.Checksum == "" {
		return nil
	}
	if got := Checksum(s.Content); got != s.Checksum {
		return fmt.Errorf("snapshot checksum mismatch: stored %s, computed %s", s.Checksum, got)
	}
	return nil
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as ISO-8601 timestamps
// without a zone offset, which are read as local time.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	var raw struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Snapshot(raw.plain)
	if raw.Timestamp == "" {
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		// Fractional seconds are optional when parsing.
		ts, err = time.ParseInLocation("2006-01-02T15:04:05", raw.Timestamp, time.Local)
		if err != nil {
			return fmt.Errorf("invalid snapshot timestamp %q: %w", raw.Timestamp, err)
		}
	}
	s.Timestamp = ts
	return nil
}
