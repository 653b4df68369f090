package reconciliation

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the lifecycle state of one candidate in a batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Payload is the opaque binary behind a candidate. The matcher never reads
// it; only the upload step opens it. Payloads that also implement
// io.Closer are closed when their candidate is removed or cleared.
type Payload interface {
	Open() (io.ReadCloser, error)
}

// BytesPayload holds an in-memory file, e.g. a multipart part.
type BytesPayload []byte

func (p BytesPayload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p)), nil
}

// FilePayload reads a file from local disk on every Open.
type FilePayload string

func (p FilePayload) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

// File is one item delivered by a file picker or drop zone.
type File struct {
	Name    string
	Type    string
	Size    int64
	Payload Payload
}

// Candidate is one file in a reconciliation batch.
type Candidate struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Status      Status `json:"status"`

	// MatchedEntryID is empty only when no catalog entry reached the
	// acceptance floor and the user has not picked one.
	MatchedEntryID   string  `json:"matched_entry_id,omitempty"`
	MatchedEntryName string  `json:"matched_entry_name,omitempty"`
	MatchScore       float64 `json:"match_score,omitempty"`

	SearchQuery  string `json:"search_query,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`

	payload Payload
}

func (c *Candidate) release() {
	if closer, ok := c.payload.(io.Closer); ok {
		_ = closer.Close()
	}
}

// ObjectKey derives the storage key for a candidate's media: the matched
// entry id plus a millisecond timestamp, keeping the original extension.
func ObjectKey(prefix, entryID, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".gif"
	}
	name := fmt.Sprintf("%s-%d%s", entryID, now.UnixMilli(), ext)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
