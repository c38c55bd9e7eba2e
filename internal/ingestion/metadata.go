package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SourceKind names where a job description came from.
type SourceKind string

const (
	SourceFile  SourceKind = "file"
	SourceURL   SourceKind = "url"
	SourceStdin SourceKind = "stdin"
)

// Metadata describes an ingested job description.
type Metadata struct {
	Source    SourceKind `json:"source"`
	Path      string     `json:"path,omitempty"`
	URL       string     `json:"url,omitempty"`
	Timestamp string     `json:"timestamp"` // RFC3339
	Hash      string     `json:"hash"`      // SHA256 hex digest of the cleaned text
	Platform  string     `json:"platform,omitempty"`
	Rendered  bool       `json:"rendered,omitempty"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(content string, url string) *Metadata {
	return &Metadata{
		URL:       url,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
