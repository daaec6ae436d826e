package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Exchange is a prompt/response pair kept for debugging generation.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "anthropic"
	Model     string    `json:"model"`
	Kind      string    `json:"kind"` // "perspective" or "summary"
	ItemTitle string    `json:"item_title"`
	System    string    `json:"system"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// SaveExchange writes the exchange as JSON to a timestamped file in dir and
// returns its path.
func SaveExchange(dir string, exchange Exchange) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	ts := exchange.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	// dashes instead of colons for filesystem compatibility
	filename := fmt.Sprintf("%s-%09d-%s.json", ts.Format("2006-01-02T15-04-05"), ts.Nanosecond(), exchange.Kind)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
