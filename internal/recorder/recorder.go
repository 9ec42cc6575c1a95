// Package recorder persists model predictions together with the feature rows
// that produced them.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord indicates a record that cannot be stored.
var ErrInvalidRecord = errors.New("invalid prediction record")

// Record is one prediction and its inputs.
type Record struct {
	ID           string    `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	FeatureNames []string  `json:"feature_names"`
	Features     []float64 `json:"features"`
	PredictedAQI float64   `json:"predicted_aqi"`
	Fallback     bool      `json:"fallback"`
	Reason       string    `json:"reason,omitempty"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}

// Recorder stores prediction records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// New fills in the ID and timestamp of a record.
func New(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

// Validate checks that the feature names and values line up.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if len(r.FeatureNames) != len(r.Features) {
		return fmt.Errorf("%w: %d feature names for %d values", ErrInvalidRecord, len(r.FeatureNames), len(r.Features))
	}
	return nil
}

// Encode serializes a record for the message bus.
func Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Decode parses and validates a record from the message bus.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Nop discards every record.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Record) error { return nil }

// Memory keeps records in memory. Used by the CLI and tests.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record implements Recorder.
func (m *Memory) Record(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
