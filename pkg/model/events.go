package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSnapshotLoaded = "refdata.snapshot_loaded"
	EventVersion            = "1.0.0"
)

// Envelope is the canonical wrapper for every event the service emits.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// SnapshotLoaded announces a freshly loaded (or re-synced) reference snapshot.
type SnapshotLoaded struct {
	SnapshotID   uuid.UUID `json:"snapshot_id"`
	LoadedAt     time.Time `json:"loaded_at"`
	Tickers      int       `json:"tickers"`
	Products     int       `json:"products"`
	ProductInfos int       `json:"product_infos"`
	Sessions     int       `json:"sessions"`
	Timezones    []string  `json:"timezones"`
}

// NewSnapshotLoadedEnvelope wraps ev for topic. The snapshot ID doubles as
// correlation ID so consumers can dedupe republished syncs.
func NewSnapshotLoadedEnvelope(topic, source string, ev SnapshotLoaded) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot_loaded payload: %w", err)
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: ev.SnapshotID,
		Topic:         topic,
		EventType:     EventTypeSnapshotLoaded,
		Version:       EventVersion,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}, nil
}
