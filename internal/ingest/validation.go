// Package ingest provides telemetry event capture and processing.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/signalbeam/signalbeam/telemetry"
)

const (
	maxNameLength       = 200
	maxPageLength       = 500
	maxSessionIDLength  = 128
	maxPropertiesBytes  = 4096
	ulidLength          = 26
)

// ValidateWireEvent validates an event as received from the SDK.
func ValidateWireEvent(ev telemetry.Event) error {
	if !telemetry.ValidType(ev.Type) {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(ev.Name) > maxNameLength {
		return fmt.Errorf("name too long")
	}
	if ev.Rating != "" && !telemetry.ValidRating(ev.Rating) {
		return fmt.Errorf("unknown rating %q", ev.Rating)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be set")
	}
	if ev.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if len(ev.SessionID) > maxSessionIDLength {
		return fmt.Errorf("session_id too long")
	}
	if len(ev.Page) > maxPageLength {
		return fmt.Errorf("page too long")
	}
	if ev.Properties != nil {
		data, err := json.Marshal(ev.Properties)
		if err != nil {
			return fmt.Errorf("properties not serializable: %w", err)
		}
		if len(data) > maxPropertiesBytes {
			return fmt.Errorf("properties exceed %d bytes", maxPropertiesBytes)
		}
	}
	return nil
}

// ValidateEventPayload validates a stream payload before persistence.
func ValidateEventPayload(payload EventPayload) error {
	if len(payload.ID) != ulidLength {
		return fmt.Errorf("id must be a %d-char ULID", ulidLength)
	}
	if payload.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !telemetry.ValidType(telemetry.Type(payload.Type)) {
		return fmt.Errorf("unknown event type %q", payload.Type)
	}
	if payload.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(payload.Name) > maxNameLength {
		return fmt.Errorf("name too long")
	}
	if payload.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if payload.ReceivedAt <= 0 {
		return fmt.Errorf("received_at must be set")
	}
	return nil
}
