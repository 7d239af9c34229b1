package journal

import (
	"fmt"

	"github.com/roach88/flux/internal/ir"
)

// ActionRecord is a journaled action.
type ActionRecord struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	Kind           string `json:"kind"`
	Shape          string `json:"shape"`
	Payload        string `json:"payload"`
	Digest         string `json:"digest"`
	RuntimeVersion string `json:"runtime_version"`
}

// ChangeRecord is a journaled store change event.
type ChangeRecord struct {
	ID        int64  `json:"id"`
	Store     string `json:"store"`
	Seq       int64  `json:"seq"`
	EventType string `json:"event_type"`
	Fields    string `json:"fields"`
}

// actionRecord converts a to its journal form. The payload is stored as
// canonical JSON.
func actionRecord(a ir.Action) (ActionRecord, error) {
	payload, _, err := ir.PayloadDigest(a.Payload)
	if err != nil {
		return ActionRecord{}, fmt.Errorf("marshal payload of %s: %w", a, err)
	}
	digest, err := ir.ActionDigest(a)
	if err != nil {
		return ActionRecord{}, fmt.Errorf("digest %s: %w", a, err)
	}
	return ActionRecord{
		ID:             a.ID,
		Seq:            a.Seq,
		Kind:           string(a.Kind),
		Shape:          string(a.Shape),
		Payload:        string(payload),
		Digest:         digest,
		RuntimeVersion: ir.RuntimeVersion,
	}, nil
}

// marshalEvent converts ev's fields to canonical JSON TEXT.
func marshalEvent(ev ir.ChangeEvent) (string, error) {
	data, err := ir.MarshalCanonical(ir.EventFields(ev))
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", ev.EventType(), err)
	}
	return string(data), nil
}
