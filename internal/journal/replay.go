package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/ir"
)

// Replay re-posts every journaled action in seq order. Payloads are decoded
// into the type helper's shape declares for the kind, and each action keeps
// its recorded ID and Seq. It returns the number of actions posted.
//
// Replay does not run WrapData, so helper side effects are not repeated.
func (s *Store) Replay(ctx context.Context, helper action.Helper, poster action.Poster) (int, error) {
	records, err := s.ReadActions(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		a, err := decodeAction(helper, rec)
		if err != nil {
			return i, fmt.Errorf("replay %s: %w", rec.ID, err)
		}
		poster.Post(a)
	}
	return len(records), nil
}

func decodeAction(helper action.Helper, rec ActionRecord) (ir.Action, error) {
	kind := ir.ActionKind(rec.Kind)
	shape, ok := helper.Shape(kind)
	if !ok || shape.Payload == nil || shape.New == nil {
		return ir.Action{}, fmt.Errorf("no shape for kind %q", rec.Kind)
	}

	payload, err := decodePayload(shape.Payload, rec.Payload)
	if err != nil {
		return ir.Action{}, err
	}
	a, err := shape.New(kind, payload)
	if err != nil {
		return ir.Action{}, fmt.Errorf("construct: %w", err)
	}
	a.ID = rec.ID
	a.Seq = rec.Seq
	return a, nil
}

// decodePayload decodes canonical JSON into a value of type t. An absent
// payload is journaled as "{}"; for non-object types it decodes to nil.
func decodePayload(t reflect.Type, data string) (any, error) {
	if data == "{}" {
		switch t.Kind() {
		case reflect.Struct, reflect.Map:
		default:
			return nil, nil
		}
	}
	v := reflect.New(t)
	if err := json.Unmarshal([]byte(data), v.Interface()); err != nil {
		return nil, fmt.Errorf("decode payload as %s: %w", t, err)
	}
	return v.Elem().Interface(), nil
}
