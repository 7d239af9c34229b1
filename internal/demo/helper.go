package demo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/ir"
)

// Action shapes.
const (
	ShapeUser ir.ActionShape = "user"
	ShapeTodo ir.ActionShape = "todo"
)

// Action kinds.
const (
	UserLoad  ir.ActionKind = "user.load"
	TodoLoad  ir.ActionKind = "todo.load"
	TodoAdd   ir.ActionKind = "todo.add"
	TodoClose ir.ActionKind = "todo.close"
)

// ErrBadCommand is returned for a malformed "kind:position" command.
var ErrBadCommand = errors.New("malformed command")

// SyncFunc pushes a changed to-do to its remote copy before the action is
// posted. An error stops the action.
type SyncFunc func(Todo) error

// Helper is the action.Helper for the demo domain.
type Helper struct {
	*action.Table
	sync SyncFunc
}

// NewHelper builds the demo helper. sync may be nil.
func NewHelper(sync SyncFunc) *Helper {
	h := &Helper{sync: sync}
	h.Table = action.NewTable(h.wrap)
	// The kinds are constants and distinct, so binding cannot fail.
	_ = action.Define[[]User](h.Table, ShapeUser, UserLoad)
	_ = action.Define[[]Todo](h.Table, ShapeTodo, TodoLoad, TodoAdd, TodoClose)
	return h
}

// wrap normalizes raw input:
//
//	int              canned data for kind (user index for todo.load)
//	"kind:position"  canned data for that kind and position
//	Todo             synced, then wrapped in a one-element list
//
// Anything else passes through.
func (h *Helper) wrap(kind ir.ActionKind, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return canned(kind, v), nil
	case string:
		k, pos, err := parseCommand(v)
		if err != nil {
			return nil, err
		}
		return canned(k, pos), nil
	case Todo:
		if h.sync != nil {
			if err := h.sync(v); err != nil {
				return nil, fmt.Errorf("sync todo %d: %w", v.ID, err)
			}
		}
		return []Todo{v}, nil
	}
	return raw, nil
}

func canned(kind ir.ActionKind, pos int) any {
	switch kind {
	case UserLoad:
		return Users()
	case TodoLoad:
		return TodosFor(pos)
	}
	return nil
}

func parseCommand(s string) (ir.ActionKind, int, error) {
	kind, pos, ok := strings.Cut(s, ":")
	if !ok || kind == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrBadCommand, s)
	}
	n, err := strconv.Atoi(pos)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrBadCommand, s, err)
	}
	return ir.ActionKind(kind), n, nil
}
