package demo

import (
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/registry"
	"github.com/roach88/flux/internal/store"
)

// Store kinds.
const (
	UserStoreKind registry.StoreKind = "user"
	TodoStoreKind registry.StoreKind = "todo"
)

// NewTodoStore creates a to-do list store. todo.close replaces the matching
// to-do in place.
func NewTodoStore(opts ...store.Option) *store.List[Todo] {
	return store.NewList(store.Config[Todo]{
		Name:     "todo",
		Shapes:   []ir.ActionShape{ShapeTodo},
		Kinds:    store.Kinds{Load: TodoLoad, Append: TodoAdd, Update: TodoClose},
		Identity: func(t Todo) any { return t.ID },
	}, opts...)
}

// NewUserStore creates the user list store.
func NewUserStore(opts ...store.Option) *store.List[User] {
	return store.NewList(store.Config[User]{
		Name:     "user",
		Shapes:   []ir.ActionShape{ShapeUser},
		Kinds:    store.Kinds{Load: UserLoad},
		Identity: func(u User) any { return u.Name },
	}, opts...)
}

// StoreMap returns the demo store constructors. opts apply to every store.
func StoreMap(opts ...store.Option) map[registry.StoreKind]registry.Constructor {
	return map[registry.StoreKind]registry.Constructor{
		UserStoreKind: func(bus.Bus) (store.Store, error) { return NewUserStore(opts...), nil },
		TodoStoreKind: func(bus.Bus) (store.Store, error) { return NewTodoStore(opts...), nil },
	}
}
