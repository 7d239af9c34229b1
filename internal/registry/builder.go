package registry

import (
	"log/slog"
	"maps"

	"golang.org/x/time/rate"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/store"
)

// StoreKind names a store type in the store map.
type StoreKind string

// Constructor creates a store. It receives the Context's action bus; the
// Context registers the result on that bus itself.
type Constructor func(b bus.Bus) (store.Store, error)

// Builder assembles a Context. Bus, an action helper (or factory) and a
// store map are required.
//
//	ctx, err := registry.NewBuilder().
//		SetBus(bus.NewDirect()).
//		SetActionHelper(helper).
//		SetStoreMap(stores).
//		SetKeepCache(true).
//		Build()
type Builder struct {
	bus       bus.Bus
	helper    action.Helper
	factory   *action.Factory
	stores    map[StoreKind]Constructor
	keepCache bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
	submitter action.Submitter
	limit     rate.Limit
	burst     int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetBus sets the action bus.
func (b *Builder) SetBus(actions bus.Bus) *Builder {
	b.bus = actions
	return b
}

// SetActionHelper sets the helper a new Factory is built from.
func (b *Builder) SetActionHelper(helper action.Helper) *Builder {
	b.helper = helper
	return b
}

// SetFactory sets a ready-made Factory. It takes precedence over
// SetActionHelper.
func (b *Builder) SetFactory(f *action.Factory) *Builder {
	b.factory = f
	return b
}

// SetStoreMap sets the store constructors. The map is copied.
func (b *Builder) SetStoreMap(stores map[StoreKind]Constructor) *Builder {
	if stores == nil {
		b.stores = nil
		return b
	}
	b.stores = maps.Clone(stores)
	return b
}

// SetKeepCache enables the store cache.
func (b *Builder) SetKeepCache(keep bool) *Builder {
	b.keepCache = keep
	return b
}

// SetLogger sets the logger. Defaults to slog.Default().
func (b *Builder) SetLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// SetMetrics sets the metrics sink for the creator.
func (b *Builder) SetMetrics(m *metrics.Metrics) *Builder {
	b.metrics = m
	return b
}

// SetSubmitter sets where SendAsync runs, typically a *worker.Pool.
func (b *Builder) SetSubmitter(s action.Submitter) *Builder {
	b.submitter = s
	return b
}

// SetRateLimit caps Send at r actions per second.
func (b *Builder) SetRateLimit(r rate.Limit, burst int) *Builder {
	b.limit = r
	b.burst = burst
	return b
}

// Build validates the inputs and creates the Context.
func (b *Builder) Build() (*Context, error) {
	if b.bus == nil {
		return nil, &ConfigurationError{Field: "bus", Err: ErrMissingBus}
	}
	if b.helper == nil && b.factory == nil {
		return nil, &ConfigurationError{Field: "action helper", Err: ErrMissingActionHelper}
	}
	if b.stores == nil {
		return nil, &ConfigurationError{Field: "store map", Err: ErrMissingStoreMap}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := b.factory
	if factory == nil {
		factory = action.NewFactory(b.helper)
	}

	opts := []action.CreatorOption{
		action.WithCreatorLogger(logger),
		action.WithCreatorMetrics(b.metrics),
		action.WithSubmitter(b.submitter),
	}
	if b.limit > 0 && b.limit != rate.Inf {
		opts = append(opts, action.WithRateLimit(b.limit, max(b.burst, 1)))
	}

	return &Context{
		bus:       b.bus,
		creator:   action.NewCreator(factory, b.bus, opts...),
		stores:    b.stores,
		keepCache: b.keepCache,
		logger:    logger.With("bus", b.bus.Name()),
		byTag:     make(map[any]store.Store),
		defaults:  make(map[StoreKind]store.Store),
	}, nil
}
