package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/config"
	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/registry"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/worker"
)

// runtime is a demo Context built from a config file.
type runtime struct {
	ctx    *registry.Context
	bus    bus.Bus
	pool   *worker.Pool
	helper *demo.Helper
}

// newRuntime wires the configured bus and pool to a Context serving the
// demo stores.
func newRuntime(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*runtime, error) {
	actions, err := cfg.NewBus(
		bus.WithName("actions"),
		bus.WithLogger(logger),
		bus.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: %w", err)
	}

	pool, err := cfg.NewPool(worker.WithPoolLogger(logger))
	if err != nil {
		actions.Close()
		return nil, fmt.Errorf("pool: %w", err)
	}
	if err := pool.Start(); err != nil {
		actions.Close()
		return nil, fmt.Errorf("pool: %w", err)
	}
	if err := m.RegisterQueue("workers", pool); err != nil {
		_ = pool.Stop(context.Background())
		actions.Close()
		return nil, err
	}

	helper := demo.NewHelper(nil)
	limit, burst := cfg.Limit()
	ctx, err := registry.NewBuilder().
		SetBus(actions).
		SetActionHelper(helper).
		SetStoreMap(demo.StoreMap(
			store.WithExecutor(pool),
			store.WithLogger(logger),
			store.WithMetrics(m),
		)).
		SetKeepCache(cfg.KeepCache).
		SetSubmitter(pool).
		SetRateLimit(limit, burst).
		SetLogger(logger).
		SetMetrics(m).
		Build()
	if err != nil {
		_ = pool.Stop(context.Background())
		actions.Close()
		return nil, err
	}
	return &runtime{ctx: ctx, bus: actions, pool: pool, helper: helper}, nil
}

// settle waits until every posted action has been applied. Without
// keep-cache the Context does not track the stores it builds, so callers
// pass the ones they hold.
func (r *runtime) settle(ctx context.Context, stores ...store.Store) error {
	if b, ok := r.bus.(*bus.Buffered); ok {
		if err := b.Drain(ctx); err != nil {
			return err
		}
	}
	for _, st := range stores {
		if err := st.Wait(ctx); err != nil {
			return err
		}
	}
	return r.ctx.Wait(ctx)
}

func (r *runtime) close() {
	r.ctx.Close()
	r.bus.Close()
	_ = r.pool.Stop(context.Background())
}
