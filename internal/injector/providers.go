package injector

import (
	"context"
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/planar/internal/config"
	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/storage"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
	"github.com/zeusync/planar/internal/core/systems/resolver"
	"github.com/zeusync/planar/internal/server"
)

// ConfigPath is the YAML configuration file; empty means defaults.
type ConfigPath string

// Core is everything a host needs around a loaded scene.
type Core struct {
	Config    *config.Config
	Logger    log.Log
	Events    bus.EventBus
	Scene     *scene.Scene
	Persister *storage.Persister
}

// Close flushes pending poses and syncs the logger.
func (c *Core) Close(ctx context.Context) error {
	err := c.Persister.Close(ctx)
	_ = c.Logger.Sync()
	return err
}

// App is the websocket server application.
type App struct {
	*Core
	Server *server.Server
}

var CoreSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideEventBus,
	ProvideStore,
	ProvideResolver,
	ProvideScene,
	ProvidePersister,
	wire.Struct(new(Core), "*"),
)

func ProvideConfig(path ConfigPath) (*config.Config, error) {
	return config.Load(string(path))
}

func ProvideLogger(cfg *config.Config) (log.Log, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return log.NewWithOptions(log.Options{
		Level:    level,
		Encoding: cfg.Log.Encoding,
		Output:   cfg.Log.Output,
	})
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

// ProvideStore opens the store for poses and text boxes.
func ProvideStore(cfg *config.Config) (interfaces.SceneStore, error) {
	switch cfg.Store.Kind {
	case "file":
		return storage.OpenFileStore(cfg.Store.Path)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func ProvideResolver(cfg *config.Config) *resolver.Resolver {
	return resolver.New(cfg.Resolver())
}

// ProvideScene loads both bodies from the store, seeding the configured
// layout into an empty one.
func ProvideScene(
	ctx context.Context,
	cfg *config.Config,
	store interfaces.SceneStore,
	r *resolver.Resolver,
	events bus.EventBus,
	logger log.Log,
) (*scene.Scene, error) {
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()
	return scene.Load(loadCtx, store, cfg.StaticBounds(), cfg.Geometry(), cfg.BodySpecs(), r,
		scene.WithEvents(events),
		scene.WithLogger(logger),
	)
}

// ProvidePersister writes the scene's commits back to the store.
func ProvidePersister(
	cfg *config.Config,
	store interfaces.SceneStore,
	sc *scene.Scene,
	events bus.EventBus,
	logger log.Log,
) (*storage.Persister, error) {
	p := storage.NewPersister(store,
		storage.WithDebounce(cfg.Store.Debounce),
		storage.WithWriteTimeout(cfg.Store.Timeout),
		storage.WithLogger(logger),
		storage.WithEvents(events),
	)
	if _, err := sc.PersistCommits(p); err != nil {
		return nil, err
	}
	return p, nil
}

func ProvideServer(cfg *config.Config, sc *scene.Scene, store interfaces.SceneStore, logger log.Log) (*server.Server, error) {
	return server.NewServer(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		TickInterval: cfg.Server.TickInterval,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadLimit:    cfg.Server.ReadLimit,
	}, sc, store, logger)
}
