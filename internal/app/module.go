// Package app composes the application's components into an fx module
// shared by every CLI command.
package app

import (
	"github.com/skyhist/skypemerge/internal/bus"
	"github.com/skyhist/skypemerge/internal/config"
	"github.com/skyhist/skypemerge/internal/history"
	"github.com/skyhist/skypemerge/internal/logging"
	"github.com/skyhist/skypemerge/internal/merge"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	ConfigPath  string
	LogPath     string // optional override for testing; empty = config or default
	HistoryPath string // optional override for testing; empty = config or default
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideHistory,
			provideCoordinator,
		),
		fx.Invoke(watchBus),
	)
}

// watchBus mirrors merge events into the debug log. The bus is the
// embedding hook for frontends other than the CLI; this keeps one
// consumer attached so sessions leave a trace either way.
func watchBus(b *bus.Bus, logger *zap.Logger, lc fx.Lifecycle) {
	events, unsubscribe := b.Subscribe("merge.", 64)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case evt := <-events:
				fields := []zap.Field{zap.String("kind", evt.Kind)}
				if s, ok := evt.Payload.(merge.Summary); ok {
					fields = append(fields,
						zap.Int("chats", s.Chats), zap.Int("messages", s.Messages))
				}
				logger.Debug("bus event", fields...)
			case <-stop:
				return
			}
		}
	}()
	lc.Append(fx.StopHook(func() {
		unsubscribe()
		close(stop)
	}))
}

func provideConfig(p Params) (*config.Config, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}
	path := p.ConfigPath
	if path == "" {
		path = config.ConfigPath()
	}
	return config.Resolve(path), nil
}

func provideLogger(p Params, cfg *config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	path := p.LogPath
	if path == "" {
		path = cfg.LogPath
	}
	if path == "" {
		path = config.LogPath()
	}
	logger, err := logging.New(path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideHistory(p Params, cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) (*history.Store, error) {
	path := p.HistoryPath
	if path == "" {
		path = cfg.HistoryPath
	}
	if path == "" {
		path = config.HistoryPath()
	}
	journal, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Info("session journal opened", zap.String("path", path))
	lc.Append(fx.StopHook(func() error {
		return journal.Close()
	}))
	return journal, nil
}

func provideCoordinator(cfg *config.Config, b *bus.Bus, journal *history.Store, logger *zap.Logger) *merge.Coordinator {
	return merge.NewCoordinator(cfg, b, journal, logger)
}
