// Package bot wires the conversation flow onto the Telegram runtime: the
// registry of commands and callbacks, the screen renderer, and the notifier
// bridging flow outbounds to telebot.
package bot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mochiserver/mochibot/core/bootstrap"
	tg "github.com/mochiserver/mochibot/core/telegram"
	"github.com/mochiserver/mochibot/core/telegram/router"
	tgsender "github.com/mochiserver/mochibot/core/telegram/sender"
	"github.com/mochiserver/mochibot/core/telegram/state"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/flow"
	"github.com/mochiserver/mochibot/internal/ledger"
)

// App is the composed application.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	sessions state.Manager
	notifier *Notifier
	flow     *flow.Router
	registry *tg.Registry
}

// Bootstrap initializes logging, storage and the flow router.
func Bootstrap(cfg *config.Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: state.NewMemoryManager(),
		notifier: NewNotifier(cfg),
	}
	a.flow = flow.NewRouter(cfg, ledger.NewPostgresStore(res.DB), a.sessions, a.notifier)
	a.registry = a.buildRegistry()
	return a, nil
}

// TelegramRunOptions assembles the runtime options for core/telegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := a.registry

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: a.cfg.Access.AdminIDs,
	})
	routes = append(routes, router.TextRoutes(&conversation{app: a}, reg, router.TextOptions{
		UnknownPhoto: a.handleIdlePhoto,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:   a.cfg.CoreConfig(),
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			MaxRetries:      3,
			RetryBackoff:    5 * time.Second,
			RetryBackoffMax: 5 * time.Minute,
			MaxDuration:     10 * time.Minute,
		},
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.notifier.Bind(rt.Bot, rt.Dispatcher)
			return nil
		},
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
