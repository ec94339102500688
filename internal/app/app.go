// Package app wires storage, services, and Telegram handlers into a
// runnable bot.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/memobot/core/config"
	"github.com/m3rciful/memobot/core/logger"
	coretelegram "github.com/m3rciful/memobot/core/telegram"
	"github.com/m3rciful/memobot/core/telegram/commands"
	tghelpers "github.com/m3rciful/memobot/core/telegram/helpers"
	"github.com/m3rciful/memobot/core/telegram/middleware"
	"github.com/m3rciful/memobot/core/telegram/router"
	"github.com/m3rciful/memobot/core/telegram/state"
	"github.com/m3rciful/memobot/internal/bot"
	"github.com/m3rciful/memobot/internal/domain"
	"github.com/m3rciful/memobot/internal/session"
	"github.com/m3rciful/memobot/internal/stats"
	"github.com/m3rciful/memobot/internal/storage"
)

// App bundles the configured bot and its registry.
type App struct {
	cfg      *coreconfig.Config
	registry *coretelegram.Registry
	handlers *bot.Handlers
	sessions *session.Manager
	fsm      state.Manager
}

// New wires repositories, the session registry, and all handlers.
func New(cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	users := storage.NewUserRepo(db)
	records := storage.NewRecordRepo(db)
	statsSvc := stats.NewService(records)
	sessions := session.NewManager(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	fsm := state.NewMemoryManager()

	handlers := bot.NewHandlers(users, records, statsSvc, sessions, fsm)
	handlers.RegisterProfileInputs()

	app := &App{
		cfg:      cfg,
		registry: coretelegram.NewRegistry(),
		handlers: handlers,
		sessions: sessions,
		fsm:      fsm,
	}
	app.registerRoutes()
	return app, nil
}

func (a *App) registerRoutes() {
	reg := a.registry
	h := a.handlers

	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "开始使用",
	})
	reg.RegisterCommand("/timezone", commands.Command{
		Handler:     h.Timezone,
		Description: "设置时区",
	})
	reg.RegisterCommand("/do", commands.Command{
		Handler:     h.Do,
		Description: "记录一次",
	})
	reg.RegisterCommand("/week", commands.Command{
		Handler:     h.Week,
		Description: "最近7天统计",
	})
	reg.RegisterCommand("/month", commands.Command{
		Handler:     h.Month,
		Description: "最近30天统计",
	})
	reg.RegisterCommand("/me", commands.Command{
		Handler:     h.Me,
		Description: "我的信息",
	})
	reg.RegisterCommand("/sweep", commands.Command{
		Handler:     h.Sweep,
		Description: "清理过期会话",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(string(domain.ActionRating), h.SessionAction(domain.ActionRating))
	_ = reg.RegisterCallback(string(domain.ActionDuration), h.SessionAction(domain.ActionDuration))
	_ = reg.RegisterCallback(string(domain.ActionVolume), h.SessionAction(domain.ActionVolume))
	_ = reg.RegisterCallback(string(domain.ActionViscosity), h.SessionAction(domain.ActionViscosity))
	_ = reg.RegisterCallback(string(domain.ActionCancel), h.Cancel)
	_ = reg.RegisterCallback(string(domain.ActionUndo), h.Undo)
	_ = reg.RegisterCallback("tz", h.TimezoneSelect)
	_ = reg.RegisterCallback("tzp", h.TimezonePage)
	_ = reg.RegisterCallback("tzc", h.TimezoneCancel)
	_ = reg.RegisterCallback("me", h.ProfileAction)

	reg.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "不支持的操作"})
	})
}

// TelegramRunOptions assembles middlewares, routes, and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	middlewares := coretelegram.DefaultMiddlewares(a.cfg, nil)
	middlewares = append(middlewares, coretelegram.Middleware{
		Name: "private_only",
		Use: middleware.PrivateOnlyMiddleware(middleware.PrivateOnlyOptions{
			OnReject: func(c tele.Context) error {
				if c.Callback() != nil {
					return c.Respond()
				}
				return tghelpers.SendText(c, "仅支持在私聊中使用，请切换到与机器人的私聊窗口。")
			},
		}),
	})

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.fsm, a.registry, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: middlewares,
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			go a.sweepLoop(ctx)
			return nil
		},
	}, nil
}

// sweepLoop expires stale sessions on a fixed interval until shutdown.
func (a *App) sweepLoop(ctx context.Context) {
	interval := time.Duration(a.cfg.Session.SweepIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.sessions.Sweep(); removed > 0 {
				logger.Info(ctx, "sessions", "session.sweep",
					slog.Int("removed", removed),
					slog.Int("total", a.sessions.Len()),
				)
			}
		}
	}
}
