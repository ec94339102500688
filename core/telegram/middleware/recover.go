package middleware

import (
	"runtime/debug"

	"github.com/m3rciful/memobot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				attrs := []slog.Attr{
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				}
				if sender := c.Sender(); sender != nil {
					attrs = append(attrs, slog.Int64("user_id", sender.ID))
				}
				logger.TG.LogAttrs(logger.Background(), slog.LevelError, "panic recovered", attrs...)
			}
		}()
		return next(c)
	}
}
