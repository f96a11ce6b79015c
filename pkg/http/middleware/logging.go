package middleware

import (
	"time"

	applogger "StockSignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one structured line per request. Requests slower than
// slow are logged at warn level; zero disables the check.
func RequestLogging(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			took := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", status),
				applogger.Duration("duration_ms", took),
			}
			switch {
			case status >= 500:
				l.Error("http request", fields...)
			case status >= 400:
				l.Warn("http request", fields...)
			case slow > 0 && took > slow:
				l.Warn("slow http request", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
