// pkg/middleware/logger.go

package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/pkg/metrics"
	"crm-system/pkg/utils"
)

// InjectLogger stores a request-scoped logger tagged with a request id.
func InjectLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.Set("logger", logger.With(zap.String("requestId", requestID)))
			c.SetRequest(c.Request().WithContext(utils.WithRequestID(c.Request().Context(), requestID)))
			return next(c)
		}
	}
}

// RequestLogger logs each request and records its latency.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			elapsed := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if m != nil {
				m.ObserveHTTP(c.Request().Method, route, strconv.Itoa(status), elapsed)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("requestId", utils.RequestIDFromCtx(c.Request().Context())),
			)
			return nil
		}
	}
}
