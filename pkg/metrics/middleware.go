package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// EchoMiddleware создает middleware для записи HTTP метрик
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Путь роута, а не конкретный URL - иначе кардинальность взорвется
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}

			RecordHTTPRequest(route, c.Request().Method, strconv.Itoa(status), time.Since(start))

			return err
		}
	}
}

// OpenSearchInterceptor обертка для OpenSearch операций
func OpenSearchInterceptor(operation, index string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)
	status := StatusFromError(err)

	RecordOpenSearchOperation(operation, index, status, duration)
	return err
}
