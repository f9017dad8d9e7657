package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives request metrics. *observability.Metrics satisfies it.
type HTTPRecorder interface {
	ObserveHTTPRequest(route, method, code string, d time.Duration)
}

// Metrics records one observation per request, labelled by the matched
// route template so that path parameters don't explode cardinality
func Metrics(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		recorder.ObserveHTTPRequest(routeLabel(c), c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
