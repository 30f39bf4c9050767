package middleware

import (
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/didip/tollbooth_gin"
	"github.com/gin-gonic/gin"
)

// RateLimit limits requests per client IP to perSecond. A non-positive rate
// disables limiting. The client IP is the connection's remote address unless
// proxyHeader names a header set by a trusted reverse proxy.
func RateLimit(perSecond float64, message, proxyHeader string) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lookups := []string{"RemoteAddr"}
	if proxyHeader != "" {
		lookups = []string{proxyHeader, "RemoteAddr"}
	}
	lmt.SetIPLookups(lookups)
	lmt.SetMessage(`{"error":"` + message + `","code":"RATE_LIMITED"}`)
	lmt.SetMessageContentType("application/json; charset=utf-8")
	return tollbooth_gin.LimitHandler(lmt)
}
