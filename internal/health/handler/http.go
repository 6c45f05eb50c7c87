package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// pingTimeout bounds each dependency ping during a readiness check.
const pingTimeout = 2 * time.Second

// Pinger is used for readiness (e.g. *sql.DB, *cache.RedisCache).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports readiness by pinging named dependencies.
type Checker struct {
	pingers map[string]Pinger
	logger  *zap.Logger
	now     func() time.Time
}

// NewChecker returns a Checker over pingers. Nil pingers are skipped. A nil logger discards logs.
func NewChecker(pingers map[string]Pinger, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ps := make(map[string]Pinger, len(pingers))
	for name, p := range pingers {
		if p != nil {
			ps[name] = p
		}
	}
	return &Checker{pingers: ps, logger: logger.Named("health"), now: func() time.Time { return time.Now().UTC() }}
}

// Check pings every dependency and returns the failing ones by name. An empty result means ready.
func (c *Checker) Check(ctx context.Context) map[string]string {
	failed := map[string]string{}
	names := make([]string, 0, len(c.pingers))
	for name := range c.pingers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.pingers[name].PingContext(pctx)
		cancel()
		if err != nil {
			c.logger.Warn("dependency not ready", zap.String("dependency", name), zap.Error(err))
			failed[name] = "unavailable"
		}
	}
	return failed
}

// Register mounts /health, /health/live and /health/ready on r.
func (c *Checker) Register(r gin.IRouter) {
	g := r.Group("/health")
	g.GET("", c.Live)
	g.GET("/live", c.Live)
	g.GET("/ready", c.Ready)
}

// Live always answers 200 while the process serves requests.
func (c *Checker) Live(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "Healthy", "timestamp": c.now()})
}

// Ready answers 200 when every dependency responds, otherwise 503 with the failing ones.
func (c *Checker) Ready(ctx *gin.Context) {
	failed := c.Check(ctx.Request.Context())
	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NotReady", "failed": failed, "timestamp": c.now()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "Ready", "timestamp": c.now()})
}
