package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/chat"
	"docinsight-backend/internal/dashboard"
	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/reports"
	"docinsight-backend/internal/services/health"
	"docinsight-backend/internal/shared/config"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/users"
)

const (
	RateGroupDefault = "DEFAULT"
	RateGroupUpload  = "UPLOAD"
	RateGroupChat    = "CHAT"
)

// RouterDeps lists the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config    config.Config
	Health    *health.Handler
	Users     *users.Handler
	Documents *documents.Handler
	Chat      *chat.Handler
	Dashboard *dashboard.Handler
	Reports   *reports.Handler
	Limiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth())
	if deps.Users != nil {
		authed.Use(deps.Users.Track())
	}
	authed.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rateRules(deps.Config),
		DefaultGroup: RateGroupDefault,
		GroupFor:     rateGroup,
		Limiter:      deps.Limiter,
	}))

	if deps.Users != nil {
		deps.Users.RegisterRoutes(authed)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(authed)
	}
	if deps.Chat != nil {
		deps.Chat.RegisterRoutes(authed)
	}
	if deps.Dashboard != nil {
		deps.Dashboard.RegisterRoutes(authed)
	}
	if deps.Reports != nil {
		deps.Reports.RegisterRoutes(authed)
	}

	return r
}

func rateRules(cfg config.Config) map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		RateGroupDefault: {Rate: cfg.RateLimitDefaultRPS, Burst: cfg.RateLimitDefaultBurst},
		RateGroupUpload:  {Rate: cfg.RateLimitUploadRPS, Burst: cfg.RateLimitUploadBurst},
		RateGroupChat:    {Rate: cfg.RateLimitChatRPS, Burst: cfg.RateLimitChatBurst},
	}
}

// rateGroup buckets uploads and chat sends separately from reads.
func rateGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return RateGroupDefault
	}
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/documents"):
		return RateGroupUpload
	case strings.HasSuffix(path, "/chat"):
		return RateGroupChat
	default:
		return RateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
