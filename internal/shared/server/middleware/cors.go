package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/respond"
)

const (
	corsAllowMethods  = "GET,POST,DELETE,OPTIONS"
	corsAllowHeaders  = "Content-Type, X-Guest-Id, X-User-Id, X-User-Name, X-Request-Id"
	corsExposeHeaders = "X-Request-Id, Retry-After, Content-Disposition"
	corsMaxAgeSeconds = 600
)

// originMatcher matches exact origins, "*" and single-label subdomain
// wildcards such as "https://*.example.com".
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []struct{ scheme, suffix string }
}

func newOriginMatcher(allowed []string) originMatcher {
	m := originMatcher{exact: map[string]struct{}{}}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(strings.ToLower(o), "://*")
			m.suffixes = append(m.suffixes, struct{ scheme, suffix string }{scheme + "://", host})
		default:
			m.exact[strings.ToLower(o)] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if m.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, s := range m.suffixes {
		rest, ok := strings.CutPrefix(origin, s.scheme)
		if !ok {
			continue
		}
		label, ok := strings.CutSuffix(rest, s.suffix)
		if ok && label != "" && !strings.ContainsAny(label, "./:") {
			return true
		}
	}
	return false
}

// CORS lets the configured browser origins call the API with credentials.
// Preflights from other origins are refused; plain requests from them pass
// through without CORS headers so the browser blocks the response.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := newOriginMatcher(allowedOrigins)
	maxAge := strconv.Itoa(corsMaxAgeSeconds)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := origins.allows(origin)
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if allowed {
			// Credentials forbid a literal "*", so the origin is echoed.
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		if preflight {
			if origin != "" && !allowed {
				respond.Error(c, http.StatusForbidden, "CORS_ORIGIN_DENIED", "origin not allowed", gin.H{"origin": origin})
				return
			}
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
