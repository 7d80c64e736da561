package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

// Leaflet and its marker icons come from public CDNs; map tiles from OSM.
var cspTemplate = "default-src 'self'; script-src 'self' https://unpkg.com https://cdnjs.cloudflare.com 'unsafe-inline'; style-src 'self' https://unpkg.com https://cdnjs.cloudflare.com 'unsafe-inline'; img-src 'self' data: https://*.tile.openstreetmap.org https://tile.openstreetmap.org https://unpkg.com https://cdnjs.cloudflare.com https://raw.githubusercontent.com; connect-src 'self' ws: wss:; object-src 'none'; base-uri 'self'; form-action 'self'; frame-ancestors 'none';"

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		origin := scheme + "://" + c.Request.Host
		csp := strings.ReplaceAll(cspTemplate, "'self'", "'"+origin+"'")
		c.Header("Content-Security-Policy", csp)
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}
		c.Next()
	}
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool hands out one token bucket per client IP.
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     int
	burst   int
	ttl     time.Duration
}

func newLimiterPool(rps, burst int, ttl time.Duration) *limiterPool {
	if rps <= 0 {
		rps = 1
	}
	return &limiterPool{
		entries: make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}
	if key == "" || key == "::1" {
		util.LogWarn("Rate limiter key is empty or loopback: %q", key)
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(p.rps)), p.burst)
	p.entries[key] = &limiterEntry{limiter: lim, lastAccess: time.Now()}
	return lim
}

func (p *limiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *limiterPool) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoffTime := time.Now().Add(-p.ttl)
	removedCount := 0
	for key, entry := range p.entries {
		if entry.lastAccess.Before(cutoffTime) {
			delete(p.entries, key)
			removedCount++
		}
	}

	if len(p.entries) > 50000 {
		util.LogInfo("Rate limiter map too large (%d entries), performing emergency cleanup", len(p.entries))
		type limiterInfo struct {
			key        string
			lastAccess time.Time
		}
		limiters := make([]limiterInfo, 0, len(p.entries))
		for key, entry := range p.entries {
			limiters = append(limiters, limiterInfo{key: key, lastAccess: entry.lastAccess})
		}
		sort.Slice(limiters, func(i, j int) bool {
			return limiters[i].lastAccess.Before(limiters[j].lastAccess)
		})
		for _, l := range limiters[:len(limiters)/2] {
			delete(p.entries, l.key)
			removedCount++
		}
	}

	if removedCount > 0 {
		util.LogInfo("Cleaned up %d stale rate limiters", removedCount)
	}
}

func (p *limiterPool) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "message": "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Request.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), constants.RequestIDKey, reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

// validateCSRFMiddleware applies to state-changing requests. The admin
// reset route authenticates with its own header and is exempt.
func validateCSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		unsafe := method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete || method == http.MethodPatch
		if unsafe && c.Request.URL.Path != constants.RouteAdminReset {
			cookie, _ := c.Cookie(constants.CSRFCookieName)
			token := c.GetHeader("X-CSRF-Token")
			if token == "" {
				token = c.PostForm("csrf_token")
			}
			if token == "" || cookie == "" || token != cookie {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": constants.ErrorCodeForbidden, "message": "invalid csrf token"})
				return
			}
		}
		c.Next()
	}
}

func csrfMiddleware(cookieMaxAge time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(constants.CSRFCookieName)
		if err != nil || len(token) < 8 {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err == nil {
				token = fmt.Sprintf("%x", b)
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(constants.CSRFCookieName, token, int(cookieMaxAge.Seconds()), "/", "", secure, false)
			}
		}
		c.Set("csrf_token", token)
		c.Next()
	}
}

func cacheHeadersMiddleware(production bool, staticAge time.Duration) gin.HandlerFunc {
	static := cachecontrol.New(cachecontrol.Config{
		Public: true,
		MaxAge: cachecontrol.Duration(staticAge),
	})
	noStore := cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})
	return func(c *gin.Context) {
		if production && strings.HasPrefix(c.Request.URL.Path, "/static/") {
			static(c)
			c.Header("Vary", "Accept-Encoding")
			return
		}
		noStore(c)
	}
}
