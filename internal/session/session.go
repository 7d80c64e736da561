package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	game "github.com/CodeAndHammer/upjguesser/internal/game"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

// Manager maps browser session cookies to their game engines.
type Manager struct {
	mu        sync.RWMutex
	engines   map[string]*game.Engine
	newEngine func() *game.Engine

	CookieMaxAge time.Duration
	Secure       bool
	TTL          time.Duration
}

func NewManager(newEngine func() *game.Engine, cookieMaxAge, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		engines:      make(map[string]*game.Engine),
		newEngine:    newEngine,
		CookieMaxAge: cookieMaxAge,
		Secure:       secure,
		TTL:          ttl,
	}
}

func (m *Manager) GetOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(constants.SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(constants.SessionCookieName, sessionID, int(m.CookieMaxAge.Seconds()), "/", "", m.Secure, true)
		util.LogInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// Engine returns the engine for sessionID, creating one in the Login phase
// if the session is new or has expired.
func (m *Manager) Engine(ctx context.Context, sessionID string) *game.Engine {
	m.mu.RLock()
	e, exists := m.engines[sessionID]
	m.mu.RUnlock()
	if exists {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, exists = m.engines[sessionID]; exists {
		return e
	}
	util.LogInfoCtx(ctx, "Creating new game for session: %s", sessionID)
	e = m.newEngine()
	m.engines[sessionID] = e
	return e
}

// Lookup returns the engine for sessionID without creating one.
func (m *Manager) Lookup(sessionID string) (*game.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[sessionID]
	return e, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}

func (m *Manager) CleanupExpiredSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.TTL)
	expiredCount := 0
	for sessionID, e := range m.engines {
		if e.LastActive().Before(cutoff) {
			e.Close()
			delete(m.engines, sessionID)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		util.LogInfo("Cleaned up %d expired sessions", expiredCount)
	}
}

func (m *Manager) StartSessionCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupExpiredSessions()
			}
		}
	}()
	util.LogInfo("Started session cleanup goroutine")
}

// CloseAll stops every engine's timer. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sessionID, e := range m.engines {
		e.Close()
		delete(m.engines, sessionID)
	}
}
