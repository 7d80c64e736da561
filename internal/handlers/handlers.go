package handlers

import (
	"crypto/subtle"
	"errors"
	"math"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"

	catalog "github.com/CodeAndHammer/upjguesser/internal/catalog"
	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	game "github.com/CodeAndHammer/upjguesser/internal/game"
	geo "github.com/CodeAndHammer/upjguesser/internal/geo"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	leaderboard "github.com/CodeAndHammer/upjguesser/internal/leaderboard"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
	session "github.com/CodeAndHammer/upjguesser/internal/session"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

const pageTitle = "UPJ GeoGuesser"

type App struct {
	Sessions       *session.Manager
	Leaderboard    *leaderboard.Store
	Catalog        *catalog.Catalog
	IsProduction   bool
	StartTime      time.Time
	AdminToken     string
	ActiveLimiters func() int
}

type LeaderboardRow struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Current bool   `json:"current,omitempty"`
}

type StateResponse struct {
	game.Snapshot
	Leaderboard []LeaderboardRow `json:"leaderboard,omitempty"`
}

type MapResponse struct {
	View      models.MapView             `json:"view"`
	Clickable bool                       `json:"clickable"`
	Overlay   *geojson.FeatureCollection `json:"overlay"`
}

type loginRequest struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

type guessRequest struct {
	Lat *float64 `form:"lat" json:"lat" binding:"required"`
	Lon *float64 `form:"lon" json:"lon" binding:"required"`
}

func engineFor(app *App, c *gin.Context) *game.Engine {
	sessionID := app.Sessions.GetOrCreateSession(c)
	return app.Sessions.Engine(c.Request.Context(), sessionID)
}

// leaderboardRows marks the row of a player whose saved score made the board.
func leaderboardRows(app *App, s game.State) []LeaderboardRow {
	current := 0
	if s.LeaderboardShown {
		current = app.Leaderboard.Rank(s.Player.Email, s.Total)
	}
	return lo.Map(app.Leaderboard.Entries(), func(e models.LeaderboardEntry, i int) LeaderboardRow {
		return LeaderboardRow{
			Rank:    i + 1,
			Name:    e.Name,
			Score:   e.Score,
			Current: i+1 == current,
		}
	})
}

func buildState(app *App, s game.State) StateResponse {
	resp := StateResponse{Snapshot: game.NewSnapshot(s)}
	if s.Phase == game.PhaseLogin || s.LeaderboardShown {
		resp.Leaderboard = leaderboardRows(app, s)
	}
	return resp
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// respond writes the post-event state, or maps err to a status and code.
func respond(app *App, c *gin.Context, e *game.Engine, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, buildState(app, e.State()))
	case identity.Code(err) != "":
		writeError(c, http.StatusUnprocessableEntity, identity.Code(err), identity.Message(err))
	case errors.Is(err, game.ErrNoGuess):
		writeError(c, http.StatusUnprocessableEntity, constants.ErrorCodeNoGuess, "Click the map to place a guess first")
	case errors.Is(err, game.ErrInvalidTransition):
		writeError(c, http.StatusConflict, constants.ErrorCodeInvalidTransition, err.Error())
	default:
		util.LogWarnCtx(c.Request.Context(), "Request failed: %v", err)
		writeError(c, http.StatusInternalServerError, constants.ErrorCodeStorage, "Could not save, please try again")
	}
}

func HomeHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	csrfToken, _ := c.Get("csrf_token")
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":      pageTitle,
		"state":      buildState(app, e.State()),
		"view":       app.Catalog.View(),
		"csrf_token": csrfToken,
	})
}

func StateHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	c.JSON(http.StatusOK, buildState(app, e.State()))
}

func LoginHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, constants.ErrorCodeInvalidEmailFormat, "invalid login form")
		return
	}
	respond(app, c, e, e.Login(c.Request.Context(), req.Name, req.Email))
}

func StartHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	respond(app, c, e, e.Start(c.Request.Context()))
}

func GuessHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	var req guessRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, constants.ErrorCodeInvalidCoordinates, "lat and lon must be numbers")
		return
	}
	if !finite(*req.Lat) || !finite(*req.Lon) {
		writeError(c, http.StatusBadRequest, constants.ErrorCodeInvalidCoordinates, "lat and lon must be finite")
		return
	}
	respond(app, c, e, e.Guess(geo.Point(*req.Lat, *req.Lon)))
}

func SubmitHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	respond(app, c, e, e.Submit(c.Request.Context()))
}

func NextHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	respond(app, c, e, e.Next(c.Request.Context()))
}

func SaveHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	respond(app, c, e, e.Save(c.Request.Context()))
}

// LogoutHandler also serves play-again: an email can only play once, so
// both return to the login screen.
func LogoutHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	e.Logout(c.Request.Context())
	respond(app, c, e, nil)
}

func MapHandler(app *App, c *gin.Context) {
	e := engineFor(app, c)
	s := e.State()

	resp := MapResponse{View: app.Catalog.View(), Overlay: geojson.NewFeatureCollection()}
	switch s.Phase {
	case game.PhaseGuessing:
		resp.Clickable = true
		resp.Overlay = geo.GuessOverlay(s.Guess)
	case game.PhaseResult:
		if r := s.LastResult(); r != nil {
			resp.Overlay = geo.Overlay(r.Actual, r.LocationName, r.Guess)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func LeaderboardHandler(app *App, c *gin.Context) {
	var s game.State
	if sessionID, err := c.Cookie(constants.SessionCookieName); err == nil {
		if e, ok := app.Sessions.Lookup(sessionID); ok {
			s = e.State()
		}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": leaderboardRows(app, s)})
}

func AdminResetHandler(app *App, c *gin.Context) {
	if app.AdminToken != "" {
		token := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(app.AdminToken)) != 1 {
			writeError(c, http.StatusForbidden, constants.ErrorCodeForbidden, "admin token required")
			return
		}
	}
	if err := app.Leaderboard.ResetUsedEmails(c.Request.Context()); err != nil {
		util.LogWarnCtx(c.Request.Context(), "Used-email reset failed: %v", err)
		writeError(c, http.StatusInternalServerError, constants.ErrorCodeStorage, "Could not reset used emails")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "All used emails have been reset except for the leaderboard entries.",
		"usedEmails": len(app.Leaderboard.UsedEmails()),
	})
}

func HealthzHandler(app *App, c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	limiterCount := 0
	if app.ActiveLimiters != nil {
		limiterCount = app.ActiveLimiters()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"env":              map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"locations_loaded": app.Catalog.Len(),
		"leaderboard_size": len(app.Leaderboard.Entries()),
		"used_emails":      len(app.Leaderboard.UsedEmails()),
		"active_sessions":  app.Sessions.Count(),
		"active_limiters":  limiterCount,
		"memory_alloc_mb":  m.Alloc / 1024 / 1024,
		"memory_sys_mb":    m.Sys / 1024 / 1024,
		"memory_gc_count":  m.NumGC,
		"uptime":           util.FormatUptime(time.Since(app.StartTime)),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
