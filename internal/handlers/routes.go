package handlers

import (
	"github.com/gin-gonic/gin"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
)

func with(app *App, h func(*App, *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) { h(app, c) }
}

// Register mounts every game route on r. limit guards the state-changing
// POST routes; pass nil to skip rate limiting.
func Register(r gin.IRouter, app *App, limit gin.HandlerFunc) {
	post := func(path string, h func(*App, *gin.Context)) {
		if limit != nil {
			r.POST(path, limit, with(app, h))
			return
		}
		r.POST(path, with(app, h))
	}

	r.GET(constants.RouteHome, with(app, HomeHandler))
	r.GET(constants.RouteState, with(app, StateHandler))
	r.GET(constants.RouteMap, with(app, MapHandler))
	r.GET(constants.RouteLeaderboard, with(app, LeaderboardHandler))
	r.GET(constants.RouteWebSocket, with(app, WebSocketHandler))
	r.GET(constants.RouteHealthz, with(app, HealthzHandler))

	post(constants.RouteLogin, LoginHandler)
	post(constants.RouteStart, StartHandler)
	post(constants.RouteGuess, GuessHandler)
	post(constants.RouteSubmit, SubmitHandler)
	post(constants.RouteNext, NextHandler)
	post(constants.RouteSave, SaveHandler)
	post(constants.RouteLogout, LogoutHandler)
	post(constants.RoutePlayAgain, LogoutHandler)
	post(constants.RouteAdminReset, AdminResetHandler)
}
