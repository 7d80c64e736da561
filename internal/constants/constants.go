package constants

import "time"

type contextKey string

const (
	TotalRounds     = 5
	RoundTimeLimit  = 60
	TimerWarningAt  = 10
	MaxRoundPoints  = 1000
	PointsPerMeter  = 5
	LeaderboardSize = 5
	EarthRadius     = 6371000.0
	DefaultTick     = time.Second
)

// PittEmailPattern matches local-part@pitt.edu; the domain is case-insensitive.
const PittEmailPattern = `^[a-zA-Z0-9._%+-]+@(?i:pitt\.edu)$`

const (
	LeaderboardKey = "upjGeoguesserLeaderboard"
	UsedEmailsKey  = "upjGeoguesserUsedEmails"
)

const (
	SessionCookieName = "session_id"
	CSRFCookieName    = "csrf_token"
)

const (
	RouteHome        = "/"
	RouteState       = "/state"
	RouteLogin       = "/login"
	RouteStart       = "/start"
	RouteGuess       = "/guess"
	RouteSubmit      = "/submit"
	RouteNext        = "/next"
	RouteSave        = "/save"
	RouteLogout      = "/logout"
	RoutePlayAgain   = "/play-again"
	RouteMap         = "/map"
	RouteLeaderboard = "/leaderboard"
	RouteAdminReset  = "/admin/reset-emails"
	RouteWebSocket   = "/ws"
	RouteHealthz     = "/healthz"
)

const (
	ErrorCodeInvalidEmailFormat = "invalid_email_format"
	ErrorCodeEmailAlreadyUsed   = "email_already_used"
	ErrorCodeNameRequired       = "name_required"
	ErrorCodeNoGuess            = "no_guess"
	ErrorCodeInvalidTransition  = "invalid_transition"
	ErrorCodeInvalidCoordinates = "invalid_coordinates"
	ErrorCodeStorage            = "storage_error"
	ErrorCodeForbidden          = "forbidden"
)

const (
	RequestIDKey contextKey = "request_id"
)
