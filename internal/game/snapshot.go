package game

import (
	"fmt"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

type ResultView struct {
	Round         int      `json:"round"`
	LocationName  string   `json:"locationName"`
	Distance      *float64 `json:"distanceMeters"`
	DistanceText  string   `json:"distanceText,omitempty"`
	Points        int      `json:"points"`
	Message       string   `json:"message"`
	PointsMessage string   `json:"pointsMessage"`
}

// Snapshot is what the browser renders. The true position of the current
// location is never included while the round is open.
type Snapshot struct {
	Phase            Phase            `json:"phase"`
	Player           *identity.Player `json:"player,omitempty"`
	Round            int              `json:"round"`
	TotalRounds      int              `json:"totalRounds"`
	TotalScore       int              `json:"totalScore"`
	MaxScore         int              `json:"maxScore"`
	TimeLeft         int              `json:"timeLeft"`
	Clock            string           `json:"clock"`
	TimerActive      bool             `json:"timerActive"`
	TimerWarning     bool             `json:"timerWarning"`
	TimerGeneration  uint64           `json:"timerGeneration"`
	Image            string           `json:"image,omitempty"`
	HasGuess         bool             `json:"hasGuess"`
	Result           *ResultView      `json:"result,omitempty"`
	NextLabel        string           `json:"nextLabel,omitempty"`
	LeaderboardShown bool             `json:"leaderboardShown"`
	LoginError       string           `json:"loginError,omitempty"`
	LoginErrorCode   string           `json:"loginErrorCode,omitempty"`
}

func NewSnapshot(s State) Snapshot {
	snap := Snapshot{
		Phase:            s.Phase,
		Round:            s.Round,
		TotalRounds:      constants.TotalRounds,
		TotalScore:       s.Total,
		MaxScore:         constants.TotalRounds * constants.MaxRoundPoints,
		TimeLeft:         s.Timer.Remaining,
		Clock:            util.FormatClock(s.Timer.Remaining),
		TimerActive:      s.Timer.Running,
		TimerWarning:     s.Timer.Running && s.Timer.Remaining <= constants.TimerWarningAt,
		TimerGeneration:  s.Timer.Generation,
		HasGuess:         s.Guess != nil,
		LeaderboardShown: s.LeaderboardShown,
	}
	if s.Player.Email != "" {
		p := s.Player
		snap.Player = &p
	}
	if s.LoginErr != nil {
		snap.LoginError = identity.Message(s.LoginErr)
		snap.LoginErrorCode = identity.Code(s.LoginErr)
	}

	switch s.Phase {
	case PhaseGuessing:
		if s.Location != nil {
			snap.Image = s.Location.Image
		}
	case PhaseResult:
		if r := s.LastResult(); r != nil {
			view := &ResultView{
				Round:         r.Round,
				LocationName:  r.LocationName,
				Distance:      r.Distance,
				Points:        r.Points,
				Message:       "You didn't make a guess in time",
				PointsMessage: fmt.Sprintf("You scored %d points this round!", r.Points),
			}
			if r.Distance != nil {
				view.DistanceText = fmt.Sprintf("%.2f", *r.Distance)
				view.Message = fmt.Sprintf("Your guess was %s meters away", view.DistanceText)
			}
			snap.Result = view
		}
		snap.NextLabel = "Next Round"
		if s.Round >= constants.TotalRounds {
			snap.NextLabel = "See Final Results"
		}
	}
	return snap
}
