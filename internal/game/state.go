package game

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
)

var (
	ErrInvalidTransition = errors.New("event not allowed in current phase")
	ErrNoGuess           = errors.New("no guess to submit")
)

type Phase int

const (
	PhaseLogin Phase = iota
	PhaseBriefing
	PhaseGuessing
	PhaseResult
	PhaseEnd
)

var phaseNames = [...]string{"login", "briefing", "guessing", "result", "end"}

func (p Phase) String() string {
	if int(p) < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Timer is the per-round countdown. Generation changes whenever a round
// starts or the timer stops; ticks from an older generation are ignored.
type Timer struct {
	Remaining  int
	Running    bool
	Generation uint64
}

// State is one player's session. The zero value is the Login phase.
type State struct {
	Phase            Phase
	Player           identity.Player
	Round            int
	Total            int
	Location         *models.Location
	Guess            *orb.Point
	Timer            Timer
	Results          []models.RoundResult
	LeaderboardShown bool
	LoginErr         error
}

// LastResult is the most recent resolved round, or nil.
func (s State) LastResult() *models.RoundResult {
	if len(s.Results) == 0 {
		return nil
	}
	r := s.Results[len(s.Results)-1]
	return &r
}

// Event is anything Transition accepts.
type Event interface {
	event()
}

type Admitted struct{ Player identity.Player }

type Rejected struct{ Err error }

type StartGame struct{ Location models.Location }

type PlaceGuess struct{ Point orb.Point }

type SubmitGuess struct{}

type Tick struct{ Generation uint64 }

// NextRound carries the location for the following round. It is ignored
// after the final round.
type NextRound struct{ Location models.Location }

type ScoreSaved struct{}

type Logout struct{}

func (Admitted) event()    {}
func (Rejected) event()    {}
func (StartGame) event()   {}
func (PlaceGuess) event()  {}
func (SubmitGuess) event() {}
func (Tick) event()        {}
func (NextRound) event()   {}
func (ScoreSaved) event()  {}
func (Logout) event()      {}
