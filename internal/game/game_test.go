package game_test

import (
	"errors"
	"testing"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	game "github.com/CodeAndHammer/upjguesser/internal/game"
	geo "github.com/CodeAndHammer/upjguesser/internal/geo"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
)

var bench = models.Location{ID: 1, Image: "images/location1.jpg", Lat: 40.2661444, Lon: -78.8320306, Name: "Bench Area"}

func mustTransition(t *testing.T, s game.State, ev game.Event) game.State {
	t.Helper()
	next, err := game.Transition(s, ev)
	if err != nil {
		t.Fatalf("Transition(%s, %T): %v", s.Phase, ev, err)
	}
	return next
}

func guessingState(t *testing.T) game.State {
	t.Helper()
	s := mustTransition(t, game.State{}, game.Admitted{Player: identity.Player{Name: "Pat", Email: "pat@pitt.edu"}})
	return mustTransition(t, s, game.StartGame{Location: bench})
}

func TestInitialStateIsLogin(t *testing.T) {
	var s game.State
	if s.Phase != game.PhaseLogin {
		t.Errorf("zero State phase = %s, want login", s.Phase)
	}
}

func TestLoginToBriefing(t *testing.T) {
	s := mustTransition(t, game.State{}, game.Rejected{Err: identity.ErrInvalidEmailFormat})
	if !errors.Is(s.LoginErr, identity.ErrInvalidEmailFormat) || s.Phase != game.PhaseLogin {
		t.Fatalf("after rejection: %+v", s)
	}
	s = mustTransition(t, s, game.Admitted{Player: identity.Player{Name: "Pat", Email: "pat@pitt.edu"}})
	if s.Phase != game.PhaseBriefing || s.LoginErr != nil || s.Player.Name != "Pat" {
		t.Errorf("after admission: %+v", s)
	}
}

func TestStartGameBeginsRoundOne(t *testing.T) {
	s := guessingState(t)
	if s.Phase != game.PhaseGuessing || s.Round != 1 || s.Total != 0 {
		t.Errorf("unexpected state: %+v", s)
	}
	if s.Timer.Remaining != constants.RoundTimeLimit || !s.Timer.Running {
		t.Errorf("timer = %+v, want running at %d", s.Timer, constants.RoundTimeLimit)
	}
	if s.Location == nil || s.Location.ID != bench.ID {
		t.Errorf("location = %v", s.Location)
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		name  string
		state game.State
		event game.Event
	}{
		{"start from login", game.State{}, game.StartGame{Location: bench}},
		{"guess from login", game.State{}, game.PlaceGuess{}},
		{"submit from briefing", game.State{Phase: game.PhaseBriefing}, game.SubmitGuess{}},
		{"next from guessing", game.State{Phase: game.PhaseGuessing}, game.NextRound{}},
		{"save from result", game.State{Phase: game.PhaseResult}, game.ScoreSaved{}},
		{"save twice", game.State{Phase: game.PhaseEnd, LeaderboardShown: true}, game.ScoreSaved{}},
		{"admit twice", game.State{Phase: game.PhaseBriefing}, game.Admitted{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			next, err := game.Transition(c.state, c.event)
			if !errors.Is(err, game.ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if next.Phase != c.state.Phase {
				t.Errorf("phase changed on rejected event: %s -> %s", c.state.Phase, next.Phase)
			}
		})
	}
}

func TestSubmitWithoutGuessIsRejected(t *testing.T) {
	s := guessingState(t)
	next, err := game.Transition(s, game.SubmitGuess{})
	if !errors.Is(err, game.ErrNoGuess) {
		t.Fatalf("err = %v, want ErrNoGuess", err)
	}
	if next.Phase != game.PhaseGuessing || len(next.Results) != 0 {
		t.Errorf("state changed: %+v", next)
	}
}

func TestGuessIsOverwritten(t *testing.T) {
	s := guessingState(t)
	s = mustTransition(t, s, game.PlaceGuess{Point: geo.Point(1, 1)})
	s = mustTransition(t, s, game.PlaceGuess{Point: bench.Position()})
	s = mustTransition(t, s, game.SubmitGuess{})
	r := s.LastResult()
	if r == nil || r.Distance == nil || *r.Distance != 0 || r.Points != 1000 {
		t.Errorf("result = %+v, want exact hit", r)
	}
}

func TestSubmitStopsTimer(t *testing.T) {
	s := guessingState(t)
	gen := s.Timer.Generation
	s = mustTransition(t, s, game.PlaceGuess{Point: bench.Position()})
	s = mustTransition(t, s, game.SubmitGuess{})
	if s.Timer.Running || s.Timer.Generation == gen {
		t.Errorf("timer = %+v, want stopped with new generation", s.Timer)
	}

	after := mustTransition(t, s, game.Tick{Generation: gen})
	if len(after.Results) != 1 || after.Phase != game.PhaseResult {
		t.Errorf("stale tick changed state: %+v", after)
	}
}

func TestTimerExpiryWithoutGuess(t *testing.T) {
	s := guessingState(t)
	gen := s.Timer.Generation
	for i := 0; i < constants.RoundTimeLimit-1; i++ {
		s = mustTransition(t, s, game.Tick{Generation: gen})
		if s.Phase != game.PhaseGuessing {
			t.Fatalf("round resolved early after %d ticks", i+1)
		}
	}
	if s.Timer.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", s.Timer.Remaining)
	}
	s = mustTransition(t, s, game.Tick{Generation: gen})
	if s.Phase != game.PhaseResult {
		t.Fatalf("phase = %s after 60 ticks, want result", s.Phase)
	}
	r := s.LastResult()
	if r.Distance != nil || r.Points != 0 {
		t.Errorf("result = %+v, want no distance and zero points", r)
	}

	// Further ticks for the same round do nothing.
	for i := 0; i < 5; i++ {
		s = mustTransition(t, s, game.Tick{Generation: gen})
	}
	if len(s.Results) != 1 {
		t.Errorf("round resolved %d times, want once", len(s.Results))
	}
}

func TestTimerExpirySubmitsPendingGuess(t *testing.T) {
	s := guessingState(t)
	gen := s.Timer.Generation
	s = mustTransition(t, s, game.PlaceGuess{Point: bench.Position()})
	for i := 0; i < constants.RoundTimeLimit; i++ {
		s = mustTransition(t, s, game.Tick{Generation: gen})
	}
	r := s.LastResult()
	if s.Phase != game.PhaseResult || r == nil || r.Points != 1000 {
		t.Errorf("expected auto-submitted exact guess, got %+v", r)
	}
}

func TestStaleTickFromPreviousRoundIsIgnored(t *testing.T) {
	s := guessingState(t)
	round1Gen := s.Timer.Generation
	s = mustTransition(t, s, game.PlaceGuess{Point: bench.Position()})
	s = mustTransition(t, s, game.SubmitGuess{})
	s = mustTransition(t, s, game.NextRound{Location: bench})
	if s.Round != 2 || s.Timer.Remaining != constants.RoundTimeLimit {
		t.Fatalf("round 2 state = %+v", s)
	}
	s = mustTransition(t, s, game.Tick{Generation: round1Gen})
	if s.Timer.Remaining != constants.RoundTimeLimit {
		t.Errorf("stale tick decremented round 2 timer to %d", s.Timer.Remaining)
	}
}

func TestFullSessionTotals(t *testing.T) {
	s := guessingState(t)
	sum := 0
	for round := 1; round <= constants.TotalRounds; round++ {
		if s.Round != round {
			t.Fatalf("round = %d, want %d", s.Round, round)
		}
		switch round {
		case 2:
			gen := s.Timer.Generation
			for i := 0; i < constants.RoundTimeLimit; i++ {
				s = mustTransition(t, s, game.Tick{Generation: gen})
			}
		default:
			guess := geo.Point(bench.Lat+0.0001*float64(round), bench.Lon)
			s = mustTransition(t, s, game.PlaceGuess{Point: guess})
			s = mustTransition(t, s, game.SubmitGuess{})
		}
		sum += s.LastResult().Points
		s = mustTransition(t, s, game.NextRound{Location: bench})
	}
	if s.Phase != game.PhaseEnd {
		t.Fatalf("phase = %s, want end", s.Phase)
	}
	if s.Total != sum {
		t.Errorf("total = %d, want sum of rounds %d", s.Total, sum)
	}
	if s.Timer.Running {
		t.Error("timer should be stopped at end")
	}
	if len(s.Results) != constants.TotalRounds {
		t.Errorf("results = %d, want %d", len(s.Results), constants.TotalRounds)
	}

	s = mustTransition(t, s, game.ScoreSaved{})
	if !s.LeaderboardShown {
		t.Error("leaderboard should be shown after save")
	}
	s = mustTransition(t, s, game.Logout{})
	if s.Phase != game.PhaseLogin || s.Player.Email != "" || s.Total != 0 || s.Round != 0 || s.LeaderboardShown {
		t.Errorf("logout left state behind: %+v", s)
	}
}

func TestLogoutDuringRoundInvalidatesTimer(t *testing.T) {
	s := guessingState(t)
	gen := s.Timer.Generation
	s = mustTransition(t, s, game.Logout{})
	if s.Timer.Running || s.Timer.Generation == gen || s.Timer.Remaining != 0 {
		t.Errorf("timer after logout = %+v", s.Timer)
	}
	if snap := game.NewSnapshot(s); snap.TimeLeft != 0 || snap.Clock != "00:00" {
		t.Errorf("login snapshot shows time %d (%s)", snap.TimeLeft, snap.Clock)
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	s := guessingState(t)
	s = mustTransition(t, s, game.PlaceGuess{Point: bench.Position()})
	s = mustTransition(t, s, game.SubmitGuess{})
	before := len(s.Results)
	_ = mustTransition(t, s, game.NextRound{Location: bench})
	if len(s.Results) != before || s.Phase != game.PhaseResult {
		t.Error("input state was modified")
	}
}

func TestPhaseString(t *testing.T) {
	if game.PhaseGuessing.String() != "guessing" || game.Phase(42).String() != "phase(42)" {
		t.Error("unexpected phase names")
	}
}
