package game

import (
	"fmt"
	"slices"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	geo "github.com/CodeAndHammer/upjguesser/internal/geo"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
)

// Transition applies ev to s and returns the next state. It has no side
// effects; s is never modified.
func Transition(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case Admitted:
		if s.Phase != PhaseLogin {
			return s, invalid(s, ev)
		}
		s.Player = ev.Player
		s.LoginErr = nil
		s.Phase = PhaseBriefing
		return s, nil

	case Rejected:
		if s.Phase != PhaseLogin {
			return s, invalid(s, ev)
		}
		s.LoginErr = ev.Err
		return s, nil

	case StartGame:
		if s.Phase != PhaseBriefing {
			return s, invalid(s, ev)
		}
		s.Round = 1
		s.Total = 0
		s.Results = nil
		return beginRound(s, ev.Location), nil

	case PlaceGuess:
		if s.Phase != PhaseGuessing {
			return s, invalid(s, ev)
		}
		p := ev.Point
		s.Guess = &p
		return s, nil

	case SubmitGuess:
		if s.Phase != PhaseGuessing {
			return s, invalid(s, ev)
		}
		if s.Guess == nil {
			return s, ErrNoGuess
		}
		return resolveRound(s), nil

	case Tick:
		if s.Phase != PhaseGuessing || !s.Timer.Running || ev.Generation != s.Timer.Generation {
			return s, nil
		}
		s.Timer.Remaining--
		if s.Timer.Remaining <= 0 {
			s.Timer.Remaining = 0
			return resolveRound(s), nil
		}
		return s, nil

	case NextRound:
		if s.Phase != PhaseResult {
			return s, invalid(s, ev)
		}
		if s.Round >= constants.TotalRounds {
			s.Phase = PhaseEnd
			s.Location = nil
			s.Guess = nil
			s.Timer = stopped(s.Timer)
			return s, nil
		}
		s.Round++
		return beginRound(s, ev.Location), nil

	case ScoreSaved:
		if s.Phase != PhaseEnd || s.LeaderboardShown {
			return s, invalid(s, ev)
		}
		s.LeaderboardShown = true
		return s, nil

	case Logout:
		return State{Timer: Timer{Generation: s.Timer.Generation + 1}}, nil

	default:
		return s, fmt.Errorf("unknown event %T", ev)
	}
}

func invalid(s State, ev Event) error {
	return fmt.Errorf("%w: %T during %s", ErrInvalidTransition, ev, s.Phase)
}

func beginRound(s State, loc models.Location) State {
	s.Location = &loc
	s.Guess = nil
	s.Phase = PhaseGuessing
	s.Timer = Timer{
		Remaining:  constants.RoundTimeLimit,
		Running:    true,
		Generation: s.Timer.Generation + 1,
	}
	return s
}

func stopped(t Timer) Timer {
	if !t.Running {
		return t
	}
	return Timer{Remaining: t.Remaining, Running: false, Generation: t.Generation + 1}
}

// resolveRound scores the pending guess, if any, and moves to Result. Manual
// submit and timer expiry both end up here.
func resolveRound(s State) State {
	loc := *s.Location
	outcome := geo.Evaluate(s.Guess, loc.Position())

	result := models.RoundResult{
		Round:        s.Round,
		LocationID:   loc.ID,
		LocationName: loc.Name,
		Actual:       loc.Position(),
		Guess:        s.Guess,
		Distance:     outcome.Distance,
		Points:       outcome.Points,
	}

	s.Results = append(slices.Clone(s.Results), result)
	s.Total += outcome.Points
	s.Timer = stopped(s.Timer)
	s.Phase = PhaseResult
	return s
}
