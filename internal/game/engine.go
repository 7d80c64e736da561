package game

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

type Picker interface {
	Pick(ctx context.Context) models.Location
}

type Admitter interface {
	Admit(name, email string) (identity.Player, error)
}

type Recorder interface {
	RecordSession(ctx context.Context, name, email string, score int) error
}

// Engine owns one session's State. Every event goes through Transition
// under a single lock, so at most one transition runs at a time.
//
// With a positive tick interval the engine drives its own round timer; with
// zero, callers feed Tick themselves.
type Engine struct {
	mu    sync.Mutex
	state State

	picker Picker
	gate   Admitter
	board  Recorder

	tick       time.Duration
	tickerGen  uint64
	stopTicker context.CancelFunc
	closed     bool

	subs      map[int]chan State
	nextSubID int

	lastActive time.Time
}

func NewEngine(picker Picker, gate Admitter, board Recorder, tick time.Duration) *Engine {
	return &Engine{
		picker:     picker,
		gate:       gate,
		board:      board,
		tick:       tick,
		subs:       make(map[int]chan State),
		lastActive: time.Now(),
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) LastActive() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

// Login runs the identity gate. A rejection is recorded on the state so the
// form can show it, and is also returned.
func (e *Engine) Login(ctx context.Context, name, email string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseLogin {
		return invalid(e.state, Admitted{})
	}
	player, err := e.gate.Admit(name, email)
	if err != nil {
		util.LogInfoCtx(ctx, "Login rejected for %q: %v", email, err)
		if aerr := e.apply(Rejected{Err: err}); aerr != nil {
			return aerr
		}
		return err
	}
	util.LogInfoCtx(ctx, "Player %s admitted", player.Email)
	return e.apply(Admitted{Player: player})
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseBriefing {
		return invalid(e.state, StartGame{})
	}
	loc := e.picker.Pick(ctx)
	util.LogInfoCtx(ctx, "Session for %s started, round 1 at location %d", e.state.Player.Email, loc.ID)
	return e.apply(StartGame{Location: loc})
}

func (e *Engine) Guess(p orb.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(PlaceGuess{Point: p})
}

func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.apply(SubmitGuess{}); err != nil {
		return err
	}
	if r := e.state.LastResult(); r != nil {
		util.LogInfoCtx(ctx, "Round %d submitted by %s for %d points", r.Round, e.state.Player.Email, r.Points)
	}
	return nil
}

// Tick advances the timer of the given generation by one step. It reports
// whether that timer is still running afterwards.
func (e *Engine) Tick(generation uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	before := e.state.Phase
	if err := e.apply(Tick{Generation: generation}); err != nil {
		util.LogWarn("Tick failed: %v", err)
		return false
	}
	if before == PhaseGuessing && e.state.Phase == PhaseResult {
		util.LogInfo("Round %d for %s timed out", e.state.Round, e.state.Player.Email)
	}
	return e.state.Timer.Running && e.state.Timer.Generation == generation
}

func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseResult {
		return invalid(e.state, NextRound{})
	}
	var loc models.Location
	if e.state.Round < constants.TotalRounds {
		loc = e.picker.Pick(ctx)
	}
	if err := e.apply(NextRound{Location: loc}); err != nil {
		return err
	}
	if e.state.Phase == PhaseEnd {
		util.LogInfoCtx(ctx, "Session for %s finished with %d points", e.state.Player.Email, e.state.Total)
	}
	return nil
}

// Save records the finished session on the leaderboard, which also marks
// the email as used, then shows the board.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseEnd || e.state.LeaderboardShown {
		return invalid(e.state, ScoreSaved{})
	}
	p := e.state.Player
	if err := e.board.RecordSession(ctx, p.Name, p.Email, e.state.Total); err != nil {
		return err
	}
	return e.apply(ScoreSaved{})
}

// Logout tears the session down to Login. Play-again is the same action.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Player.Email != "" {
		util.LogInfoCtx(ctx, "Player %s logged out", e.state.Player.Email)
	}
	_ = e.apply(Logout{})
}

// Subscribe returns a channel that receives the state after every change.
// Slow readers miss intermediate states rather than block the engine.
func (e *Engine) Subscribe() (<-chan State, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	ch := make(chan State, 1)
	ch <- e.state
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the round timer and drops subscribers. A closed engine
// never restarts its ticker.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.stopTicker != nil {
		e.stopTicker()
		e.stopTicker = nil
	}
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// apply must be called with e.mu held.
func (e *Engine) apply(ev Event) error {
	next, err := Transition(e.state, ev)
	if err != nil {
		return err
	}
	changed := !sameState(e.state, next)
	e.state = next
	e.lastActive = time.Now()
	e.syncTicker()
	if changed {
		e.publish()
	}
	return nil
}

func (e *Engine) syncTicker() {
	t := e.state.Timer
	if t.Running && e.stopTicker != nil && e.tickerGen == t.Generation {
		return
	}
	if e.stopTicker != nil {
		e.stopTicker()
		e.stopTicker = nil
	}
	if !t.Running || e.tick <= 0 || e.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.stopTicker = cancel
	e.tickerGen = t.Generation
	go e.runTicker(ctx, t.Generation)
}

func (e *Engine) runTicker(ctx context.Context, generation uint64) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.Tick(generation) {
				return
			}
		}
	}
}

func (e *Engine) publish() {
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e.state
	}
}

func sameState(a, b State) bool {
	return a.Phase == b.Phase &&
		a.Timer == b.Timer &&
		a.Guess == b.Guess &&
		a.Round == b.Round &&
		a.Total == b.Total &&
		a.LeaderboardShown == b.LeaderboardShown &&
		a.LoginErr == b.LoginErr &&
		a.Player == b.Player &&
		len(a.Results) == len(b.Results)
}
