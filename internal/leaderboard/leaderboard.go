// Package leaderboard keeps the persisted top-N list and the set of emails
// that have finished a session.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
	storage "github.com/CodeAndHammer/upjguesser/internal/storage"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

var defaultEntries = []models.LeaderboardEntry{
	{Name: "Emma Johnson", Email: "ej123@pitt.edu", Score: 4850},
	{Name: "James Smith", Email: "js456@pitt.edu", Score: 4720},
	{Name: "Olivia Brown", Email: "ob789@pitt.edu", Score: 4500},
	{Name: "William Davis", Email: "wd101@pitt.edu", Score: 4350},
	{Name: "Sophia Miller", Email: "sm202@pitt.edu", Score: 4200},
}

func DefaultEntries() []models.LeaderboardEntry {
	return slices.Clone(defaultEntries)
}

func defaultEmails() []string {
	return lo.Map(defaultEntries, func(e models.LeaderboardEntry, _ int) string { return e.Email })
}

type Store struct {
	mu      sync.RWMutex
	blobs   storage.BlobStore
	entries []models.LeaderboardEntry
	used    []string
	usedSet map[string]struct{}
}

// Open reads both blobs. A missing or unreadable blob falls back to the
// default leaderboard or its seed emails; the seed is written back so later
// runs see the same set.
func Open(ctx context.Context, blobs storage.BlobStore) (*Store, error) {
	s := &Store{blobs: blobs}

	entries, err := loadJSON[[]models.LeaderboardEntry](ctx, blobs, constants.LeaderboardKey)
	switch {
	case err == nil:
		s.entries = normalize(entries)
	case errors.Is(err, storage.ErrNotFound):
		s.entries = DefaultEntries()
	default:
		util.LogWarn("Leaderboard blob unreadable, using defaults: %v", err)
		s.entries = DefaultEntries()
	}

	used, err := loadJSON[[]string](ctx, blobs, constants.UsedEmailsKey)
	switch {
	case err == nil:
		s.setUsed(used)
	default:
		if !errors.Is(err, storage.ErrNotFound) {
			util.LogWarn("Used-emails blob unreadable, reseeding: %v", err)
		}
		s.setUsed(defaultEmails())
		if err := s.saveUsed(ctx, s.used); err != nil {
			return nil, err
		}
	}

	util.LogInfo("Leaderboard loaded with %d entries and %d used emails", len(s.entries), len(s.used))
	return s, nil
}

func loadJSON[T any](ctx context.Context, blobs storage.BlobStore, key string) (T, error) {
	var v T
	data, err := blobs.Load(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, nil
}

// normalize restores the size and ordering invariants on data read from
// storage.
func normalize(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	entries = slices.Clone(entries)
	slices.SortStableFunc(entries, func(a, b models.LeaderboardEntry) int {
		return b.Score - a.Score
	})
	if len(entries) > constants.LeaderboardSize {
		entries = entries[:constants.LeaderboardSize]
	}
	return entries
}

func usedSet(emails []string) map[string]struct{} {
	return lo.SliceToMap(emails, func(e string) (string, struct{}) { return e, struct{}{} })
}

func (s *Store) setUsed(emails []string) {
	s.used = lo.Uniq(lo.Map(emails, func(e string, _ int) string { return identity.NormalizeEmail(e) }))
	s.usedSet = usedSet(s.used)
}

func (s *Store) saveUsed(ctx context.Context, used []string) error {
	data, err := json.Marshal(used)
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, constants.UsedEmailsKey, data); err != nil {
		return fmt.Errorf("saving used emails: %w", err)
	}
	return nil
}

func (s *Store) saveEntries(ctx context.Context, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, constants.LeaderboardKey, data); err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}
	return nil
}

func (s *Store) Entries() []models.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *Store) UsedEmails() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.used)
}

func (s *Store) IsUsed(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usedSet[identity.NormalizeEmail(email)]
	return ok
}

// RecordSession adds the finished session, keeps the top entries by score
// and marks the email as used. Both blobs are rewritten; memory only
// changes once both writes succeed.
func (s *Store) RecordSession(ctx context.Context, name, email string, score int) error {
	email = identity.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := normalize(append(slices.Clone(s.entries), models.LeaderboardEntry{Name: name, Email: email, Score: score}))
	used := s.used
	if _, ok := s.usedSet[email]; !ok {
		used = append(slices.Clone(s.used), email)
		if err := s.saveUsed(ctx, used); err != nil {
			return err
		}
	}
	if err := s.saveEntries(ctx, entries); err != nil {
		return err
	}

	s.entries = entries
	s.used = used
	s.usedSet = usedSet(used)
	util.LogInfoCtx(ctx, "Recorded session for %s with score %d", email, score)
	return nil
}

// ResetUsedEmails is the administrative override: the used set goes back to
// the default seed emails. Leaderboard entries are untouched.
func (s *Store) ResetUsedEmails(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := defaultEmails()
	if err := s.saveUsed(ctx, seed); err != nil {
		return err
	}
	s.setUsed(seed)
	util.LogInfoCtx(ctx, "Used emails reset to %d seed entries", len(s.used))
	return nil
}

// Rank returns the 1-based position of the entry matching email and score,
// or 0 if that entry did not make the board.
func (s *Store) Rank(email string, score int) int {
	email = identity.NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, idx, ok := lo.FindIndexOf(s.entries, func(e models.LeaderboardEntry) bool {
		return e.Email == email && e.Score == score
	})
	if !ok {
		return 0
	}
	return idx + 1
}
