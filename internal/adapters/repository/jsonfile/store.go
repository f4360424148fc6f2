// Package jsonfile implements the event store on a single JSON file.
//
// The whole store is held in memory and flushed write-through on every
// mutation: marshal, write to a temp file in the same directory, rename.
// A crash therefore loses at most the in-flight operation, never an
// acknowledged one. On persist failure the in-memory mutation is rolled
// back before the lock is released, so retries are safe.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// Store is a JSON-file-backed repository.Store.
type Store struct {
	mu    sync.RWMutex
	path  string
	clock clockwork.Clock

	lastEvent int64
	events    map[string]*model.Event
	users     map[int64]map[string]float64
}

var _ repository.Store = (*Store)(nil)

// Open loads the store from path, creating a fresh one if the file does
// not exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		clock:  clockwork.NewRealClock(),
		events: make(map[string]*model.Event),
		users:  make(map[int64]map[string]float64),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	metrics.UpdateEventsTotal(len(s.events))
	return s, nil
}

// NextEventID issues the next id from the durable cursor.
func (s *Store) NextEventID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastEvent++
	if err := s.persistLocked(); err != nil {
		s.lastEvent--
		return "", err
	}
	return strconv.FormatInt(s.lastEvent, 10), nil
}

// CreateEvent inserts a new empty-targets event stamped with the current time.
func (s *Store) CreateEvent(ctx context.Context, id string, players []int64) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; ok {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrDuplicateEvent)
	}

	ev := &model.Event{
		ID:      id,
		Created: s.clock.Now().UTC(),
		Players: append([]int64(nil), players...),
		Targets: make(map[int64]model.VoterMap),
	}
	s.events[id] = ev
	if err := s.persistLocked(); err != nil {
		delete(s.events, id)
		return nil, err
	}
	metrics.UpdateEventsTotal(len(s.events))
	return ev.Clone(), nil
}

// GetEvent returns a deep copy of the stored event.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrEventNotFound)
	}
	return ev.Clone(), nil
}

// AllEvents returns a snapshot copy ordered by ascending numeric id.
func (s *Store) AllEvents(ctx context.Context) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	sortEventsByID(out)
	return out, nil
}

// MutateEvent runs fn on the live record under the write lock, persisting
// on success and restoring the record when fn or the persist fails.
func (s *Store) MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, repository.ErrEventNotFound)
	}

	before := ev.Clone()
	if err := fn(ev); err != nil {
		s.events[id] = before
		return err
	}
	if err := s.persistLocked(); err != nil {
		s.events[id] = before
		return err
	}
	return nil
}

// SetUserScore records a user's per-event average in the derived index.
func (s *Store) SetUserScore(ctx context.Context, userID int64, eventID string, average float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, existed := s.users[userID]
	if entry == nil {
		entry = make(map[string]float64)
		s.users[userID] = entry
	}
	prev, hadPrev := entry[eventID]

	entry[eventID] = average
	if err := s.persistLocked(); err != nil {
		if hadPrev {
			entry[eventID] = prev
		} else {
			delete(entry, eventID)
		}
		if !existed && len(entry) == 0 {
			delete(s.users, userID)
		}
		return err
	}
	return nil
}

// UserScores returns the user's indexed per-event averages.
func (s *Store) UserScores(ctx context.Context, userID int64) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.users[userID]))
	for eventID, avg := range s.users[userID] {
		out[eventID] = avg
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Close is a no-op; the file handle is not held between writes.
func (s *Store) Close() error {
	return nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}

	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}

	s.lastEvent = layout.LastEvent
	s.events = make(map[string]*model.Event, len(layout.Events))
	for id, rec := range layout.Events {
		ev, err := rec.toModel(id)
		if err != nil {
			return err
		}
		s.events[id] = ev
	}
	s.users = make(map[int64]map[string]float64, len(layout.Users))
	for uid, rec := range layout.Users {
		userID, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			return fmt.Errorf("decode user id %q: %w", uid, err)
		}
		scores := make(map[string]float64, len(rec.Events))
		for eventID, avg := range rec.Events {
			scores[eventID] = avg
		}
		s.users[userID] = scores
	}
	return nil
}

// persistLocked writes the whole store atomically. Callers hold the write lock.
func (s *Store) persistLocked() error {
	start := time.Now()

	raw, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		metrics.RecordPersistError()
		return fmt.Errorf("%w: encode store: %v", repository.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		metrics.RecordPersistError()
		return fmt.Errorf("%w: create temp file: %v", repository.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		metrics.RecordPersistError()
		return fmt.Errorf("%w: write temp file: %v", repository.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		metrics.RecordPersistError()
		return fmt.Errorf("%w: close temp file: %v", repository.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		metrics.RecordPersistError()
		return fmt.Errorf("%w: replace store file: %v", repository.ErrPersistence, err)
	}

	metrics.RecordPersistDuration(float64(time.Since(start).Milliseconds()))
	return nil
}

func sortEventsByID(events []*model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, aerr := strconv.ParseInt(events[i].ID, 10, 64)
		b, berr := strconv.ParseInt(events[j].ID, 10, 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		return events[i].ID < events[j].ID
	})
}
