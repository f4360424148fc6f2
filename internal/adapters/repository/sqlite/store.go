// Package sqlite implements the event store on SQLite for deployments that
// prefer a relational backend over the JSON file. Semantics match the
// jsonfile store: write-through mutations, the cursor and events in one
// durability domain, and a store-level lock serializing writers.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// Store persists events, the sequence cursor, and the user score index in
// SQLite.
type Store struct {
	mu    sync.Mutex
	sqlDB *sql.DB
	clock clockwork.Clock
}

var _ repository.Store = (*Store)(nil)

// Open opens the SQLite store at path and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{
		sqlDB: sqlDB,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateEventsTotal(s.Count(context.Background()))
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// NextEventID advances the durable cursor and returns the issued id.
func (s *Store) NextEventID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", persistErr("begin sequence tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT last_event FROM sequence WHERE id = 1`).Scan(&last); err != nil {
		return "", persistErr("read sequence cursor", err)
	}
	next := last + 1
	if _, err := tx.ExecContext(ctx, `UPDATE sequence SET last_event = ? WHERE id = 1`, next); err != nil {
		return "", persistErr("advance sequence cursor", err)
	}
	if err := tx.Commit(); err != nil {
		return "", persistErr("commit sequence tx", err)
	}
	metrics.RecordPersistDuration(float64(time.Since(start).Milliseconds()))
	return strconv.FormatInt(next, 10), nil
}

// CreateEvent inserts a new empty-targets event with the given roster.
func (s *Store) CreateEvent(ctx context.Context, id string, players []int64) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eventID, err := parseEventID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE id = ?`, eventID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check event %s: %w", id, err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrDuplicateEvent)
	}

	created := s.clock.Now().UTC()
	roster, err := json.Marshal(append([]int64{}, players...))
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}

	start := time.Now()
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, created_ms, players) VALUES (?, ?, ?)`,
		eventID, created.UnixMilli(), string(roster),
	); err != nil {
		return nil, persistErr("insert event", err)
	}
	metrics.RecordPersistDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateEventsTotal(s.countLocked(ctx))

	return &model.Event{
		ID:      id,
		Created: created,
		Players: append([]int64(nil), players...),
		Targets: make(map[int64]model.VoterMap),
	}, nil
}

// GetEvent materializes the event and its votes.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eventID, err := parseEventID(id)
	if err != nil {
		return nil, err
	}
	return s.loadEvent(ctx, eventID)
}

// AllEvents returns every event ordered by ascending id.
func (s *Store) AllEvents(ctx context.Context) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, created_ms, players FROM events ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*model.Event
	byID := make(map[int64]*model.Event)
	for rows.Next() {
		ev, eventID, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		byID[eventID] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	voteRows, err := s.sqlDB.QueryContext(ctx,
		`SELECT event_id, target_id, voter_id, score, changes FROM votes`)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer func() { _ = voteRows.Close() }()

	for voteRows.Next() {
		var eventID, targetID, voterID int64
		var score, changes int
		if err := voteRows.Scan(&eventID, &targetID, &voterID, &score, &changes); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		ev, ok := byID[eventID]
		if !ok {
			continue
		}
		ev.Voters(targetID)[voterID] = &model.VoteRecord{Score: score, Revisions: changes}
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	return events, nil
}

// MutateEvent materializes the event, runs fn, and writes the mutated vote
// set back inside one transaction. A failed commit leaves the stored state
// untouched.
func (s *Store) MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eventID, err := parseEventID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := fn(ev); err != nil {
		return err
	}

	start := time.Now()
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin vote tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE event_id = ?`, eventID); err != nil {
		return persistErr("clear votes", err)
	}
	for targetID, vm := range ev.Targets {
		for voterID, rec := range vm {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO votes (event_id, target_id, voter_id, score, changes) VALUES (?, ?, ?, ?, ?)`,
				eventID, targetID, voterID, rec.Score, rec.Revisions,
			); err != nil {
				return persistErr("insert vote", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit vote tx", err)
	}
	metrics.RecordPersistDuration(float64(time.Since(start).Milliseconds()))
	return nil
}

// SetUserScore upserts one row of the derived user score index.
func (s *Store) SetUserScore(ctx context.Context, userID int64, eventID string, average float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evID, err := parseEventID(eventID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_scores (user_id, event_id, average) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, event_id) DO UPDATE SET average = excluded.average`,
		userID, evID, average,
	); err != nil {
		return persistErr("upsert user score", err)
	}
	return nil
}

// UserScores returns the user's indexed per-event averages.
func (s *Store) UserScores(ctx context.Context, userID int64) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT event_id, average FROM user_scores WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]float64)
	for rows.Next() {
		var eventID int64
		var avg float64
		if err := rows.Scan(&eventID, &avg); err != nil {
			return nil, fmt.Errorf("scan user score: %w", err)
		}
		out[strconv.FormatInt(eventID, 10)] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user scores: %w", err)
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) int {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM events`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *Store) countLocked(ctx context.Context) int {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM events`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *Store) loadEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, created_ms, players FROM events WHERE id = ?`, eventID)
	ev, _, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", eventID, repository.ErrEventNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT target_id, voter_id, score, changes FROM votes WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var targetID, voterID int64
		var score, changes int
		if err := rows.Scan(&targetID, &voterID, &score, &changes); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		ev.Voters(targetID)[voterID] = &model.VoteRecord{Score: score, Revisions: changes}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	return ev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*model.Event, int64, error) {
	var eventID, createdMs int64
	var roster string
	if err := r.Scan(&eventID, &createdMs, &roster); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("scan event: %w", err)
	}
	var players []int64
	if err := json.Unmarshal([]byte(roster), &players); err != nil {
		return nil, 0, fmt.Errorf("decode roster for event %d: %w", eventID, err)
	}
	return &model.Event{
		ID:      strconv.FormatInt(eventID, 10),
		Created: time.UnixMilli(createdMs).UTC(),
		Players: players,
		Targets: make(map[int64]model.VoterMap),
	}, eventID, nil
}

func parseEventID(id string) (int64, error) {
	eventID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("event %q: %w", id, repository.ErrEventNotFound)
	}
	return eventID, nil
}

func persistErr(op string, err error) error {
	metrics.RecordPersistError()
	return fmt.Errorf("%w: %s: %v", repository.ErrPersistence, op, err)
}
