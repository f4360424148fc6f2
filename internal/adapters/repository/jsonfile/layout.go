package jsonfile

import (
	"fmt"
	"strconv"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// On-disk layout. Map keys are decimal strings because JSON objects cannot
// carry integer keys.
type fileLayout struct {
	LastEvent int64                  `json:"last_event"`
	Events    map[string]eventRecord `json:"events"`
	Users     map[string]userRecord  `json:"users"`
}

type eventRecord struct {
	Created time.Time               `json:"created"`
	Players []int64                 `json:"players"`
	Targets map[string]targetRecord `json:"targets"`
}

type targetRecord struct {
	Voters map[string]voteRecord `json:"voters"`
}

type voteRecord struct {
	Score   int `json:"score"`
	Changes int `json:"changes"`
}

type userRecord struct {
	Events map[string]float64 `json:"events"`
}

func (r eventRecord) toModel(id string) (*model.Event, error) {
	ev := &model.Event{
		ID:      id,
		Created: r.Created,
		Players: append([]int64(nil), r.Players...),
		Targets: make(map[int64]model.VoterMap, len(r.Targets)),
	}
	for target, tr := range r.Targets {
		targetID, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("event %s: decode target id %q: %w", id, target, err)
		}
		vm := make(model.VoterMap, len(tr.Voters))
		for voter, vr := range tr.Voters {
			voterID, err := strconv.ParseInt(voter, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("event %s: decode voter id %q: %w", id, voter, err)
			}
			vm[voterID] = &model.VoteRecord{Score: vr.Score, Revisions: vr.Changes}
		}
		ev.Targets[targetID] = vm
	}
	return ev, nil
}

func eventToRecord(ev *model.Event) eventRecord {
	rec := eventRecord{
		Created: ev.Created,
		Players: append([]int64(nil), ev.Players...),
		Targets: make(map[string]targetRecord, len(ev.Targets)),
	}
	for target, vm := range ev.Targets {
		tr := targetRecord{Voters: make(map[string]voteRecord, len(vm))}
		for voter, vr := range vm {
			tr.Voters[strconv.FormatInt(voter, 10)] = voteRecord{Score: vr.Score, Changes: vr.Revisions}
		}
		rec.Targets[strconv.FormatInt(target, 10)] = tr
	}
	return rec
}

// snapshotLocked builds the serializable view. Callers hold at least a read lock.
func (s *Store) snapshotLocked() fileLayout {
	layout := fileLayout{
		LastEvent: s.lastEvent,
		Events:    make(map[string]eventRecord, len(s.events)),
		Users:     make(map[string]userRecord, len(s.users)),
	}
	for id, ev := range s.events {
		layout.Events[id] = eventToRecord(ev)
	}
	for userID, scores := range s.users {
		rec := userRecord{Events: make(map[string]float64, len(scores))}
		for eventID, avg := range scores {
			rec.Events[eventID] = avg
		}
		layout.Users[strconv.FormatInt(userID, 10)] = rec
	}
	return layout
}
