// Package model contains domain models passed between layers.
package model

import "time"

// Event is one completed round for which participants rate each other.
// Events are created once, mutated only through vote casting, and never
// deleted; their ids are never reused.
type Event struct {
	ID      string    // decimal string of a monotonically assigned integer
	Created time.Time // creation timestamp; monthly queries bucket by its calendar month
	Players []int64   // roster snapshot taken at creation, informational only
	Targets map[int64]VoterMap
}

// VoterMap holds the votes cast against a single target, keyed by voter id.
// At most one record exists per (event, target, voter) triple.
type VoterMap map[int64]*VoteRecord

// VoteRecord is a single voter's current score for a target.
type VoteRecord struct {
	Score     int // closed range [1,5]
	Revisions int // accepted revisions so far; capped, then the record is immutable
}

// TargetStats summarizes the votes a target holds in one event.
type TargetStats struct {
	Average *float64 // nil when the target has no voters
	Count   int
}

// Voters returns the voter map for a target, creating it when absent.
func (e *Event) Voters(targetID int64) VoterMap {
	if e.Targets == nil {
		e.Targets = make(map[int64]VoterMap)
	}
	vm, ok := e.Targets[targetID]
	if !ok {
		vm = make(VoterMap)
		e.Targets[targetID] = vm
	}
	return vm
}

// Stats recomputes the target's statistics from the stored votes.
func (e *Event) Stats(targetID int64) TargetStats {
	vm := e.Targets[targetID]
	if len(vm) == 0 {
		return TargetStats{}
	}
	sum := 0
	for _, rec := range vm {
		sum += rec.Score
	}
	avg := float64(sum) / float64(len(vm))
	return TargetStats{Average: &avg, Count: len(vm)}
}

// Clone returns a deep copy so callers never alias store-owned memory.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := &Event{
		ID:      e.ID,
		Created: e.Created,
		Players: append([]int64(nil), e.Players...),
		Targets: make(map[int64]VoterMap, len(e.Targets)),
	}
	for target, vm := range e.Targets {
		cvm := make(VoterMap, len(vm))
		for voter, rec := range vm {
			r := *rec
			cvm[voter] = &r
		}
		cp.Targets[target] = cvm
	}
	return cp
}
