package bled

// LostEntityTracker implements the two-phase sweep described in §4.5:
// entities reported via RecordFound in a round survive; anything recorded
// in one round and not recorded in the next is reported lost by the sweep
// that closes that next round. Comparable key types
// (AdvertisementHeader, parsed advertisement identities) are the
// intended E.
type LostEntityTracker[E comparable] struct {
	currentRound  map[E]struct{}
	previousRound map[E]struct{}
}

// NewLostEntityTracker returns an empty tracker.
func NewLostEntityTracker[E comparable]() *LostEntityTracker[E] {
	return &LostEntityTracker[E]{
		currentRound:  make(map[E]struct{}),
		previousRound: make(map[E]struct{}),
	}
}

// RecordFound marks entity as seen in the current round.
func (t *LostEntityTracker[E]) RecordFound(entity E) {
	t.currentRound[entity] = struct{}{}
}

// ComputeLostEntities returns previous_round \ current_round, then
// rotates: previous_round becomes current_round and current_round is
// cleared (§4.5). Calling this twice in a row with no intervening
// RecordFound for an entity reports it lost on the second call — the
// deliberate two-cycle grace period.
func (t *LostEntityTracker[E]) ComputeLostEntities() []E {
	var lost []E
	for e := range t.previousRound {
		if _, stillSeen := t.currentRound[e]; !stillSeen {
			lost = append(lost, e)
		}
	}
	t.previousRound = t.currentRound
	t.currentRound = make(map[E]struct{})
	return lost
}

// CurrentRoundSize and PreviousRoundSize expose the round sets' sizes;
// present in the original implementation for tests and metrics, not
// excluded by any stated non-goal.
func (t *LostEntityTracker[E]) CurrentRoundSize() int  { return len(t.currentRound) }
func (t *LostEntityTracker[E]) PreviousRoundSize() int { return len(t.previousRound) }

// Forget removes entity from both rounds immediately, without waiting
// for the grace period. Used by the forced-loss ("instant on lost")
// path (§4.6) where a loss must take effect without a sweep.
func (t *LostEntityTracker[E]) Forget(entity E) {
	delete(t.currentRound, entity)
	delete(t.previousRound, entity)
}
