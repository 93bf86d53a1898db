package bled

import "time"

// ReadStatus is the tri-state outcome of the most recent GATT read
// attempt for a given advertisement header (§4.4).
type ReadStatus int

const (
	ReadStatusUnknown ReadStatus = iota
	ReadStatusSuccess
	ReadStatusFailure
)

// ReadRetryDecision is the verdict returned by
// AdvertisementReadResult.EvaluateRetry (§4.4).
type ReadRetryDecision int

const (
	// PreviouslySucceeded means a GATT read already completed
	// successfully for this header; no further read is needed.
	PreviouslySucceeded ReadRetryDecision = iota
	// TooSoon means a retry is warranted eventually, but the backoff
	// window since the last attempt has not yet elapsed.
	TooSoon
	// Retry means the fetcher should be invoked now.
	Retry
)

// readResultBaseBackoff and readResultMaxBackoff bound the exponential
// back-off applied between GATT read attempts (§3 "AdvertisementReadResult").
const (
	readResultBaseBackoff = 1 * time.Second
	readResultMaxBackoff  = 5 * time.Minute
)

// AdvertisementReadResult is the per-header cache of GATT-read outcomes
// named in §3/§4.4: the slot→bytes map from the latest read, when that
// read happened, the back-off currently in force, and the tri-state
// status driving EvaluateRetry.
type AdvertisementReadResult struct {
	slots      map[uint8][]byte
	lastReadAt time.Time
	backoff    time.Duration
	status     ReadStatus
}

// NewAdvertisementReadResult returns a result whose initial
// last_read_at is deliberately set to now-cap, so the very first
// EvaluateRetry call returns Retry (§4.4).
func NewAdvertisementReadResult(now time.Time) *AdvertisementReadResult {
	return &AdvertisementReadResult{
		slots:      make(map[uint8][]byte),
		lastReadAt: now.Add(-readResultMaxBackoff),
		backoff:    readResultBaseBackoff,
		status:     ReadStatusUnknown,
	}
}

// AddAdvertisement records the raw bytes read from the given GATT slot,
// overwriting any prior value for that slot.
func (r *AdvertisementReadResult) AddAdvertisement(slot uint8, b []byte) {
	r.slots[slot] = append([]byte(nil), b...)
}

// GetAdvertisements returns a defensive copy of the slot→bytes map.
func (r *AdvertisementReadResult) GetAdvertisements() map[uint8][]byte {
	out := make(map[uint8][]byte, len(r.slots))
	for slot, b := range r.slots {
		out[slot] = append([]byte(nil), b...)
	}
	return out
}

// GetNumSlots reports how many distinct slots currently hold a GATT
// read result. Present in the original but omitted from spec.md's
// component summary; the tracker itself does not call it.
func (r *AdvertisementReadResult) GetNumSlots() int {
	return len(r.slots)
}

// GetDurationSinceRead reports how long it has been since the last
// read attempt, relative to now. Like GetNumSlots, it is read-only
// introspection that the tracker itself does not call.
func (r *AdvertisementReadResult) GetDurationSinceRead(now time.Time) time.Duration {
	return now.Sub(r.lastReadAt)
}

// RecordLastReadStatus updates the status following a GATT read
// attempt and recomputes the back-off (§4.4 "Backoff computation"):
// on success, back-off resets to the base; on a repeated failure,
// back-off doubles, capped at readResultMaxBackoff.
func (r *AdvertisementReadResult) RecordLastReadStatus(now time.Time, success bool) {
	r.lastReadAt = now
	if success {
		r.status = ReadStatusSuccess
		r.backoff = readResultBaseBackoff
		return
	}
	if r.status == ReadStatusFailure {
		r.backoff *= 2
		if r.backoff > readResultMaxBackoff {
			r.backoff = readResultMaxBackoff
		}
	} else {
		r.backoff = readResultBaseBackoff
	}
	r.status = ReadStatusFailure
}

// EvaluateRetry applies the rules in §4.4: Success short-circuits to
// PreviouslySucceeded; otherwise the elapsed time since the last
// attempt is compared against the current back-off.
func (r *AdvertisementReadResult) EvaluateRetry(now time.Time) ReadRetryDecision {
	if r.status == ReadStatusSuccess {
		return PreviouslySucceeded
	}
	if now.Sub(r.lastReadAt) < r.backoff {
		return TooSoon
	}
	return Retry
}
