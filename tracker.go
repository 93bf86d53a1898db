package bled

import (
	"bytes"
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Peripheral is the radio-layer view of a remote advertiser (§6): an
// opaque id, an optional local name (iOS-style header delivery), and
// the raw per-service-UUID advertisement payloads (Android-style
// header delivery, fast advertisements, DCT advertisements, the dummy-
// advertisement sentinel).
type Peripheral struct {
	ID           string
	LocalName    string
	HasLocalName bool
	ServiceData  map[uuid.UUID][]byte
}

// FoundAdvertisement is what a discovered/lost/dedup-collision callback
// receives: whichever concrete advertisement produced it, plus the
// derived endpoint id. Exactly one of Legacy/DCT is set; EndpointID is
// filled in only on the DCT path and is empty for Legacy.
type FoundAdvertisement struct {
	EndpointID string
	Legacy     *LegacyAdvertisement
	DCT        *DCTAdvertisement
}

type (
	PeripheralDiscoveredFunc   func(serviceID string, p Peripheral, ad FoundAdvertisement)
	PeripheralLostFunc         func(serviceID string, p Peripheral, ad FoundAdvertisement)
	DedupCollisionFunc         func(serviceID string, p Peripheral, ad FoundAdvertisement)
	InstantLostFunc            func(serviceID string, hash [4]byte)
	LegacyDeviceDiscoveredFunc func(p Peripheral)
)

// serviceCallbacks holds every callback a tracked service may register.
// Generalizes the teacher's device-level handler funcs
// (CentralConnected, PeripheralDiscovered in device.go) to service-
// scoped tracker callbacks.
type serviceCallbacks struct {
	discovered       PeripheralDiscoveredFunc
	lost             PeripheralLostFunc
	dedupCollision   DedupCollisionFunc
	instantLost      InstantLostFunc
	legacyDiscovered LegacyDeviceDiscoveredFunc
}

// ServiceCallback configures a tracked service's callbacks, mirroring
// the teacher's `func PeripheralDiscovered(f ...) handler` pattern.
type ServiceCallback func(*serviceCallbacks)

func PeripheralDiscovered(f PeripheralDiscoveredFunc) ServiceCallback {
	return func(c *serviceCallbacks) { c.discovered = f }
}

func PeripheralLost(f PeripheralLostFunc) ServiceCallback {
	return func(c *serviceCallbacks) { c.lost = f }
}

func DedupCollision(f DedupCollisionFunc) ServiceCallback {
	return func(c *serviceCallbacks) { c.dedupCollision = f }
}

func InstantLost(f InstantLostFunc) ServiceCallback {
	return func(c *serviceCallbacks) { c.instantLost = f }
}

func LegacyDeviceDiscovered(f LegacyDeviceDiscoveredFunc) ServiceCallback {
	return func(c *serviceCallbacks) { c.legacyDiscovered = f }
}

// GATTFetcher fetches the GATT-hosted advertisement content behind a
// header. It must populate result with slot→bytes entries and call
// result.RecordLastReadStatus, and must not retain references to
// result after returning (§6 "GATT fetcher callback").
type GATTFetcher func(ctx context.Context, p Peripheral, numSlots uint8, psm uint16, hasPSM bool, interestingServiceIDs []string, result *AdvertisementReadResult)

type trackedService struct {
	serviceID  string
	includeDCT bool
	pcp        string // opaque pass-through; orchestration is out of scope (§1)
	fastAdUUID uuid.UUID
	hasFastAd  bool
	callbacks  serviceCallbacks
	lost       *LostEntityTracker[advertisementID]

	// dctEndpoints remembers which peripheral last produced each derived
	// endpoint id for this service, so a second, different peripheral
	// producing the same 4-character id is routed to DedupCollision
	// instead of PeripheralDiscovered.
	dctEndpoints map[string]string // endpoint id -> peripheral id
}

// advertisementID is the arena index identifying one parsed legacy/fast
// advertisement, replacing pointer-chasing across PendingPayload/
// EndpointInfo-style cross-references (§9 "Cyclic references and weak
// pointers" — re-architected as an arena with typed indices) and
// sidestepping the fact that LegacyAdvertisement itself, carrying []byte
// fields, cannot be compared with == or used as a map key.
type advertisementID uint64

// extendedSighting records when an extended-advertisement sighting of a
// given header last triggered (or was suppressed from triggering) a
// GATT read, for the gating window in §4.6 step 6.
type extendedSighting struct {
	lastGATTAttempt time.Time
}

// Tracker is the Discovered Peripheral Tracker (C6, §4.6): the
// orchestrator that accepts sightings, dispatches GATT reads,
// correlates payloads across the fast/DCT/GATT paths, and emits
// found/lost callbacks. All mutation happens under one exclusive lock
// (§5 "single-writer").
type Tracker struct {
	mu    sync.Mutex
	flags featureFlags
	log   *logrus.Entry

	services map[string]*trackedService

	readResults            map[AdvertisementHeader]*AdvertisementReadResult
	parsedAdvertisements   map[AdvertisementHeader]map[advertisementID]struct{}
	advertisementToService map[advertisementID]string
	advertisementToHeader  map[advertisementID]AdvertisementHeader
	extendedSightings      map[AdvertisementHeader]*extendedSighting

	arena      map[advertisementID]LegacyAdvertisement
	arenaIndex map[[32]byte]advertisementID
	nextID     advertisementID

	// advertisementContentHash records SHA-256(first_ad)[:4] (§4.6
	// scenario 4) for each interned advertisement, computed from the
	// literal bytes a sighting delivered — not from the header's own
	// AdvertisementHash wire field, which the sender fills independently
	// (often randomly) and which a forced-loss hash list is never
	// compared against. This is what forced-loss matching and the
	// associated blocklist key on.
	advertisementContentHash map[advertisementID][4]byte

	// blockedHashes implements the flag-on forced-loss branch's
	// blocklist (§4.6 "Forced-loss path"): once an advertisement's
	// content hash has been declared instantly lost, subsequent
	// sightings of that same content must not re-report it as found.
	blockedHashes map[[4]byte]struct{}

	// fetchMu serializes GATT fetch invocations when
	// enableGATTQueryInThread is set, modeling the single worker thread
	// named in §5 "Suspension points".
	fetchMu sync.Mutex
	stopped bool
}

// NewTracker constructs a Tracker with the given options applied over
// the §6-documented feature-flag defaults.
func NewTracker(opts ...TrackerOption) *Tracker {
	flags := defaultFeatureFlags()
	for _, opt := range opts {
		opt(&flags)
	}
	return &Tracker{
		flags:                  flags,
		log:                    logrus.WithField("component", "tracker"),
		services:               make(map[string]*trackedService),
		readResults:            make(map[AdvertisementHeader]*AdvertisementReadResult),
		parsedAdvertisements:   make(map[AdvertisementHeader]map[advertisementID]struct{}),
		advertisementToService: make(map[advertisementID]string),
		advertisementToHeader:  make(map[advertisementID]AdvertisementHeader),
		extendedSightings:      make(map[AdvertisementHeader]*extendedSighting),
		arena:                  make(map[advertisementID]LegacyAdvertisement),
		arenaIndex:             make(map[[32]byte]advertisementID),
		advertisementContentHash: make(map[advertisementID][4]byte),
		blockedHashes:          make(map[[4]byte]struct{}),
	}
}

// StartTracking registers service_id, clearing any stale per-service
// state left over from a prior tracking session so rediscovery is
// guaranteed (§4.6 "Contract").
func (t *Tracker) StartTracking(serviceID string, includeDCT bool, pcp string, fastAdUUID uuid.UUID, cbs ...ServiceCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearServiceStateLocked(serviceID)

	svc := &trackedService{
		serviceID:    serviceID,
		includeDCT:   includeDCT,
		pcp:          pcp,
		fastAdUUID:   fastAdUUID,
		hasFastAd:    fastAdUUID != uuid.Nil,
		lost:         NewLostEntityTracker[advertisementID](),
		dctEndpoints: make(map[string]string),
	}
	for _, cb := range cbs {
		cb(&svc.callbacks)
	}
	t.services[serviceID] = svc
	t.log.WithField("service_id", serviceID).Debug("started tracking")
}

// StopTracking removes service_id. Prevents further callbacks; any
// in-flight GATT fetch whose result arrives after this call is
// discarded by onGATTReadComplete's tracked-service check (§4.6
// "Contract", §5 "Suspension points").
func (t *Tracker) StopTracking(serviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearServiceStateLocked(serviceID)
	delete(t.services, serviceID)
	t.log.WithField("service_id", serviceID).Debug("stopped tracking")
}

// clearServiceStateLocked removes every advertisement currently
// associated with serviceID from the cross-maps, evicting headers that
// end up with no remaining advertisements. Must be called under t.mu.
// The arena itself is left untouched: it is an append-only store of
// every distinct advertisement byte-content ever seen this tracking
// session (see internAdvertisement), so that a content hash always
// resolves to a live entry even after its association is evicted.
func (t *Tracker) clearServiceStateLocked(serviceID string) {
	for id, svcID := range t.advertisementToService {
		if svcID != serviceID {
			continue
		}
		header := t.advertisementToHeader[id]
		delete(t.advertisementToService, id)
		delete(t.advertisementToHeader, id)
		if set := t.parsedAdvertisements[header]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(t.parsedAdvertisements, header)
				delete(t.readResults, header)
				delete(t.extendedSightings, header)
			}
		}
	}
}

// internAdvertisement returns the arena id for a, interning it on first
// sight. Identity is content-based (§3 "Byte buffer... content-based
// equality/hash"): two parses that serialize identically share an id.
func (t *Tracker) internAdvertisement(a LegacyAdvertisement) (advertisementID, error) {
	raw, err := a.ToBytes()
	if err != nil {
		return 0, err
	}
	key := sha256.Sum256(raw)
	if id, ok := t.arenaIndex[key]; ok {
		return id, nil
	}
	t.nextID++
	id := t.nextID
	t.arena[id] = a
	t.arenaIndex[key] = id
	return id, nil
}

// ProcessFound ingests one sighting (§4.6 "Sighting algorithm").
func (t *Tracker) ProcessFound(ctx context.Context, p Peripheral, isExtendedAdvertisement bool, fetcher GATTFetcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	// Step 3: dummy-advertisement filter. Checked before header
	// extraction because the sentinel lives in the same service-data
	// slot a real header would occupy.
	if raw, ok := p.ServiceData[t.flags.copresenceServiceUUID]; ok && bytes.Equal(raw, t.flags.dummyAdvertisementSentinel) {
		if t.flags.enableInvokingLegacyDeviceDiscoveredCB {
			for _, svc := range t.services {
				if ctx.Err() != nil {
					break
				}
				if svc.callbacks.legacyDiscovered != nil {
					svc.callbacks.legacyDiscovered(p)
				}
			}
		}
		return
	}

	// Step 1: fast-path.
	if t.processFastPathLocked(ctx, p) {
		return
	}

	// Step 2: DCT path.
	if t.processDCTPathLocked(ctx, p) {
		return
	}

	// Step 4: header extraction.
	header, ok := t.extractHeaderLocked(p)
	if !ok {
		return
	}
	if !header.IsValid() {
		return
	}

	// Forced-loss ("instant on lost") sightings carry their hash list in
	// the dedicated forcedLossServiceDataHashList service-data entry;
	// handled before the interest filter since a forced-loss sighting
	// need not itself be interesting.
	if hashes, ok := forcedLossHashes(p); ok {
		t.processForcedLossLocked(hashes)
	}

	// Step 5: interest filter.
	interesting := t.interestingServiceIDsLocked(header)
	if len(interesting) == 0 {
		return
	}

	// Step 6: GATT retry decision.
	result, ok := t.readResults[header]
	if !ok {
		result = NewAdvertisementReadResult(time.Now())
		t.readResults[header] = result
	}

	if t.flags.enableReadGATTForExtendedAdvertisement && isExtendedAdvertisement {
		if !t.extendedGatingAllowsLocked(header) {
			return
		}
	}

	switch result.EvaluateRetry(time.Now()) {
	case PreviouslySucceeded, TooSoon:
		return
	}

	t.dispatchFetchLocked(ctx, p, header, result, interesting, fetcher)
}

// processFastPathLocked implements §4.6 step 1. It returns true if a
// fast advertisement was found and processed for any tracked service
// (terminating the sighting algorithm), matching "proceeds directly to
// step 4 ... No GATT read is issued."
func (t *Tracker) processFastPathLocked(ctx context.Context, p Peripheral) bool {
	handled := false
	for _, svc := range t.services {
		if !svc.hasFastAd {
			continue
		}
		raw, ok := p.ServiceData[svc.fastAdUUID]
		if !ok {
			continue
		}
		ad, err := LegacyAdvertisementFromBytes(raw, true)
		if err != nil {
			t.log.WithError(err).Debug("fast advertisement failed to parse")
			continue
		}
		hash := sha256.Sum256(raw)
		header := AdvertisementHeader{
			Version:           HeaderVersionV2,
			AdvertisementHash: [4]byte{hash[0], hash[1], hash[2], hash[3]},
		}
		id, err := t.internAdvertisement(ad)
		if err != nil {
			continue
		}
		t.advertisementContentHash[id] = [4]byte{hash[0], hash[1], hash[2], hash[3]}
		t.associateAndNotifyLocked(ctx, svc, header, []advertisementID{id}, p, FoundAdvertisement{Legacy: &ad})
		handled = true
	}
	return handled
}

// processDCTPathLocked implements §4.6 step 2.
func (t *Tracker) processDCTPathLocked(ctx context.Context, p Peripheral) bool {
	handled := false
	for _, svc := range t.services {
		if !svc.includeDCT {
			continue
		}
		raw, ok := p.ServiceData[t.flags.dctServiceUUID]
		if !ok {
			continue
		}
		ad, err := DCTAdvertisementFromBytes(raw)
		if err != nil {
			t.log.WithError(err).Debug("dct advertisement failed to parse")
			continue
		}
		endpointID, err := EndpointID(ad.DeviceName, ad.Dedup)
		if err != nil {
			t.log.WithError(err).Debug("dct endpoint id derivation failed")
			continue
		}
		found := FoundAdvertisement{EndpointID: endpointID, DCT: &ad}
		prevPeripheral, seen := svc.dctEndpoints[endpointID]
		svc.dctEndpoints[endpointID] = p.ID
		if ctx.Err() != nil {
			continue
		}
		if seen && prevPeripheral != p.ID {
			if svc.callbacks.dedupCollision != nil {
				svc.callbacks.dedupCollision(svc.serviceID, p, found)
			}
		} else if svc.callbacks.discovered != nil {
			svc.callbacks.discovered(svc.serviceID, p, found)
		}
		handled = true
	}
	return handled
}

// extractHeaderLocked implements §4.6 step 4: the header is read from
// the copresence service-data entry (Android-style), the local name
// (iOS-style), or synthesized to contain every tracked service id as a
// last resort so a GATT read is still attempted.
func (t *Tracker) extractHeaderLocked(p Peripheral) (AdvertisementHeader, bool) {
	if raw, ok := p.ServiceData[t.flags.copresenceServiceUUID]; ok {
		if h, err := AdvertisementHeaderFromBytes(raw); err == nil {
			return h, true
		}
	}
	if p.HasLocalName {
		if h, err := AdvertisementHeaderFromBytes([]byte(p.LocalName)); err == nil {
			return h, true
		}
	}
	if len(t.services) == 0 {
		return AdvertisementHeader{}, false
	}
	ids := make([]string, 0, len(t.services))
	for id := range t.services {
		ids = append(ids, id)
	}
	hash := sha256.Sum256([]byte(p.ID))
	return HeaderWithBloomFilterContainingAll(ids, [4]byte{hash[0], hash[1], hash[2], hash[3]}), true
}

// interestingServiceIDsLocked implements §4.6 step 5.
func (t *Tracker) interestingServiceIDsLocked(header AdvertisementHeader) []string {
	var ids []string
	for id := range t.services {
		if header.MayContainServiceID(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// extendedGatingAllowsLocked implements the alternate gating described
// in §4.6 step 6 for extended advertisements: a second sighting of the
// same header within extendedAdvertisementGatingWindowBase does not
// trigger a GATT read; by extendedAdvertisementGatingWindowMax it always
// does (§9 open question: observable thresholds 4s/20s).
func (t *Tracker) extendedGatingAllowsLocked(header AdvertisementHeader) bool {
	now := time.Now()
	es, ok := t.extendedSightings[header]
	if !ok {
		t.extendedSightings[header] = &extendedSighting{lastGATTAttempt: now}
		return true
	}
	elapsed := now.Sub(es.lastGATTAttempt)
	if elapsed < t.flags.extendedAdvertisementGatingWindowBase {
		return false
	}
	es.lastGATTAttempt = now
	return true
}

// dispatchFetchLocked invokes the fetcher either inline or on the
// single worker thread, per §5 "Suspension points".
func (t *Tracker) dispatchFetchLocked(ctx context.Context, p Peripheral, header AdvertisementHeader, result *AdvertisementReadResult, interesting []string, fetcher GATTFetcher) {
	numSlots := uint8(header.NumSlots)
	psm, hasPSM := header.PSM, header.HasPSM

	if !t.flags.enableGATTQueryInThread {
		fetcher(ctx, p, numSlots, psm, hasPSM, interesting, result)
		t.onGATTReadCompleteLocked(ctx, p, header, result)
		return
	}

	go func() {
		t.fetchMu.Lock()
		fetcher(ctx, p, numSlots, psm, hasPSM, interesting, result)
		t.fetchMu.Unlock()

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stopped {
			return
		}
		if _, stillTracked := t.readResults[header]; !stillTracked {
			return
		}
		t.onGATTReadCompleteLocked(ctx, p, header, result)
	}()
}

// onGATTReadCompleteLocked implements §4.6 steps 7–9 once the fetcher
// has populated result. Must be called under t.mu.
func (t *Tracker) onGATTReadCompleteLocked(ctx context.Context, p Peripheral, header AdvertisementHeader, result *AdvertisementReadResult) {
	type bestMatch struct {
		id      advertisementID
		version uint8
	}
	bestByService := make(map[string]bestMatch)

	for _, raw := range result.GetAdvertisements() {
		ad, err := LegacyAdvertisementFromBytes(raw, false)
		if err != nil {
			t.log.WithError(err).Debug("gatt advertisement failed to parse")
			continue
		}
		// Content hash of the literal fetched bytes (§4.6 scenario 4:
		// "SHA-256(first_ad)[:4]"), independent of the header's own
		// AdvertisementHash wire field — this is what a forced-loss
		// hash list is compared against.
		contentHash := sha256.Sum256(raw)
		for svcID := range t.services {
			if ServiceIDHash(svcID) != ad.ServiceIDHash {
				continue
			}
			cur, ok := bestByService[svcID]
			if !ok || ad.Version > cur.version {
				id, err := t.internAdvertisement(ad)
				if err != nil {
					continue
				}
				t.advertisementContentHash[id] = [4]byte{contentHash[0], contentHash[1], contentHash[2], contentHash[3]}
				bestByService[svcID] = bestMatch{id: id, version: ad.Version}
			}
		}
	}

	for svcID, match := range bestByService {
		svc, ok := t.services[svcID]
		if !ok {
			continue // stopped mid-flight
		}
		ad := t.arena[match.id]
		t.associateAndNotifyLocked(ctx, svc, header, []advertisementID{match.id}, p, FoundAdvertisement{Legacy: &ad})
	}
}

// associateAndNotifyLocked implements §4.6 steps 8–9, shared by the
// fast path and the post-GATT-parse path. An id that is already
// associated with any service, via any path, never fires found again:
// the first path to associate it wins and later arrivals are dropped
// here. If it is already associated with svc under a different header,
// it is moved to the new header first.
func (t *Tracker) associateAndNotifyLocked(ctx context.Context, svc *trackedService, header AdvertisementHeader, ids []advertisementID, p Peripheral, found FoundAdvertisement) {
	for _, id := range ids {
		if t.isBlockedLocked(t.advertisementContentHash[id]) {
			continue
		}
		if existingSvc, ok := t.advertisementToService[id]; ok {
			if existingSvc == svc.serviceID {
				if oldHeader := t.advertisementToHeader[id]; oldHeader != header {
					t.moveAdvertisementHeaderLocked(id, oldHeader, header)
				}
			}
			continue // already associated (with this or another service): no re-fire
		}

		t.advertisementToService[id] = svc.serviceID
		t.advertisementToHeader[id] = header
		if t.parsedAdvertisements[header] == nil {
			t.parsedAdvertisements[header] = make(map[advertisementID]struct{})
		}
		t.parsedAdvertisements[header][id] = struct{}{}
		svc.lost.RecordFound(id)

		if ctx.Err() != nil {
			continue
		}
		if svc.callbacks.discovered != nil {
			svc.callbacks.discovered(svc.serviceID, p, found)
		}
	}
}

func (t *Tracker) isBlockedLocked(hash [4]byte) bool {
	_, ok := t.blockedHashes[hash]
	return ok
}

// moveAdvertisementHeaderLocked implements the "advertiser moved" case
// of §4.6 step 8: evicts id from oldHeader's advertisement set (and the
// header itself, plus its read result, if that empties it) and records
// it under newHeader instead.
func (t *Tracker) moveAdvertisementHeaderLocked(id advertisementID, oldHeader, newHeader AdvertisementHeader) {
	if set := t.parsedAdvertisements[oldHeader]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(t.parsedAdvertisements, oldHeader)
			delete(t.readResults, oldHeader)
			delete(t.extendedSightings, oldHeader)
		}
	}
	t.advertisementToHeader[id] = newHeader
	if t.parsedAdvertisements[newHeader] == nil {
		t.parsedAdvertisements[newHeader] = make(map[advertisementID]struct{})
	}
	t.parsedAdvertisements[newHeader][id] = struct{}{}
}

// forcedLossHashes extracts the instant-on-lost hash list from a
// sighting, when present. The wire representation of this list is left
// to the caller-supplied advertisement_data's own well-known service-
// data slot; §4.6 describes only its effect, not its encoding, so this
// module accepts it pre-parsed via a dedicated service-data key.
var forcedLossServiceDataHashList = uuid.MustParse("0000fef5-0000-1000-8000-00805f9b34fb")

func forcedLossHashes(p Peripheral) ([][4]byte, bool) {
	raw, ok := p.ServiceData[forcedLossServiceDataHashList]
	if !ok || len(raw)%4 != 0 || len(raw) == 0 {
		return nil, false
	}
	hashes := make([][4]byte, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		var h [4]byte
		copy(h[:], raw[i:i+4])
		hashes = append(hashes, h)
	}
	return hashes, true
}

// processForcedLossLocked implements the forced-loss path of §4.6: with
// the flag off, each matched advertisement's read result is evicted so
// a stale sighting no longer short-circuits on PreviouslySucceeded and
// the normal sweep can reach it; with the flag on, instant_lost_cb
// fires immediately, the association is evicted outright, and the
// advertisement's content hash is blocklisted so later sightings do not
// resurrect it. Matching is keyed on each interned advertisement's
// content hash (advertisementContentHash), not the enclosing header's
// own AdvertisementHash wire field: a forced-loss hash list names
// advertisement content (§4.6 scenario 4: "SHA-256(first_ad)[:4]"), and
// the header's hash is an independent, sender-chosen value that need
// not relate to it at all.
func (t *Tracker) processForcedLossLocked(hashes [][4]byte) {
	wanted := make(map[[4]byte]struct{}, len(hashes))
	for _, h := range hashes {
		wanted[h] = struct{}{}
	}

	for id, contentHash := range t.advertisementContentHash {
		if _, match := wanted[contentHash]; !match {
			continue
		}
		svcID, tracked := t.advertisementToService[id]
		header, hasHeader := t.advertisementToHeader[id]
		if !tracked || !hasHeader {
			continue
		}

		if !t.flags.enableInstantOnLost {
			delete(t.readResults, header)
			continue
		}

		if svc, ok := t.services[svcID]; ok {
			svc.lost.Forget(id)
			if svc.callbacks.instantLost != nil {
				svc.callbacks.instantLost(svcID, contentHash)
			}
		}
		t.evictAdvertisementAssociationLocked(id, header)
		t.blockedHashes[contentHash] = struct{}{}
	}
}

// evictAdvertisementAssociationLocked removes id's association with
// header, cleaning up header's own entries entirely once it has no
// remaining advertisements. The arena itself is left untouched (see
// clearServiceStateLocked).
func (t *Tracker) evictAdvertisementAssociationLocked(id advertisementID, header AdvertisementHeader) {
	delete(t.advertisementToService, id)
	delete(t.advertisementToHeader, id)
	if set := t.parsedAdvertisements[header]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(t.parsedAdvertisements, header)
			delete(t.readResults, header)
			delete(t.extendedSightings, header)
		}
	}
}

// ProcessLostGATTAdvertisements runs the two-phase sweep (§4.6
// "Sweep"): must be called periodically, at roughly
// flags.blePeripheralLostTimeout cadence.
func (t *Tracker) ProcessLostGATTAdvertisements() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for svcID, svc := range t.services {
		lost := svc.lost.ComputeLostEntities()
		for _, id := range lost {
			header, ok := t.advertisementToHeader[id]
			if !ok {
				continue
			}
			ad := t.arena[id]
			delete(t.advertisementToService, id)
			delete(t.advertisementToHeader, id)
			if set := t.parsedAdvertisements[header]; set != nil {
				delete(set, id)
				if len(set) == 0 {
					delete(t.parsedAdvertisements, header)
					delete(t.readResults, header)
					delete(t.extendedSightings, header)
				}
			}
			if svc.callbacks.lost != nil {
				svc.callbacks.lost(svcID, Peripheral{}, FoundAdvertisement{Legacy: &ad})
			}
		}
	}
}

// Stop marks the tracker stopped: in-flight GATT results arriving
// afterward are discarded by dispatchFetchLocked's caller-side check
// (§4.6 "Contract", §5 "Suspension points").
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
