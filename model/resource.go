package model

import (
	"math"
	"sync"
	"sync/atomic"
)

// State is the resource lifecycle state (spec §4.1 state machine).
type State int32

const (
	Initializing State = iota
	Downloading
	Downloaded
	Ready
	Failed
	Invalid
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Downloading:
		return "Downloading"
	case Downloaded:
		return "Downloaded"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Validity is the three-way outcome callers actually branch on (§4.1).
type Validity int

const (
	Indeterminate Validity = iota
	ValidityValid
	ValidityInvalid
)

func (s State) Validity() Validity {
	switch s {
	case Ready:
		return ValidityValid
	case Failed, Invalid:
		return ValidityInvalid
	default:
		return Indeterminate
	}
}

// Kind tags the payload carried by a Resource, replacing a virtual
// hierarchy with a closed tagged variant (DESIGN NOTES §9).
type Kind int

const (
	KindRawBuffer Kind = iota
	KindTexture
	KindMesh
	KindMetaTile
	KindMeshAggregate
	KindBoundLayerConfig
	KindMapConfig
	KindGeodataFeatures
	KindGeodataStyle
)

// PriorityTop is the "top" priority sentinel (spec §3); NaN means
// "unprioritised" and is tested with math.IsNaN.
var PriorityTop = float32(math.Inf(1))

// Resource is the cache's unit of bookkeeping. State is accessed with
// atomics so the render thread can read it lock-free while the data
// thread publishes transitions (spec §5).
type Resource struct {
	URL  string
	Kind Kind

	state int32 // atomic, holds a State

	mu              sync.Mutex
	priority        float32
	lastAccessTick  uint64
	RamCost         uint64
	GpuCost         uint64
	RetryNumber     uint32
	RetryAfterTick  uint64
	FetchErr        error
	scheduledAtTick uint64

	// Payload is set exactly once, by the data thread's upload step,
	// immediately before the state transitions to Ready (release-store
	// paired with the render thread's acquire-load of State()).
	payload atomic.Value // holds the typed payload

	refCount int32 // atomic, see Pin/Unpin in pin.go

	seq uint64 // insertion order, for scheduler tie-breaking
}

var seqCounter uint64

// Seq is this resource's insertion order into the cache, used by the
// fetch scheduler to break priority ties (spec §4.2 Ordering).
func (r *Resource) Seq() uint64 { return r.seq }

// NewResource creates an Initializing resource for url/kind. Callers
// should only construct these through Cache.Get.
func NewResource(url string, kind Kind) *Resource {
	r := &Resource{URL: url, Kind: kind, priority: float32(math.NaN())}
	atomic.StoreInt32(&r.state, int32(Initializing))
	r.seq = atomic.AddUint64(&seqCounter, 1)
	return r
}

func (r *Resource) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *Resource) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}

// Validity reports Ready->Valid, Failed/Invalid->Invalid, else Indeterminate.
func (r *Resource) Validity() Validity {
	return r.State().Validity()
}

// Touch sets last_access_tick, protecting the resource from this tick's
// eviction pass.
func (r *Resource) Touch(tick uint64) {
	r.mu.Lock()
	r.lastAccessTick = tick
	r.mu.Unlock()
}

func (r *Resource) LastAccessTick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAccessTick
}

// UpdatePriority sets priority to max(current, p) for this tick; reset
// happens at the frame boundary via ResetPriority. NaN means
// "unprioritised" and loses to any real value.
func (r *Resource) UpdatePriority(p float32) {
	r.mu.Lock()
	cur := r.priority
	if isNaN32(cur) || p > cur {
		r.priority = p
	}
	r.mu.Unlock()
}

func (r *Resource) ResetPriority() {
	r.mu.Lock()
	r.priority = float32(math.NaN())
	r.mu.Unlock()
}

func (r *Resource) Priority() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.priority
}

func isNaN32(f float32) bool { return f != f }

// Payload returns the typed payload, or nil if not yet published.
func (r *Resource) Payload() any {
	return r.payload.Load()
}

// publish stores the decoded+uploaded payload and transitions to Ready.
// Must be called exactly once, from the upload step (spec §4.2).
func (r *Resource) publish(payload any) {
	r.payload.Store(payload)
	r.setState(Ready)
}

// MarkDownloading transitions Initializing -> Downloading.
func (r *Resource) MarkDownloading(tick uint64) {
	r.mu.Lock()
	r.scheduledAtTick = tick
	r.mu.Unlock()
	r.setState(Downloading)
}

// MarkDownloaded transitions Downloading -> Downloaded on HTTP 2xx.
func (r *Resource) MarkDownloaded() { r.setState(Downloaded) }

// retryOrFail returns the next (state, retryAfterTick) given the current
// retry_number and an exponential backoff capped at maxRetries.
func (r *Resource) retryOrFail(now uint64, maxRetries uint32) (State, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RetryNumber >= maxRetries {
		return Failed, r.RetryAfterTick
	}
	r.RetryNumber++
	backoff := uint64(1) << r.RetryNumber // exponential, capped by maxRetries
	r.RetryAfterTick = now + backoff
	return Initializing, r.RetryAfterTick
}

// MarkTransientFailure handles HTTP 5xx / network errors: retries with
// backoff until maxRetries, then Failed.
func (r *Resource) MarkTransientFailure(now uint64, maxRetries uint32, err error) {
	st, _ := r.retryOrFail(now, maxRetries)
	r.mu.Lock()
	r.FetchErr = err
	r.mu.Unlock()
	r.setState(st)
}

// MarkInvalid handles HTTP 4xx or a decode error indicating a permanent
// problem: never retries.
func (r *Resource) MarkInvalid(err error) {
	r.mu.Lock()
	r.FetchErr = err
	r.mu.Unlock()
	r.setState(Invalid)
}

// MarkDecodedOK transitions Downloaded -> Ready via publish.
func (r *Resource) MarkDecodedOK(payload any) {
	r.publish(payload)
}

// MarkDecodeError transitions Downloaded -> Failed (decode error is
// permanent for this attempt, but unlike Invalid it is eligible for a
// manual purge to retry from scratch).
func (r *Resource) MarkDecodeError(err error) {
	r.mu.Lock()
	r.FetchErr = err
	r.mu.Unlock()
	r.setState(Failed)
}

// Purge resets any non-Ready resource to Initializing, clearing retry
// state, per the cancellation protocol in spec §4.2/§5.
func (r *Resource) Purge() {
	if r.State() == Ready {
		return
	}
	r.mu.Lock()
	r.RetryNumber = 0
	r.RetryAfterTick = 0
	r.FetchErr = nil
	r.mu.Unlock()
	r.setState(Initializing)
}

// ReadyForFetch reports whether, at tick now, this resource may be
// (re-)scheduled for fetch: Initializing and past its backoff deadline.
func (r *Resource) ReadyForFetch(now uint64) bool {
	if r.State() != Initializing {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return now >= r.RetryAfterTick
}

// MemCost is the RAM footprint counted against maxResourcesMemory.
func (r *Resource) MemCost() uint64 { return r.RamCost }

// sinceLastAccess is used by the eviction comparator.
func (r *Resource) sinceLastAccess() (tick uint64, negRam int64) {
	return r.LastAccessTick(), -int64(r.RamCost)
}

// touchedWithin reports whether last_access_tick == tick, the invariant
// every published DrawTask must satisfy (spec §3).
func (r *Resource) touchedWithin(tick uint64) bool {
	return r.LastAccessTick() == tick
}
