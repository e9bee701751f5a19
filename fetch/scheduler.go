// Package fetch implements the Fetch Scheduler (spec §4.2): the single
// data-thread consumer that drains the Resource Cache's pending
// Initializing resources, highest priority first, and runs each
// through fetch -> decode -> upload.
//
// Grounded on tile_proxy/webtile_downloader.go's concurrent-download
// shape (semaphore-bounded goroutines, context-scoped retry with
// exponential backoff) generalized from "download N map tiles" to "run
// the priority queue forever".
package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GrainArc/vtsclient/decode"
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
)

// Uploader is the two-phase decode->upload sink (spec §4.2): the GPU
// context is shared with the render thread through this collaborator.
// Upload is the only place userData (the resource's payload) may be
// set, immediately before the Ready transition.
type Uploader interface {
	Upload(kind model.Kind, decoded any) (payload any, ramCost, gpuCost uint64, err error)
}

// PassthroughUploader treats the decoded payload as already in its
// final, renderer-ready form (no separate GPU object to build) — the
// default for kinds like MetaTile/MapConfig/GeodataFeatures that never
// touch the GPU.
type PassthroughUploader struct{}

func (PassthroughUploader) Upload(_ model.Kind, decoded any) (any, uint64, uint64, error) {
	return decoded, 0, 0, nil
}

// Options configures the scheduler's backoff and concurrency.
type Options struct {
	MaxConcurrentDownloads int
	MaxRetries             uint32
}

func DefaultOptions() Options {
	return Options{MaxConcurrentDownloads: 8, MaxRetries: 6}
}

// Scheduler is the data-thread side of the engine. One Scheduler per
// Cache; Run blocks until ctx is cancelled.
type Scheduler struct {
	cache   *rescache.Cache
	fetcher HTTPFetcher
	decode  decode.Func
	upload  Uploader
	opts    Options

	// pending maps each resource's URL to the resource awaiting fetch;
	// populated by the render thread via Enqueue.
	mu      sync.Mutex
	pending map[string]*model.Resource
	wake    chan struct{}

	sem chan struct{}
}

// New builds a Scheduler over cache. decodeFn and uploader may be nil
// to fall back to RawPassthrough/PassthroughUploader.
func New(cache *rescache.Cache, fetcher HTTPFetcher, decodeFn decode.Func, uploader Uploader, opts Options) *Scheduler {
	if fetcher == nil {
		fetcher = NewDefaultHTTPFetcher()
	}
	if decodeFn == nil {
		decodeFn = decode.RawPassthrough
	}
	if uploader == nil {
		uploader = PassthroughUploader{}
	}
	if opts.MaxConcurrentDownloads <= 0 {
		opts.MaxConcurrentDownloads = 1
	}
	return &Scheduler{
		cache:   cache,
		fetcher: fetcher,
		decode:  decodeFn,
		upload:  uploader,
		opts:    opts,
		pending: make(map[string]*model.Resource),
		wake:    make(chan struct{}, 1),
		sem:     make(chan struct{}, opts.MaxConcurrentDownloads),
	}
}

// Enqueue is called by the render thread each frame: it scans the
// cache for Initializing resources past their retry deadline and adds
// them to the pending set. Safe to call every frame; already-pending
// resources are a no-op.
func (s *Scheduler) Enqueue() {
	now := s.cache.CurrentTick()
	added := false
	s.mu.Lock()
	for _, r := range s.cache.All() {
		if _, ok := s.pending[r.URL]; ok {
			continue
		}
		if r.ReadyForFetch(now) {
			s.pending[r.URL] = r
			added = true
		}
	}
	s.mu.Unlock()
	if added {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// drain pops every currently pending resource into a priority-sorted
// slice: descending priority, ties broken by insertion order (spec
// §4.2 Ordering). This is the "per-frame sorted list" DESIGN NOTES §9
// calls for instead of a reheapified priority queue.
func (s *Scheduler) drain() []*model.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Resource, 0, len(s.pending))
	for url, r := range s.pending {
		out = append(out, r)
		delete(s.pending, url)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Priority(), out[j].Priority()
		iNaN, jNaN := pi != pi, pj != pj
		if iNaN != jNaN {
			return jNaN // NaN sorts last
		}
		if !iNaN && pi != pj {
			return pi > pj
		}
		return out[i].Seq() < out[j].Seq()
	})
	return out
}

// Run is the data-thread loop: blocks on the wake channel when there
// is nothing pending, otherwise drains and processes, bounded by
// MaxConcurrentDownloads in flight at once.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		batch := s.drain()
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		for _, r := range batch {
			select {
			case <-ctx.Done():
				return
			case s.sem <- struct{}{}:
			}
			wg.Add(1)
			go func(r *model.Resource) {
				defer wg.Done()
				defer func() { <-s.sem }()
				s.process(ctx, r)
			}(r)
		}
	}
}

// process runs one resource through fetch -> decode -> upload,
// applying the state machine of spec §4.1.
func (s *Scheduler) process(ctx context.Context, r *model.Resource) {
	now := s.cache.CurrentTick()
	r.MarkDownloading(now)

	status, body, err := s.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down; the in-flight fetch's result is moot
		}
		r.MarkTransientFailure(now, s.opts.MaxRetries, model.NewFetchError(model.ErrTransient, r.URL, err))
		return
	}

	switch {
	case status >= 200 && status < 300:
		r.MarkDownloaded()
	case status >= 400 && status < 500:
		r.MarkInvalid(model.NewFetchError(model.ErrPermanent, r.URL, fmt.Errorf("HTTP %d", status)))
		return
	case status >= 500:
		r.MarkTransientFailure(now, s.opts.MaxRetries, model.NewFetchError(model.ErrTransient, r.URL, fmt.Errorf("HTTP %d", status)))
		return
	default:
		r.MarkTransientFailure(now, s.opts.MaxRetries, model.NewFetchError(model.ErrTransient, r.URL, fmt.Errorf("unexpected status: HTTP %d", status)))
		return
	}

	decompressed, err := decode.Decompress(body)
	if err != nil {
		r.MarkDecodeError(model.NewFetchError(model.ErrPermanent, r.URL, fmt.Errorf("decompress: %w", err)))
		return
	}

	decoded, err := s.decode(r.Kind, decompressed)
	if err != nil {
		r.MarkDecodeError(model.NewFetchError(model.ErrPermanent, r.URL, fmt.Errorf("decode: %w", err)))
		return
	}

	payload, ramCost, gpuCost, err := s.upload.Upload(r.Kind, decoded)
	if err != nil {
		r.MarkDecodeError(model.NewFetchError(model.ErrPermanent, r.URL, fmt.Errorf("upload: %w", err)))
		return
	}

	r.RamCost = ramCost
	r.GpuCost = gpuCost
	r.MarkDecodedOK(payload) // publish: the only place userData is set
}
