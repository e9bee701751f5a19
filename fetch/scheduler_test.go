package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
)

// fakeFetcher serves canned (status, body, err) triples keyed by URL,
// counting how many times each URL was fetched.
type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	resp  map[string]struct {
		status int
		body   []byte
		err    error
	}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[string]int),
		resp: make(map[string]struct {
			status int
			body   []byte
			err    error
		}),
	}
}

func (f *fakeFetcher) set(url string, status int, body []byte, err error) {
	f.resp[url] = struct {
		status int
		body   []byte
		err    error
	}{status, body, err}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()
	r := f.resp[url]
	return r.status, r.body, r.err
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func runSchedulerFor(t *testing.T, sched *Scheduler, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	<-ctx.Done()
	<-done
}

func TestSchedulerFetchSuccessPublishesPayload(t *testing.T) {
	cache := rescache.New(0, 0)
	fetcher := newFakeFetcher()
	fetcher.set("http://example.com/ok", 200, []byte("data"), nil)

	r := cache.Get("http://example.com/ok", model.KindRawBuffer)

	sched := New(cache, fetcher, nil, nil, Options{MaxConcurrentDownloads: 2, MaxRetries: 3})
	sched.Enqueue()
	runSchedulerFor(t, sched, 100*time.Millisecond)

	if r.State() != model.Ready {
		t.Fatalf("state after successful fetch = %v, want Ready", r.State())
	}
	rb, ok := r.Payload().(*model.RawBuffer)
	if !ok || string(rb.Bytes) != "data" {
		t.Fatalf("payload = %v, want RawBuffer{data}", r.Payload())
	}
}

func TestSchedulerHTTP4xxIsPermanent(t *testing.T) {
	cache := rescache.New(0, 0)
	fetcher := newFakeFetcher()
	fetcher.set("http://example.com/missing", 404, nil, nil)

	r := cache.Get("http://example.com/missing", model.KindRawBuffer)

	sched := New(cache, fetcher, nil, nil, Options{MaxConcurrentDownloads: 2, MaxRetries: 3})
	sched.Enqueue()
	runSchedulerFor(t, sched, 100*time.Millisecond)

	if r.State() != model.Invalid {
		t.Fatalf("state after 404 = %v, want Invalid", r.State())
	}
	var fe *model.FetchError
	if !errors.As(r.FetchErr, &fe) || fe.Kind != model.ErrPermanent {
		t.Fatalf("FetchErr = %v, want a permanent FetchError", r.FetchErr)
	}
}

func TestSchedulerTransientFailureRetriesThenFails(t *testing.T) {
	cache := rescache.New(0, 0)
	fetcher := newFakeFetcher()
	fetcher.set("http://example.com/flaky", 503, nil, nil)

	r := cache.Get("http://example.com/flaky", model.KindRawBuffer)

	sched := New(cache, fetcher, nil, nil, Options{MaxConcurrentDownloads: 2, MaxRetries: 1})

	sched.Enqueue()
	runSchedulerFor(t, sched, 50*time.Millisecond)
	if r.State() != model.Initializing {
		t.Fatalf("state after 1st 503 = %v, want Initializing (retrying)", r.State())
	}

	// fast-forward past the backoff deadline by advancing the cache tick.
	for i := 0; i < 10; i++ {
		cache.BeginTick()
	}
	sched.Enqueue()
	runSchedulerFor(t, sched, 50*time.Millisecond)

	if r.State() != model.Failed {
		t.Fatalf("state after exhausting retries = %v, want Failed", r.State())
	}
	if fetcher.callCount("http://example.com/flaky") < 2 {
		t.Fatalf("expected at least 2 fetch attempts, got %d", fetcher.callCount("http://example.com/flaky"))
	}
}

func TestSchedulerDecodeErrorIsPermanent(t *testing.T) {
	cache := rescache.New(0, 0)
	fetcher := newFakeFetcher()
	fetcher.set("http://example.com/bad-payload", 200, []byte("garbage"), nil)

	r := cache.Get("http://example.com/bad-payload", model.KindRawBuffer)

	failingDecode := func(kind model.Kind, raw []byte) (any, error) {
		return nil, errors.New("cannot parse")
	}
	sched := New(cache, fetcher, failingDecode, nil, Options{MaxConcurrentDownloads: 2, MaxRetries: 3})
	sched.Enqueue()
	runSchedulerFor(t, sched, 100*time.Millisecond)

	if r.State() != model.Failed {
		t.Fatalf("state after decode error = %v, want Failed", r.State())
	}
}

func TestEnqueueIsIdempotentForAlreadyPendingResource(t *testing.T) {
	cache := rescache.New(0, 0)
	fetcher := newFakeFetcher()
	fetcher.set("http://example.com/slow", 200, []byte("x"), nil)
	cache.Get("http://example.com/slow", model.KindRawBuffer)

	sched := New(cache, fetcher, nil, nil, Options{MaxConcurrentDownloads: 1, MaxRetries: 3})
	sched.Enqueue()
	sched.Enqueue()
	sched.Enqueue()

	if len(sched.pending) != 1 {
		t.Fatalf("pending set after repeated Enqueue = %d entries, want 1", len(sched.pending))
	}
}
