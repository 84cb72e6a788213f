package rest

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type bucketState struct {
	waitUntil time.Time
	queue     []*Request
}

// Registry tracks per-bucket cool-down windows and the async requests
// queued behind them. The compound check-then-insert around a violation is
// serialized per registry; network calls themselves are not.
type Registry struct {
	mu      sync.Mutex
	logger  *zap.SugaredLogger
	buckets map[string]*bucketState
	redrive func(*Request)
	now     func() time.Time
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:  logger.Sugar(),
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
}

// SetRedrive installs the dispatch func invoked for each queued request
// once its bucket's cool-down expires. Set exactly once, by the executor.
func (r *Registry) SetRedrive(fn func(*Request)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redrive = fn
}

// Reserve performs the pre-flight check against the request's candidate
// bucket ids. It reports queued=true when an async request was put on a
// cooling bucket's queue; a synchronous request facing a cool-down gets a
// RateLimitError naming the bucket, without any network call.
func (r *Registry) Reserve(req *Request) (queued bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range req.Buckets {
		st, ok := r.buckets[b]
		if !ok || !st.waitUntil.After(r.now()) {
			continue
		}
		if req.Async {
			st.queue = append(st.queue, req)
			queuedRequests.Inc()
			r.logger.Debugf("Queued request %s behind bucket %s.", req.ID(), b)
			return true, nil
		}
		return false, &RateLimitError{Bucket: b}
	}
	return false, nil
}

// Limited reports whether the bucket currently has an active cool-down.
func (r *Registry) Limited(bucket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.buckets[bucket]
	return ok && st.waitUntil.After(r.now())
}

// Limit records a cool-down for the authoritative bucket id valid until
// now+retryAfter and schedules a redrive at expiry. A non-nil initial
// request (the async request that triggered the violation) becomes the
// head of the bucket's queue.
func (r *Registry) Limit(bucket string, retryAfter time.Duration, initial *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.buckets[bucket]
	if !ok {
		st = &bucketState{}
		r.buckets[bucket] = st
		time.AfterFunc(retryAfter, func() { r.expire(bucket) })
	}
	st.waitUntil = r.now().Add(retryAfter)
	if initial != nil {
		st.queue = append(st.queue, initial)
		queuedRequests.Inc()
	}
	r.logger.Infof("Bucket %s rate limited for %s.", bucket, retryAfter)
}

// expire drains the bucket's queue through the redrive func once the
// cool-down has truly passed; a window extended by a second violation gets
// a rescheduled timer instead.
func (r *Registry) expire(bucket string) {
	r.mu.Lock()
	st, ok := r.buckets[bucket]
	if !ok {
		r.mu.Unlock()
		return
	}
	if remaining := st.waitUntil.Sub(r.now()); remaining > 0 {
		time.AfterFunc(remaining, func() { r.expire(bucket) })
		r.mu.Unlock()
		return
	}
	delete(r.buckets, bucket)
	queue := st.queue
	redrive := r.redrive
	r.mu.Unlock()

	if len(queue) == 0 {
		return
	}
	r.logger.Debugf("Bucket %s cool-down expired, redriving %d queued requests.", bucket, len(queue))
	for _, req := range queue {
		queuedRequests.Dec()
		if redrive != nil {
			redrive(req)
		}
	}
}
