package lms

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
)

// ctxHeader carries the key of the caller's context through colly, which
// builds its requests without one. It never leaves the process.
const ctxHeader = "X-Chronicler-Ctx"

// contextTransport runs each request under the context it was bound to, so a
// cancelled caller aborts the request in flight.
type contextTransport struct {
	base http.RoundTripper
	seq  atomic.Uint64
	ctxs sync.Map // key -> context.Context
}

func newContextTransport(base http.RoundTripper) *contextTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &contextTransport{base: base}
}

// bind tags hdr with ctx until the returned release func is called.
func (t *contextTransport) bind(ctx context.Context, hdr http.Header) (release func()) {
	key := strconv.FormatUint(t.seq.Add(1), 10)
	t.ctxs.Store(key, ctx)
	hdr.Set(ctxHeader, key)
	return func() { t.ctxs.Delete(key) }
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.Header.Get(ctxHeader)
	if key == "" {
		return t.base.RoundTrip(req)
	}
	ctx := req.Context()
	if v, ok := t.ctxs.Load(key); ok {
		ctx = v.(context.Context)
	}
	out := req.Clone(ctx)
	out.Header.Del(ctxHeader)
	return t.base.RoundTrip(out)
}
