package ai

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// fallbackHost buckets calls whose endpoint URL cannot be parsed, so even
// malformed provider config stays rate limited.
const fallbackHost = "unparsed-endpoint"

// HostLimiter spaces provider calls per endpoint host. The letter cascade
// can try several models against one provider back to back; this keeps
// those retries from hammering it.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(reqPerSec),
		burst:    burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	lim, ok := hl.limiters[host]
	if !ok {
		lim = rate.NewLimiter(hl.perSec, hl.burst)
		hl.limiters[host] = lim
	}
	return lim
}

// WaitURL blocks until the host behind the given endpoint URL may be
// called again, or the context ends.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	host := fallbackHost
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	return hl.limiterFor(host).Wait(ctx)
}
