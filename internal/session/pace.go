package session

import (
	"context"
	"log"
	"math/rand"
	"time"

	"autoapply-engine/internal/config"
)

// Pacer spaces the runner's work out. AfterSuccess runs after each
// confirmed application, BetweenPages between search pages.
type Pacer interface {
	AfterSuccess(ctx context.Context, appliedSoFar int)
	BetweenPages(ctx context.Context)
}

// humanPacer draws the delay between applications from a Gaussian clamped
// to the configured range, and takes a longer uniform pause every Nth
// success.
type humanPacer struct {
	minDelay  time.Duration
	maxDelay  time.Duration
	longEvery int
	longMin   time.Duration
	longMax   time.Duration
	rng       *rand.Rand
	sleep     func(ctx context.Context, d time.Duration)
}

func NewPacer(cfg config.Config) Pacer {
	return &humanPacer{
		minDelay:  time.Duration(cfg.Limits.MinDelaySeconds) * time.Second,
		maxDelay:  time.Duration(cfg.Limits.MaxDelaySeconds) * time.Second,
		longEvery: cfg.Limits.LongPauseEvery,
		longMin:   time.Duration(cfg.Limits.LongPauseMinSeconds) * time.Second,
		longMax:   time.Duration(cfg.Limits.LongPauseMaxSeconds) * time.Second,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     sleepCtx,
	}
}

func (p *humanPacer) AfterSuccess(ctx context.Context, appliedSoFar int) {
	if p.longEvery > 0 && appliedSoFar%p.longEvery == 0 {
		d := uniformDuration(p.rng, p.longMin, p.longMax)
		log.Printf("[session] long pause %s after %d applications", d.Round(time.Second), appliedSoFar)
		p.sleep(ctx, d)
		return
	}
	p.sleep(ctx, gaussDuration(p.rng, p.minDelay, p.maxDelay))
}

func (p *humanPacer) BetweenPages(ctx context.Context) {
	p.sleep(ctx, 2*time.Second)
}

// gaussDuration draws from a Gaussian with mean at the midpoint and sigma
// spanning the range at three deviations, clamped to [lo, hi].
func gaussDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	mean := float64(lo+hi) / 2
	sigma := float64(hi-lo) / 6
	d := time.Duration(rng.NormFloat64()*sigma + mean)
	return clampDuration(d, lo, hi)
}

func uniformDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)))
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
