// Package ratelimit wraps golang.org/x/time/rate for throttling outbound work.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket.
type Limiter struct {
	limiter *rate.Limiter
}

// New allows perSecond events with the given burst. A non-positive
// perSecond disables throttling.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// PerMinute is a convenience for APIs documented in requests per minute.
func PerMinute(requestsPerMinute int) *Limiter {
	burst := requestsPerMinute / 10
	return New(float64(requestsPerMinute)/60.0, burst)
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// SetRate changes the rate in events per second.
func (l *Limiter) SetRate(perSecond float64) {
	if perSecond <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Limit(perSecond))
}
