package http

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter caps one connection's inbound messages per minute. A full
// minute's allowance may be spent as a burst.
type rateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:     time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.AllowN(r.now(), 1)
}
