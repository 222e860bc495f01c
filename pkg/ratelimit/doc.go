// Package ratelimit throttles outbound line delivery.
//
// TokenBucket wraps golang.org/x/time/rate and is the HTTP sink default.
// SlidingWindow caps requests inside a moving window and suits receivers
// that publish a hard "N per period" quota (sink.http.limiter: sliding).
//
//	limiter := ratelimit.NewTokenBucket(20, 5)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
