// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"

	"github.com/urnamapa/urnamapa/spatial"
	"golang.org/x/time/rate"
)

// RateLimited shapes calls to the wrapped Geocoder with a token bucket.
type RateLimited struct {
	next    Geocoder
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls per second with a burst of one
// second worth of calls.
func NewRateLimited(next Geocoder, perSecond float64) *RateLimited {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Geocode waits for a token, then delegates.
func (r *RateLimited) Geocode(ctx context.Context, address string) (spatial.Point, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return spatial.Point{}, classifyTransportError(err)
		}

		// the limiter refuses early when the deadline can't be met
		return spatial.Point{}, &Error{Type: ErrorTypeTimeout, Message: "waiting for rate limiter", Err: err}
	}

	return r.next.Geocode(ctx, address)
}
