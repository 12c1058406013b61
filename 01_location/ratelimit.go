package location

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"eco-reel-pipeline/types"
)

// RateLimited wraps a Source with a token-bucket limiter
type RateLimited struct {
	source  Source
	limiter *rate.Limiter
	name    string
}

var _ Source = (*RateLimited)(nil)

// NewRateLimited allows rps requests per second (fractional is fine) with the given burst
func NewRateLimited(src Source, rps float64, burst int) *RateLimited {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		source:  src,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", src.Name()),
	}
}

// GetReading waits for a token or ctx, then forwards
func (r *RateLimited) GetReading(ctx context.Context, location string) (types.LocationReading, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return types.LocationReading{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.source.GetReading(ctx, location)
}

func (r *RateLimited) Name() string {
	return r.name
}
