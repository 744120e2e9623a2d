// Package noop provides a ResultCache that never stores anything.
package noop

import (
	"context"

	"ddtft/internal/domain"
	"ddtft/internal/port"
)

type resultCache struct{}

// NewResultCache returns a cache that always misses.
func NewResultCache() port.ResultCache {
	return resultCache{}
}

func (resultCache) Get(context.Context, string) (*domain.ExtractionRecord, error) {
	return nil, domain.ErrCacheMiss
}

func (resultCache) Set(context.Context, string, *domain.ExtractionRecord) error {
	return nil
}
