package core

import (
	"context"
	"fmt"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListJobs returns one page of import history. page is 1-based.
func (s *Service) ListJobs(ctx context.Context, page, pageSize int) (ImportHistory, error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return ImportHistory{}, fmt.Errorf("%w: page=%d pageSize=%d", ErrInvalidPage, page, pageSize)
	}

	offset := (page - 1) * pageSize
	jobs, total, err := s.store.FetchJobs(ctx, pageSize, offset)
	if err != nil {
		return ImportHistory{}, fmt.Errorf("fetch import jobs: %w", err)
	}
	if jobs == nil {
		jobs = []ImportJob{}
	}

	return ImportHistory{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    jobs,
	}, nil
}

// ListRegions returns stored regions ordered by code.
func (s *Service) ListRegions(ctx context.Context, page, pageSize int) ([]Region, error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page=%d pageSize=%d", ErrInvalidPage, page, pageSize)
	}
	regions, err := s.store.ListRegions(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	if regions == nil {
		regions = []Region{}
	}
	return regions, nil
}
