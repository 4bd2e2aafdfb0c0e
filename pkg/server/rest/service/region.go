package service

import (
	"context"
	"errors"

	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/server"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"go.uber.org/zap"
)

type WorldGraph interface {
	AddRegion(ctx context.Context, name string) (datastructure.RegionID, error)
	RemoveRegion(name string) error
	Regions() []worldgraph.RegionStatus
}

// CacheInvalidator is told when routes computed before a region change
// become stale.
type CacheInvalidator interface {
	InvalidateCache()
}

type RegionService struct {
	g      WorldGraph
	routes CacheInvalidator
	logger *zap.Logger
}

func NewRegionService(g WorldGraph, routes CacheInvalidator, logger *zap.Logger) *RegionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionService{g: g, routes: routes, logger: logger}
}

func (s *RegionService) Regions() []worldgraph.RegionStatus {
	return s.g.Regions()
}

// AddRegion registers the region file name, or refreshes it after a new
// download.
func (s *RegionService) AddRegion(ctx context.Context, name string) (datastructure.RegionID, error) {
	id, err := s.g.AddRegion(ctx, name)
	switch {
	case errors.Is(err, mwm.ErrRegionFileNotFound):
		return id, server.WrapErrorf(err, server.ErrNotFound, "region %s is not on disk", name)
	case errors.Is(err, mwm.ErrBadRegionFile):
		return id, server.WrapErrorf(err, server.ErrBadParamInput, "region file %s is damaged", name)
	case errors.Is(err, catalog.ErrCatalogFull):
		return id, server.WrapErrorf(err, server.ErrConflict, "region catalog is full")
	case err != nil:
		s.logger.Error("adding region", zap.String("region", name), zap.Error(err))
		return id, server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}
	s.routes.InvalidateCache()
	return id, nil
}

func (s *RegionService) RemoveRegion(name string) error {
	err := s.g.RemoveRegion(name)
	switch {
	case errors.Is(err, catalog.ErrUnknownRegion):
		return server.WrapErrorf(err, server.ErrNotFound, "unknown region %s", name)
	case err != nil:
		s.logger.Error("removing region", zap.String("region", name), zap.Error(err))
		return server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}
	s.routes.InvalidateCache()
	return nil
}
