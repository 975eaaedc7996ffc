package routes

import (
	"context"
	"strings"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/repository"
	"github.com/shopspring/decimal"
)

type RouteUseCase interface {
	List(ctx context.Context) ([]domain.Route, error)
	Search(ctx context.Context, departure, destination string) ([]domain.Route, error)
}

type RouteCache interface {
	GetRoutes(ctx context.Context) ([]domain.Route, error)
	SetRoutes(ctx context.Context, routes []domain.Route) error
	GetBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, bool, error)
	SetBaseFare(ctx context.Context, departure, destination string, fare decimal.Decimal) error
}

type RouteService struct {
	repo        repository.RouteRepository
	cache       RouteCache
	defaultFare decimal.Decimal
	log         logger.Logger
}

// NewRouteService builds the catalog reader. cache may be nil.
func NewRouteService(repo repository.RouteRepository, cache RouteCache, defaultFare decimal.Decimal, log logger.Logger) *RouteService {
	return &RouteService{repo: repo, cache: cache, defaultFare: defaultFare, log: log}
}

func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetRoutes(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	routes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRoutes(ctx, routes); err != nil {
			s.log.Warn("cache routes", "error", err)
		}
	}
	return routes, nil
}

func (s *RouteService) Search(ctx context.Context, departure, destination string) ([]domain.Route, error) {
	return s.repo.Search(ctx, strings.TrimSpace(departure), strings.TrimSpace(destination))
}

// ResolveBaseFare returns the catalog base fare for the pair, or the default
// fare when the catalog has no such route.
func (s *RouteService) ResolveBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, error) {
	if s.cache != nil {
		fare, ok, err := s.cache.GetBaseFare(ctx, departure, destination)
		if err != nil {
			s.log.Warn("read cached fare", "departure", departure, "destination", destination, "error", err)
		} else if ok {
			return fare, nil
		}
	}

	fare, ok, err := s.repo.FindBaseFare(ctx, strings.TrimSpace(departure), strings.TrimSpace(destination))
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		s.log.Debug("no route in catalog, using default fare", "departure", departure, "destination", destination)
		fare = s.defaultFare
	}

	if s.cache != nil {
		if err := s.cache.SetBaseFare(ctx, departure, destination, fare); err != nil {
			s.log.Warn("cache fare", "error", err)
		}
	}
	return fare, nil
}

var _ RouteUseCase = (*RouteService)(nil)
