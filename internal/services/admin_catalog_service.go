package services

import (
	"context"
	"fmt"
	"strings"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"
)

// AdminCatalogService manages the reference data behind the product form
// and checkout: size labels and couriers.
type AdminCatalogService struct {
	Sizes    *repos.SizeRepo
	Couriers *repos.CourierRepo
}

func NewAdminCatalogService(sizes *repos.SizeRepo, couriers *repos.CourierRepo) *AdminCatalogService {
	return &AdminCatalogService{Sizes: sizes, Couriers: couriers}
}

func (s *AdminCatalogService) ListSizes(ctx context.Context) ([]domain.Size, error) {
	return s.Sizes.List(ctx)
}

// SizeLabels is the comma-joined size list used to prefill a Size option.
func (s *AdminCatalogService) SizeLabels(ctx context.Context) (string, error) {
	sizes, err := s.Sizes.List(ctx)
	if err != nil {
		return "", err
	}
	labels := make([]string, len(sizes))
	for i, sz := range sizes {
		labels[i] = sz.Label
	}
	return strings.Join(labels, ", "), nil
}

func (s *AdminCatalogService) AddSize(ctx context.Context, label string) (int64, error) {
	l, ok := validate.Title(label)
	if !ok || len(l) > 12 {
		return 0, fmt.Errorf("%w: size label", domain.ErrInvalidInput)
	}
	return s.Sizes.Create(ctx, l)
}

func (s *AdminCatalogService) DeleteSize(ctx context.Context, id int64) error {
	return s.Sizes.Delete(ctx, id)
}

func (s *AdminCatalogService) ListCouriers(ctx context.Context, activeOnly bool) ([]domain.Courier, error) {
	return s.Couriers.List(ctx, activeOnly)
}

func (s *AdminCatalogService) AddCourier(ctx context.Context, name, fee string) (int64, error) {
	n, ok := validate.Title(name)
	if !ok {
		return 0, fmt.Errorf("%w: courier name", domain.ErrInvalidInput)
	}
	cents, ok := validate.Price(fee)
	if !ok {
		return 0, fmt.Errorf("%w: courier fee", domain.ErrInvalidInput)
	}
	return s.Couriers.Create(ctx, n, cents)
}

func (s *AdminCatalogService) DeleteCourier(ctx context.Context, id int64) error {
	return s.Couriers.Delete(ctx, id)
}
