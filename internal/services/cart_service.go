package services

import (
	"context"

	"threadline/internal/domain"
	"threadline/internal/repos"
)

type CartService struct {
	Carts    *repos.CartRepo
	Variants *repos.VariantRepo
}

func NewCartService(carts *repos.CartRepo, vr *repos.VariantRepo) *CartService {
	return &CartService{Carts: carts, Variants: vr}
}

// Add puts qty of a variant in the session cart at its current price.
func (s *CartService) Add(ctx context.Context, sessionID, variantID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	v, err := s.Variants.ByID(ctx, variantID)
	if err != nil {
		return err
	}
	if !v.IsActive {
		return domain.ErrNotFound
	}
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	return s.Carts.UpsertItem(cartID, v.ID, qty, v.Price)
}

func (s *CartService) Remove(sessionID, variantID string) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	return s.Carts.RemoveItem(cartID, variantID)
}

type CartView struct {
	CartID string
	Items  []repos.CartItemRow
	Total  int64
}

func (s *CartService) View(sessionID string) (CartView, error) {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return CartView{}, err
	}
	items, total, err := s.Carts.View(cartID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{CartID: cartID, Items: items, Total: total}, nil
}
