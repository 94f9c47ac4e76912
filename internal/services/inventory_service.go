package services

import (
	"errors"
	"strings"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"
)

// LowStockThreshold is the level below which a variant shows as LOW_STOCK.
const LowStockThreshold = 5

type InventoryService struct {
	Inv *repos.InventoryRepo
}

func NewInventoryService(inv *repos.InventoryRepo) *InventoryService {
	return &InventoryService{Inv: inv}
}

// StatusFor converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func StatusFor(qty int) string {
	switch {
	case qty >= LowStockThreshold:
		return "IN_STOCK"
	case qty > 0:
		return "LOW_STOCK"
	default:
		return "OUT_OF_STOCK"
	}
}

// CheckAvailability looks a variant up by SKU. Unknown or inactive SKUs are
// reported as out of stock.
func (s *InventoryService) CheckAvailability(sku string) (domain.Availability, error) {
	qty, err := s.Inv.StockBySKU(strings.TrimSpace(sku))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}
	return domain.Availability{Status: StatusFor(qty), Qty: qty}, nil
}

func (s *InventoryService) List() ([]repos.InventoryRow, error) {
	return s.Inv.ListAll()
}

// SetStock parses and stores an admin-entered stock level.
func (s *InventoryService) SetStock(variantID, raw string) (int, error) {
	id, ok := validate.ID(variantID)
	if !ok {
		return 0, domain.ErrInvalidInput
	}
	qty, ok := validate.Stock(raw)
	if !ok {
		return 0, domain.ErrInvalidInput
	}
	return qty, s.Inv.SetStock(id, qty)
}
