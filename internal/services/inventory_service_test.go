package services_test

import (
	"errors"
	"testing"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/services"
)

func TestInventoryService_CheckAvailability(t *testing.T) {
	db := memdb(t)
	svc := services.NewInventoryService(repos.NewInventoryRepo(db))

	tests := []struct {
		sku    string
		status string
		qty    int
	}{
		{"oxford-shirt-SWH-001", "IN_STOCK", 8},
		{"oxford-shirt-mbl-004", "LOW_STOCK", 3},
		{"oxford-shirt-LWH-005", "OUT_OF_STOCK", 0},
		{"no-such-sku", "OUT_OF_STOCK", 0},
	}
	for _, tt := range tests {
		a, err := svc.CheckAvailability(tt.sku)
		if err != nil {
			t.Fatal(err)
		}
		if a.Status != tt.status || a.Qty != tt.qty {
			t.Fatalf("%s: want %s(%d), got %+v", tt.sku, tt.status, tt.qty, a)
		}
	}
}

func TestInventoryService_SetStock(t *testing.T) {
	db := memdb(t)
	svc := services.NewInventoryService(repos.NewInventoryRepo(db))

	if _, err := svc.SetStock("p-oxford-v05", "12"); err != nil {
		t.Fatal(err)
	}
	a, _ := svc.CheckAvailability("oxford-shirt-LWH-005")
	if a.Status != "IN_STOCK" || a.Qty != 12 {
		t.Fatalf("want IN_STOCK(12), got %+v", a)
	}
	for _, raw := range []string{"-1", "lots", ""} {
		if _, err := svc.SetStock("p-oxford-v05", raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%q: want ErrInvalidInput, got %v", raw, err)
		}
	}
	if _, err := svc.SetStock("../etc", "1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput for a bad id, got %v", err)
	}
}
