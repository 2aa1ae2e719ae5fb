package stock

import (
	"context"
	"errors"
	"testing"

	domain "github.com/shopmesh/shopmesh/internal/domain/product"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

type fixedIDs struct{ next string }

func (f *fixedIDs) NewID() string { return f.next }

func newProductService() (*Service, *memory.ProductRepository) {
	repo := memory.NewProductRepository()
	return NewService(repo, &fixedIDs{next: "p1"}), repo
}

func validInput() ProductInput {
	return ProductInput{
		Name:          "Widget",
		Description:   "a widget",
		Price:         decimal.RequireFromString("19.90"),
		StockQuantity: 5,
	}
}

func TestCreateProduct(t *testing.T) {
	svc, repo := newProductService()

	created, err := svc.CreateProduct(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.ID != "p1" {
		t.Errorf("id = %s, want p1", created.ID)
	}

	stored, err := repo.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Name != "Widget" || stored.StockQuantity != 5 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newProductService()

	tests := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{Price: decimal.RequireFromString("1.00"), StockQuantity: 1}},
		{"zero price", ProductInput{Name: "Widget", StockQuantity: 1}},
		{"negative price", ProductInput{Name: "Widget", Price: decimal.RequireFromString("-1.00"), StockQuantity: 1}},
		{"negative quantity", ProductInput{Name: "Widget", Price: decimal.RequireFromString("1.00"), StockQuantity: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateProduct(context.Background(), tt.input); !errors.Is(err, domain.ErrInvalidProduct) {
				t.Errorf("err = %v, want ErrInvalidProduct", err)
			}
		})
	}
}

func TestUpdateProductKeepsIdentity(t *testing.T) {
	svc, _ := newProductService()

	created, err := svc.CreateProduct(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	input := validInput()
	input.Name = "Widget v2"
	input.StockQuantity = 8

	updated, err := svc.UpdateProduct(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed: %s -> %s", created.ID, updated.ID)
	}
	if updated.Name != "Widget v2" || updated.StockQuantity != 8 {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %s -> %s", created.CreatedAt, updated.CreatedAt)
	}
}

func TestUpdateProductUnknown(t *testing.T) {
	svc, _ := newProductService()
	if _, err := svc.UpdateProduct(context.Background(), "ghost", validInput()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	svc, repo := newProductService()

	created, err := svc.CreateProduct(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if err := svc.DeleteProduct(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := repo.Get(context.Background(), created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteProduct(context.Background(), created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	svc, _ := newProductService()

	created, err := svc.CreateProduct(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	ok, err := svc.CheckAvailability(context.Background(), created.ID, 5)
	if err != nil || !ok {
		t.Errorf("CheckAvailability(5) = %v, %v, want true", ok, err)
	}
	ok, err = svc.CheckAvailability(context.Background(), created.ID, 6)
	if err != nil || ok {
		t.Errorf("CheckAvailability(6) = %v, %v, want false", ok, err)
	}
	if _, err := svc.CheckAvailability(context.Background(), "ghost", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown product err = %v, want ErrNotFound", err)
	}
}

func TestGetProductEmptyID(t *testing.T) {
	svc, _ := newProductService()
	if _, err := svc.GetProduct(context.Background(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
