package stock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopmesh/shopmesh/internal/contracts"
	domain "github.com/shopmesh/shopmesh/internal/domain/product"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

func seedProduct(t *testing.T, repo *memory.ProductRepository, id string, quantity int) {
	t.Helper()
	p, err := domain.New(id, "Widget", "", decimal.RequireFromString("50.00"), quantity)
	if err != nil {
		t.Fatalf("product.New: %v", err)
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func stockEvent(t *testing.T, eventID, productID, op string, quantity int) []byte {
	t.Helper()
	payload, err := json.Marshal(contracts.StockUpdateEvent{
		EventID:   eventID,
		ProductID: productID,
		Quantity:  quantity,
		Operation: op,
		OrderID:   "o1",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func quantityOf(t *testing.T, repo *memory.ProductRepository, id string) int {
	t.Helper()
	p, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return p.StockQuantity
}

func TestHandleStockUpdateDecrease(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 10)
	rec := NewReconciler(repo, nil, nil)

	if err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e1", "p1", contracts.OpDecrease, 2)); err != nil {
		t.Fatalf("HandleStockUpdate: %v", err)
	}
	if got := quantityOf(t, repo, "p1"); got != 8 {
		t.Errorf("quantity = %d, want 8", got)
	}
}

func TestHandleStockUpdateIncrease(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 4)
	rec := NewReconciler(repo, nil, nil)

	if err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e1", "p1", contracts.OpIncrease, 3)); err != nil {
		t.Fatalf("HandleStockUpdate: %v", err)
	}
	if got := quantityOf(t, repo, "p1"); got != 7 {
		t.Errorf("quantity = %d, want 7", got)
	}
}

func TestHandleStockUpdateRejectsNegativeResult(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 3)
	rec := NewReconciler(repo, nil, nil)

	err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e1", "p1", contracts.OpDecrease, 5))
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if got := quantityOf(t, repo, "p1"); got != 3 {
		t.Errorf("quantity = %d, want unchanged 3", got)
	}
}

func TestHandleStockUpdateRedeliveryIsNoOp(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 10)
	rec := NewReconciler(repo, nil, nil)

	ev := stockEvent(t, "e1", "p1", contracts.OpDecrease, 2)
	if err := rec.HandleStockUpdate(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := rec.HandleStockUpdate(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := quantityOf(t, repo, "p1"); got != 8 {
		t.Errorf("quantity = %d, want 8 (delta applied once)", got)
	}
}

func TestHandleStockUpdateTokenFallsBackToOrderAndProduct(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 10)
	rec := NewReconciler(repo, nil, nil)

	ev := stockEvent(t, "", "p1", contracts.OpDecrease, 2)
	if err := rec.HandleStockUpdate(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := rec.HandleStockUpdate(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := quantityOf(t, repo, "p1"); got != 8 {
		t.Errorf("quantity = %d, want 8 (delta applied once)", got)
	}
}

func TestHandleStockUpdateUnknownProduct(t *testing.T) {
	repo := memory.NewProductRepository()
	rec := NewReconciler(repo, nil, nil)

	err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e1", "ghost", contracts.OpDecrease, 1))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHandleStockUpdateRejectsBadInput(t *testing.T) {
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", 10)
	rec := NewReconciler(repo, nil, nil)

	if err := rec.HandleStockUpdate(context.Background(), []byte("{not json")); err == nil {
		t.Error("malformed payload: want error")
	}
	if err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e1", "p1", "teleport", 1)); err == nil {
		t.Error("unknown operation: want error")
	}
	if err := rec.HandleStockUpdate(context.Background(), stockEvent(t, "e2", "p1", contracts.OpDecrease, 0)); err == nil {
		t.Error("zero quantity: want error")
	}
	if got := quantityOf(t, repo, "p1"); got != 10 {
		t.Errorf("quantity = %d, want unchanged 10", got)
	}
}
