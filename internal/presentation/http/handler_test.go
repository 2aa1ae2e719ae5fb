package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apporder "github.com/shopmesh/shopmesh/internal/application/order"
	appstock "github.com/shopmesh/shopmesh/internal/application/stock"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type staticInventory struct {
	products map[string]*apporder.ProductInfo
}

func (s *staticInventory) FetchProduct(_ context.Context, productID string) (*apporder.ProductInfo, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, apporder.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func newOrderRouter() *gin.Engine {
	store := memory.NewOutboxStore()
	repo := memory.NewOrderRepository(store)
	inv := &staticInventory{products: map[string]*apporder.ProductInfo{
		"p1": {ID: "p1", Name: "Widget", Price: decimal.RequireFromString("50.00"), StockQuantity: 10},
	}}
	svc := apporder.NewService(repo, inv, &seqIDs{}, nil, nil)

	r := gin.New()
	NewOrderHandler(svc, nil).Register(r)
	return r
}

func newProductRouter() *gin.Engine {
	svc := appstock.NewService(memory.NewProductRepository(), &seqIDs{})

	r := gin.New()
	NewProductHandler(svc, nil).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderEndpoint(t *testing.T) {
	r := newOrderRouter()

	body := gin.H{
		"customer_name":  "Ada",
		"customer_email": "ada@example.com",
		"items":          []gin.H{{"product_id": "p1", "quantity": 2}},
	}
	w := doJSON(t, r, http.MethodPost, "/api/orders", body, map[string]string{"X-Customer-ID": "c1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CustomerID != "c1" || resp.Status != "processing" {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.TotalAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("total = %s, want 100.00", resp.TotalAmount)
	}

	// The order is readable back under the same customer.
	w = doJSON(t, r, http.MethodGet, "/api/orders/"+resp.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/orders", nil, map[string]string{"X-Customer-ID": "c1"})
	if w.Code != http.StatusOK {
		t.Errorf("list status = %d", w.Code)
	}
}

func TestCreateOrderRequiresCustomerHeader(t *testing.T) {
	r := newOrderRouter()

	w := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"customer_name":  "Ada",
		"customer_email": "ada@example.com",
		"items":          []gin.H{{"product_id": "p1", "quantity": 1}},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrderErrorMapping(t *testing.T) {
	r := newOrderRouter()
	hdr := map[string]string{"X-Customer-ID": "c1"}

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"unknown product", gin.H{
			"customer_name": "Ada", "customer_email": "a@example.com",
			"items": []gin.H{{"product_id": "ghost", "quantity": 1}},
		}, http.StatusBadRequest},
		{"insufficient stock", gin.H{
			"customer_name": "Ada", "customer_email": "a@example.com",
			"items": []gin.H{{"product_id": "p1", "quantity": 99}},
		}, http.StatusBadRequest},
		{"no items", gin.H{
			"customer_name": "Ada", "customer_email": "a@example.com",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/orders", tt.body, hdr)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	r := newOrderRouter()
	w := doJSON(t, r, http.MethodGet, "/api/orders/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	r := newOrderRouter()

	w := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"customer_name":  "Ada",
		"customer_email": "ada@example.com",
		"items":          []gin.H{{"product_id": "p1", "quantity": 1}},
	}, map[string]string{"X-Customer-ID": "c1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPut, "/api/orders/"+created.ID+"/status", gin.H{"status": "shipped"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ship status = %d, body = %s", w.Code, w.Body.String())
	}

	// shipped orders cannot move back
	w = doJSON(t, r, http.MethodPut, "/api/orders/"+created.ID+"/status", gin.H{"status": "pending"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid transition status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/orders/"+created.ID+"/status", gin.H{"status": "bogus"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", w.Code)
	}
}

func TestProductCRUDEndpoints(t *testing.T) {
	r := newProductRouter()

	w := doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Widget", "description": "a widget", "price": "19.90", "stock_quantity": 5,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created productResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "Widget" || created.StockQuantity != 5 {
		t.Errorf("created = %+v", created)
	}

	w = doJSON(t, r, http.MethodGet, "/api/products/"+created.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/products/"+created.ID, gin.H{
		"name": "Widget v2", "price": "24.90", "stock_quantity": 8,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/products", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("list status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/products/"+created.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/products/"+created.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestProductValidationMapsTo400(t *testing.T) {
	r := newProductRouter()

	w := doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Widget", "price": "-1.00", "stock_quantity": 5,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInternalLookupAndCheckStock(t *testing.T) {
	r := newProductRouter()

	w := doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Widget", "price": "19.90", "stock_quantity": 5,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created productResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/internal/products/"+created.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("internal lookup status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/internal/products/ghost", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("internal lookup ghost status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/internal/products/"+created.ID+"/check-stock", gin.H{"quantity": 5}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("check-stock status = %d, body = %s", w.Code, w.Body.String())
	}
	var check checkStockResponse
	if err := json.Unmarshal(w.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !check.Available {
		t.Error("available = false, want true for quantity 5 of 5")
	}

	w = doJSON(t, r, http.MethodPost, "/internal/products/"+created.ID+"/check-stock", gin.H{"quantity": 6}, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if check.Available {
		t.Error("available = true, want false for quantity 6 of 5")
	}
}

func TestHealthEndpoint(t *testing.T) {
	for name, r := range map[string]*gin.Engine{"orders": newOrderRouter(), "products": newProductRouter()} {
		w := doJSON(t, r, http.MethodGet, "/health", nil, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s /health status = %d", name, w.Code)
		}
	}
}
