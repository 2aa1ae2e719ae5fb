// Package httppresentation exposes the application services over HTTP.
// Authentication lives upstream; handlers trust the caller identity passed in
// the X-Customer-ID header.
package httppresentation

import (
	"errors"
	"net/http"
	"time"

	apporder "github.com/shopmesh/shopmesh/internal/application/order"
	domainorder "github.com/shopmesh/shopmesh/internal/domain/order"
	domainproduct "github.com/shopmesh/shopmesh/internal/domain/product"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const headerCustomerID = "X-Customer-ID"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type OrderHandler struct {
	orders *apporder.Service
	log    *zap.Logger
}

func NewOrderHandler(orders *apporder.Service, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orders: orders, log: logger.With(zap.String("component", "http_server"))}
}

func (h *OrderHandler) Register(r *gin.Engine) {
	r.Use(requestLogger(h.log))
	r.GET("/health", handleHealth)

	api := r.Group("/api")
	api.POST("/orders", h.createOrder)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)
	api.PUT("/orders/:id/status", h.updateStatus)
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	CustomerName  string                   `json:"customer_name" binding:"required"`
	CustomerEmail string                   `json:"customer_email" binding:"required"`
	Items         []createOrderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Items         []orderItemResponse `json:"items"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (h *OrderHandler) createOrder(c *gin.Context) {
	customerID := c.GetHeader(headerCustomerID)
	if customerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "MISSING_CUSTOMER", Message: "caller identity header is required"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_INPUT", Message: "invalid request body: " + err.Error()})
		return
	}

	lines := make([]apporder.PlaceOrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, apporder.PlaceOrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), apporder.PlaceOrderInput{
		CustomerID:    customerID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Lines:         lines,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(result))
}

func (h *OrderHandler) getOrder(c *gin.Context) {
	result, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(result))
}

func (h *OrderHandler) listOrders(c *gin.Context) {
	customerID := c.GetHeader(headerCustomerID)
	if customerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "MISSING_CUSTOMER", Message: "caller identity header is required"})
		return
	}

	results, err := h.orders.ListOrdersForCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	out := make([]orderResponse, 0, len(results))
	for _, o := range results {
		out = append(out, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, out)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrderHandler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_INPUT", Message: "invalid request body: " + err.Error()})
		return
	}

	status, err := domainorder.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	result, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(result))
}

func toOrderResponse(o *domainorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, orderItemResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			TotalPrice:  line.Total(),
		})
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainorder.ErrNotFound), errors.Is(err, domainproduct.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domainorder.ErrInvalidOperation),
		errors.Is(err, domainorder.ErrInvalidQuantity),
		errors.Is(err, domainproduct.ErrInvalidProduct),
		errors.Is(err, domainproduct.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_OPERATION", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL", Message: "internal error"})
	}
}
