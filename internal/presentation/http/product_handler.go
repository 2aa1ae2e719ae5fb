package httppresentation

import (
	"net/http"
	"time"

	appstock "github.com/shopmesh/shopmesh/internal/application/stock"
	domainproduct "github.com/shopmesh/shopmesh/internal/domain/product"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products *appstock.Service
	log      *zap.Logger
}

func NewProductHandler(products *appstock.Service, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{products: products, log: logger.With(zap.String("component", "http_server"))}
}

func (h *ProductHandler) Register(r *gin.Engine) {
	r.Use(requestLogger(h.log))
	r.GET("/health", handleHealth)

	api := r.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.POST("/products", h.createProduct)
	api.PUT("/products/:id", h.updateProduct)
	api.DELETE("/products/:id", h.deleteProduct)

	// Service-to-service endpoints consumed by the sales service.
	internal := r.Group("/internal")
	internal.GET("/products/:id", h.getProduct)
	internal.POST("/products/:id/check-stock", h.checkStock)
}

type productRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type productResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (h *ProductHandler) listProducts(c *gin.Context) {
	results, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	out := make([]productResponse, 0, len(results))
	for _, p := range results {
		out = append(out, toProductResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) getProduct(c *gin.Context) {
	result, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(result))
}

func (h *ProductHandler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_INPUT", Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.products.CreateProduct(c.Request.Context(), appstock.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(result))
}

func (h *ProductHandler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_INPUT", Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.products.UpdateProduct(c.Request.Context(), c.Param("id"), appstock.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(result))
}

func (h *ProductHandler) deleteProduct(c *gin.Context) {
	if err := h.products.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type checkStockResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Available bool   `json:"available"`
}

func (h *ProductHandler) checkStock(c *gin.Context) {
	var req checkStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "INVALID_INPUT", Message: "invalid request body: " + err.Error()})
		return
	}

	id := c.Param("id")
	available, err := h.products.CheckAvailability(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkStockResponse{ProductID: id, Quantity: req.Quantity, Available: available})
}

func toProductResponse(p *domainproduct.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
