// Package stockclient implements the sales-service side of the stock service's
// internal product lookup endpoint.
package stockclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apporder "github.com/shopmesh/shopmesh/internal/application/order"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultTimeout = 3 * time.Second

// Client fetches authoritative product snapshots over HTTP. Lookups carry a
// short bounded timeout; transport faults and non-success responses map to
// ErrInventoryUnavailable, a missing product to ErrProductNotFound.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type productResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (c *Client) FetchProduct(ctx context.Context, productID string) (*apporder.ProductInfo, error) {
	url := fmt.Sprintf("%s/internal/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apporder.ErrInventoryUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.FromContext(ctx).Warn("stock_service_unreachable",
			zap.String("component", "stock_client"),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", apporder.ErrInventoryUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, apporder.ErrProductNotFound
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", apporder.ErrInventoryUnavailable, resp.StatusCode)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apporder.ErrInventoryUnavailable, err)
	}
	if body.ID == "" {
		return nil, errors.New("stockclient: response missing product id")
	}

	return &apporder.ProductInfo{
		ID:            body.ID,
		Name:          body.Name,
		Price:         body.Price,
		StockQuantity: body.StockQuantity,
	}, nil
}
