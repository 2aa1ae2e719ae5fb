package stock

import (
	"context"
	"fmt"

	domain "github.com/shopmesh/shopmesh/internal/domain/product"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const componentProductService = "product_service"

// Service manages the product catalog owned by the stock service.
type Service struct {
	repo domain.Repository
	ids  IDGenerator
}

type IDGenerator interface {
	NewID() string
}

func NewService(repo domain.Repository, ids IDGenerator) *Service {
	return &Service{repo: repo, ids: ids}
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	entity, err := domain.New(s.ids.NewID(), input.Name, input.Description, input.Price, input.StockQuantity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("product: create: %w", err)
	}

	logging.FromContext(ctx).Info("product_created",
		zap.String("component", componentProductService),
		zap.String("product_id", entity.ID),
	)
	return entity, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := domain.New(entity.ID, input.Name, input.Description, input.Price, input.StockQuantity)
	if err != nil {
		return nil, err
	}
	updated.CreatedAt = entity.CreatedAt
	updated.Version = entity.Version

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("product: update: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("product_deleted",
		zap.String("component", componentProductService),
		zap.String("product_id", id),
	)
	return nil
}

// CheckAvailability reports whether the product exists and has at least the
// requested quantity in stock.
func (s *Service) CheckAvailability(ctx context.Context, id string, quantity int) (bool, error) {
	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return entity.StockQuantity >= quantity, nil
}
