package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

// ProductRequest is a catalog admission or edit.
type ProductRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stockQuantity"`
}

// ProductCreationError reports one request that could not be admitted.
type ProductCreationError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type ProductCreateResult struct {
	Created []domain.Product       `json:"created"`
	Errors  []ProductCreationError `json:"errors"`
}

// ProductService covers catalog admission and edits. Stock mutation
// during order flow never goes through here; that is the inventory
// adjuster's job.
type ProductService struct {
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Clock    Clock
}

func NewProductService(products *repos.ProductRepo, orders *repos.OrderRepo, clock Clock) *ProductService {
	return &ProductService{Products: products, Orders: orders, Clock: clock}
}

func (s *ProductService) Get(id string) (domain.Product, error) {
	return s.Products.Get(id)
}

func (s *ProductService) List(page, size int, sortKey string) ([]domain.Product, bool, error) {
	return s.Products.List(page, size, sortKey)
}

// Search resolves a product by id, or by name fragment when no id is
// given.
func (s *ProductService) Search(id, name string, page, size int) ([]domain.Product, bool, error) {
	if id != "" {
		p, err := s.Products.Get(id)
		if err != nil {
			return nil, false, err
		}
		return []domain.Product{p}, true, nil
	}
	if name == "" {
		return nil, false, fmt.Errorf("%w: product id or name is required", domain.ErrInvalidRequest)
	}
	products, last, err := s.Products.SearchByName(name, page, size)
	if err != nil {
		return nil, false, err
	}
	if len(products) == 0 {
		return nil, false, fmt.Errorf("%w: products containing name %q", domain.ErrNotFound, name)
	}
	return products, last, nil
}

// Create admits a new product. Failures are reported per request so a
// caller submitting several can see which ones stuck.
func (s *ProductService) Create(req ProductRequest) (ProductCreateResult, error) {
	if err := validateRequest(req); err != nil {
		return ProductCreateResult{}, err
	}

	var res ProductCreateResult
	exists, err := s.Products.ExistsByName(req.Name)
	if err != nil {
		return res, err
	}
	if exists {
		applog.Warn("product.duplicate_name", map[string]any{"name": req.Name})
		res.Errors = append(res.Errors, ProductCreationError{Name: req.Name, Message: "product with this name already exists"})
		return res, nil
	}

	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		Stock:     req.Stock,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Products.Insert(p); err != nil {
		return res, err
	}
	res.Created = append(res.Created, p)
	applog.Info("product.created", map[string]any{"product_id": p.ID, "name": p.Name})
	return res, nil
}

// Update applies catalog edits keyed by product id. Unchanged products
// are returned as-is without a write.
func (s *ProductService) Update(reqs map[string]ProductRequest) ([]domain.Product, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no updates provided", domain.ErrInvalidRequest)
	}
	out := make([]domain.Product, 0, len(reqs))
	for id, req := range reqs {
		if err := validateRequest(req); err != nil {
			return nil, err
		}
		p, err := s.Products.Get(id)
		if err != nil {
			return nil, err
		}
		if p.Name == req.Name && p.Price.Equal(req.Price) && p.Stock == req.Stock {
			out = append(out, p)
			continue
		}
		p.Name = req.Name
		p.Price = req.Price
		p.Stock = req.Stock
		if err := s.Products.Update(p, s.Clock.Now()); err != nil {
			return nil, err
		}
		applog.Info("product.updated", map[string]any{"product_id": id, "name": p.Name})
		out = append(out, p)
	}
	return out, nil
}

// Delete removes a product unless an order in a non-terminal-release
// state still references it.
func (s *ProductService) Delete(id string) (domain.Product, error) {
	p, err := s.Products.Get(id)
	if err != nil {
		return domain.Product{}, err
	}
	active, err := s.Orders.ProductInActiveOrders(id)
	if err != nil {
		return domain.Product{}, err
	}
	if active {
		return domain.Product{}, fmt.Errorf("%w: product %s is referenced by active orders", domain.ErrInvalidRequest, id)
	}
	if err := s.Products.Delete(id); err != nil {
		return domain.Product{}, err
	}
	applog.Info("product.deleted", map[string]any{"product_id": id, "name": p.Name})
	return p, nil
}

func validateRequest(req ProductRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: product name must not be blank", domain.ErrInvalidRequest)
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRequest)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", domain.ErrInvalidRequest)
	}
	return nil
}
