package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.ProductService
}

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stockQuantity"`
}

func toProductJSON(ps []domain.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, productJSON{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock})
	}
	return out
}

// List returns the paginated catalog.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page := validate.Page(c.Query("page"))
	size := validate.Size(c.Query("size"))
	sortKey := validate.ProductSort(c.Query("sort", "name"))

	products, last, err := h.Catalog.List(page, size, sortKey)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": toProductJSON(products),
		"page": page,
		"last": last,
	})
}
