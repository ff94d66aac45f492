package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Catalog *services.ProductService
	Orders  *services.OrderService
}

func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req services.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: malformed product body", domain.ErrInvalidRequest)
	}
	res, err := h.Catalog.Create(req)
	if err != nil {
		return err
	}
	applog.Request(c, "admin.product.create", map[string]any{
		"created": len(res.Created), "failed": len(res.Errors),
	})
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdateProducts patches several products at once, keyed by id.
func (h *AdminHandler) UpdateProducts(c *fiber.Ctx) error {
	var body map[string]services.ProductRequest
	if err := c.BodyParser(&body); err != nil {
		return fmt.Errorf("%w: malformed update body", domain.ErrInvalidRequest)
	}
	reqs := make(map[string]services.ProductRequest, len(body))
	for rawID, req := range body {
		id, ok := validate.ID(rawID)
		if !ok {
			return fmt.Errorf("%w: %q is not a valid product id", domain.ErrInvalidRequest, rawID)
		}
		reqs[id] = req
	}
	updated, err := h.Catalog.Update(reqs)
	if err != nil {
		return err
	}
	applog.Request(c, "admin.product.update", map[string]any{"count": len(updated)})
	return c.JSON(fiber.Map{"data": toProductJSON(updated)})
}

func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fmt.Errorf("%w: invalid product id", domain.ErrInvalidRequest)
	}
	p, err := h.Catalog.Delete(id)
	if err != nil {
		return err
	}
	applog.Request(c, "admin.product.delete", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"data": toProductJSON([]domain.Product{p})[0]})
}

// SearchProducts resolves by id when given, else by name fragment.
func (h *AdminHandler) SearchProducts(c *fiber.Ctx) error {
	var id string
	if raw := c.Query("productId"); raw != "" {
		var ok bool
		if id, ok = validate.ID(raw); !ok {
			return fmt.Errorf("%w: %q is not a valid product id", domain.ErrInvalidRequest, raw)
		}
	}
	name, _ := validate.Name(c.Query("productName"))
	page := validate.Page(c.Query("page"))
	size := validate.Size(c.Query("size"))

	products, last, err := h.Catalog.Search(id, name, page, size)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": toProductJSON(products),
		"page": page,
		"last": last,
	})
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	page := validate.Page(c.Query("page"))
	size := validate.Size(c.Query("size"))
	sortKey := validate.OrderSort(c.Query("sort", "id"))

	summaries, last, err := h.Orders.ListAll(page, size, sortKey)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": summaries,
		"page": page,
		"last": last,
	})
}
