package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type createItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Create accepts a list of {productId, quantity}; duplicate product ids
// have their quantities summed before reservation.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var items []createItem
	if err := c.BodyParser(&items); err != nil {
		return fmt.Errorf("%w: malformed order body", domain.ErrInvalidRequest)
	}

	quantities := make(map[string]int, len(items))
	for _, it := range items {
		id, ok := validate.ID(it.ProductID)
		if !ok {
			return fmt.Errorf("%w: %q is not a valid product id", domain.ErrInvalidRequest, it.ProductID)
		}
		if !validate.Qty(it.Quantity) {
			return fmt.Errorf("%w: quantity for product %s must be at least 1", domain.ErrInvalidRequest, id)
		}
		quantities[id] += it.Quantity
	}

	summary, err := h.Orders.Create(quantities)
	if err != nil {
		return err
	}
	applog.Request(c, "order.create", map[string]any{"order_id": summary.OrderID})
	return c.Status(fiber.StatusCreated).JSON(summary)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fmt.Errorf("%w: invalid order id", domain.ErrInvalidRequest)
	}
	summary, err := h.Orders.GetSummary(id)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fmt.Errorf("%w: invalid order id", domain.ErrInvalidRequest)
	}
	summary, err := h.Orders.Cancel(id)
	if err != nil {
		return err
	}
	applog.Request(c, "order.cancel", map[string]any{"order_id": id})
	return c.JSON(summary)
}

func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fmt.Errorf("%w: invalid order id", domain.ErrInvalidRequest)
	}
	summary, err := h.Orders.Pay(id)
	if err != nil {
		return err
	}
	applog.Request(c, "order.pay", map[string]any{"order_id": id})
	return c.JSON(summary)
}
