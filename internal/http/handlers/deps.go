package handlers

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/locks"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type Deps struct {
	OrderHandler   *OrderHandler
	ProductHandler *ProductHandler
	AdminHandler   *AdminHandler
	Sweeper        *services.Sweeper
}

func NewDeps(db *sqlx.DB, reg locks.Registry, clock services.Clock) *Deps {
	productRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	invSvc := services.NewInventoryService(productRepo, clock)
	orderSvc := services.NewOrderService(db, orderRepo, productRepo, invSvc, services.NoopPayer{}, clock)
	catalogSvc := services.NewProductService(productRepo, orderRepo, clock)
	sweeper := services.NewSweeper(db, orderRepo, productRepo, reg, clock)

	return &Deps{
		OrderHandler:   &OrderHandler{Orders: orderSvc},
		ProductHandler: &ProductHandler{Catalog: catalogSvc},
		AdminHandler:   &AdminHandler{Catalog: catalogSvc, Orders: orderSvc},
		Sweeper:        sweeper,
	}
}
