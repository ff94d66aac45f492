package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	"storefront/internal/locks"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func main() {
	cfg := config.Load()
	applog.Setup(cfg.LogFile)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		applog.Error("db.open", err, nil)
		os.Exit(1)
	}

	// Redis-backed mutual exclusion when configured, in-process map
	// otherwise. The lock TTL outlives any reasonable sweep run.
	var registry locks.Registry = locks.NewMemory()
	if cfg.RedisAddr != "" {
		registry = locks.NewRedis(cfg.RedisAddr, 10*time.Minute)
	}

	deps := handlers.NewDeps(db, registry, services.SystemClock{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := &services.SweepScheduler{Sweeper: deps.Sweeper, Interval: cfg.SweepInterval}
	go scheduler.Run(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(logger.New())

	// Public catalog and order flow
	app.Get("/products", deps.ProductHandler.List)
	app.Post("/orders", limiter.New(limiter.Config{Max: 60, Expiration: time.Minute}), deps.OrderHandler.Create)
	app.Get("/orders/:id", deps.OrderHandler.Get)
	app.Delete("/orders/:id", deps.OrderHandler.Cancel)
	app.Post("/payments/:id", deps.OrderHandler.Pay)

	// Admin surface behind basic auth
	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPass), 12)
	if err != nil {
		applog.Error("admin.hash", err, nil)
		os.Exit(1)
	}
	admin := app.Group("/admin", basicauth.New(basicauth.Config{
		Authorizer: func(user, pass string) bool {
			return user == cfg.AdminUser &&
				bcrypt.CompareHashAndPassword(adminHash, []byte(pass)) == nil
		},
	}))
	admin.Post("/products", deps.AdminHandler.CreateProduct)
	admin.Patch("/products", deps.AdminHandler.UpdateProducts)
	admin.Delete("/products/:id", deps.AdminHandler.DeleteProduct)
	admin.Get("/products/search", deps.AdminHandler.SearchProducts)
	admin.Get("/orders", deps.AdminHandler.ListOrders)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		applog.Error("server.listen", err, nil)
		os.Exit(1)
	}
}
