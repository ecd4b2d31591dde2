// Package routes wires every endpoint to its controller.
package routes

import (
	"net/http"

	"github.com/sesamoshop/tienda/app/controllers"
	appgraphql "github.com/sesamoshop/tienda/app/graphql"
	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/metrics"
	"github.com/sesamoshop/tienda/pkg/middleware"
	"github.com/sesamoshop/tienda/pkg/response"
	"github.com/sesamoshop/tienda/pkg/router"
	"github.com/sesamoshop/tienda/pkg/storage"
	"github.com/sesamoshop/tienda/pkg/ws"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Auth       *services.AuthService
	Catalog    *services.CatalogService
	Sessions   *session.Registry
	Collector  *uploads.Collector
	Disk       storage.Disk
	UploadsDir string
	Feed       *ws.Hub
	GraphQL    *appgraphql.Handler
}

// RegisterAPI mounts all routes on r.
func RegisterAPI(r *router.Router, d Deps) {
	authController := controllers.NewAuthController(d.Auth)
	categoryController := controllers.NewCategoryController(d.Catalog)
	productController := controllers.NewProductController(d.Catalog)
	statsController := controllers.NewStatsController(d.Catalog, d.Feed)
	uploadController := controllers.NewUploadController(d.Collector, d.Disk, d.UploadsDir)

	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/uploads/products/{filename}", "uploads.serve", uploadController.Serve)

	api := r.Group("/api")

	// Storefront, no auth.
	api.Get("/products", "products.index", productController.Index)
	api.Get("/products/{id}", "products.show", productController.Show)
	api.Get("/categories", "categories.index", categoryController.Index)
	api.Post("/graphql", "graphql", d.GraphQL.ServeHTTP)

	api.Post("/admin/login", "auth.login", authController.Login)

	// Back office, session required.
	admin := api.Group("/admin", middleware.Auth(d.Sessions))
	admin.Post("/logout", "auth.logout", authController.Logout)
	admin.Get("/verify", "auth.verify", authController.Verify)

	admin.Get("/categories", "admin.categories.index", categoryController.Index)
	admin.Post("/categories", "admin.categories.store", categoryController.Store)
	admin.Put("/categories/{id}", "admin.categories.update", categoryController.Update)
	admin.Delete("/categories/{id}", "admin.categories.destroy", categoryController.Destroy)

	admin.Get("/products", "admin.products.index", productController.AdminIndex)
	admin.Post("/products", "admin.products.store", productController.Store)
	admin.Get("/products/{id}", "admin.products.show", productController.Show)
	admin.Put("/products/{id}", "admin.products.update", productController.Update)
	admin.Delete("/products/{id}", "admin.products.destroy", productController.Destroy)

	admin.Get("/stats", "admin.stats", statsController.Stats)
	admin.Get("/activity", "admin.activity", statsController.Activity)
	admin.Get("/popular-products", "admin.popular", statsController.Popular)
	admin.Get("/activity/feed", "admin.activity.feed", statsController.Feed)

	admin.Post("/cleanup-images", "admin.cleanup", uploadController.Cleanup)
	admin.Get("/check-orphaned-images", "admin.check-orphaned", uploadController.CheckOrphaned)
}
