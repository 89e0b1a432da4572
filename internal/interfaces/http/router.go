package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Produccion-api/internal/application/production"
	"github.com/jhoicas/Produccion-api/internal/application/usecase"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *usecase.AuthUseCase
	MaterialUC  *usecase.MaterialUseCase
	ProductUC   *usecase.ProductUseCase
	BatchUC     *usecase.BatchUseCase
	RouteCardUC *usecase.RouteCardUseCase
	Engine      *production.Engine
	Feed        *production.StageFeed
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	manage := RequireRole(entity.RoleAdmin, entity.RoleSupervisor)

	// Materials (protegido); altas/bajas solo admin y supervisor
	materials := protected.Group("/materials")
	materialHandler := NewMaterialHandler(deps.MaterialUC)
	materials.Post("/", manage, materialHandler.Create)
	materials.Get("/", materialHandler.List)
	materials.Get("/low-stock", materialHandler.ListLowStock)
	materials.Get("/:id", materialHandler.GetByID)
	materials.Put("/:id", manage, materialHandler.Update)
	materials.Delete("/:id", manage, materialHandler.Delete)

	// Store: pools intermedios (Moulded/Machined/Assembled)
	protected.Get("/store", materialHandler.ListStore)

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	batchHandler := NewBatchHandler(deps.BatchUC, deps.RouteCardUC)
	products.Post("/", manage, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", manage, productHandler.Update)
	products.Delete("/:id", manage, productHandler.Delete)
	products.Get("/:id/batches", batchHandler.ListByProduct)

	// Batches (protegido)
	batches := protected.Group("/batches")
	batches.Post("/", manage, batchHandler.Create)
	batches.Get("/", batchHandler.ListActive)
	batches.Get("/:id", batchHandler.GetByID)
	batches.Delete("/:id", manage, batchHandler.Delete)
	batches.Get("/:id/movements", batchHandler.ListMovements)
	batches.Get("/:id/route-card", batchHandler.RouteCard)

	// Production: avance de etapas (cualquier rol autenticado)
	prod := protected.Group("/production")
	productionHandler := NewProductionHandler(deps.Engine, deps.BatchUC, deps.Feed)
	prod.Post("/batches/:id/stages/:stage", productionHandler.SubmitStage)
	prod.Post("/stages/:stage/finish", productionHandler.FinishStage)
	prod.Post("/stages/:stage/end-cycle", productionHandler.EndCycle)
	prod.Get("/stages/:stage/feed", productionHandler.StreamStageFeed)
	prod.Get("/materials/:id/movements", productionHandler.ListMaterialMovements)
}
