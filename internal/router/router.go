package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saji-pos/api/internal/config"
	"github.com/saji-pos/api/internal/cursor"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/event"
	"github.com/saji-pos/api/internal/handler"
	mw "github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
	"github.com/saji-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, tenant scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, bus *event.Bus, cursors cursor.Store, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/tenants/{tid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, queries, bus)
	expenseService := service.NewExpenseService(queries)
	stockService := service.NewStockService(queries, bus)
	profitLossService := service.NewProfitLossService(queries)
	notifier := service.NewNotifier(queries, cursors)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Tenant-scoped routes
		r.Route("/tenants/{tid}", func(r chi.Router) {
			r.Use(mw.RequireTenant)

			// Orders
			orderHandler := handler.NewOrderHandler(orderService, queries)
			printHandler := handler.NewPrintHandler(queries)
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				printHandler.RegisterRoutes(r)
			})

			// Kitchen display
			kitchenHandler := handler.NewKitchenHandler(orderService, queries)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)

			// Expenses (back office roles only)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				expenseHandler := handler.NewExpenseHandler(expenseService)
				r.Route("/expenses", expenseHandler.RegisterRoutes)

				// Reports
				profitLossHandler := handler.NewProfitLossHandler(profitLossService)
				r.Route("/reports", profitLossHandler.RegisterRoutes)
			})

			// Stock
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleKitchen))
				stockHandler := handler.NewStockHandler(stockService, queries)
				r.Route("/stock", stockHandler.RegisterRoutes)
			})

			// Notifications
			notificationHandler := handler.NewNotificationHandler(notifier)
			r.Route("/notifications", notificationHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
