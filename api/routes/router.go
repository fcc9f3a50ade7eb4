package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storedesk-backend/api/controllers"
	"github.com/angelmondragon/storedesk-backend/api/middleware"
	"github.com/angelmondragon/storedesk-backend/internal/auth"
	"github.com/angelmondragon/storedesk-backend/internal/backup"
	"github.com/angelmondragon/storedesk-backend/internal/calendar"
	"github.com/angelmondragon/storedesk-backend/internal/categories"
	"github.com/angelmondragon/storedesk-backend/internal/customers"
	product "github.com/angelmondragon/storedesk-backend/internal/products"
	"github.com/angelmondragon/storedesk-backend/internal/reports"
	"github.com/angelmondragon/storedesk-backend/internal/sales"
	"github.com/angelmondragon/storedesk-backend/internal/users"
	"github.com/angelmondragon/storedesk-backend/pkg/auth/session"
	"github.com/angelmondragon/storedesk-backend/pkg/config"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storedesk-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers. Nil services
// answer with an internal error instead of panicking.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Location *time.Location
	Sessions session.AccessSessionChecker
	Limiter  pkgredis.RateLimiter
	Replays  pkgredis.IdempotencyStore
	Ready    map[string]controllers.Pinger
	Metrics  http.Handler

	Auth       auth.Service
	Users      users.Service
	Categories categories.Service
	Customers  customers.Service
	Products   product.Service
	Sales      sales.Service
	Calendar   calendar.Service
	Backups    backup.Service
	Reports    reports.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Limiter, logg)).Post("/bootstrap", controllers.AuthBootstrap(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Replays, cfg.Sales.IdempotencyTTL, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.RequireCapability(enums.CapabilityOperateStore, logg))

			r.Get("/me", controllers.Me(deps.Users, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.ListCategories(deps.Categories, logg))
				r.Post("/", controllers.CreateCategory(deps.Categories, logg))
				r.Get("/{categoryId}", controllers.GetCategory(deps.Categories, logg))
				r.Put("/{categoryId}", controllers.RenameCategory(deps.Categories, logg))
				r.Delete("/{categoryId}", controllers.DeleteCategory(deps.Categories, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.ListCustomers(deps.Customers, logg))
				r.Post("/", controllers.CreateCustomer(deps.Customers, logg))
				r.Get("/{customerId}", controllers.GetCustomer(deps.Customers, logg))
				r.Put("/{customerId}", controllers.UpdateCustomer(deps.Customers, logg))
				r.Delete("/{customerId}", controllers.DeleteCustomer(deps.Customers, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(deps.Products, logg))
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Get("/low-stock", controllers.ListLowStockProducts(deps.Products, logg))
				r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
				r.Put("/{productId}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(deps.Products, logg))
				r.Post("/{productId}/stock-adjustments", controllers.AdjustProductStock(deps.Products, logg))
				r.Get("/{productId}/movements", controllers.ListProductMovements(deps.Products, logg))
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", controllers.ListSales(deps.Sales, loc, logg))
				r.Post("/", controllers.CreateSale(deps.Sales, logg))
				r.Get("/{saleId}", controllers.GetSale(deps.Sales, logg))
				r.Patch("/{saleId}", controllers.UpdateSaleDetails(deps.Sales, logg))
				r.Delete("/{saleId}", controllers.DeleteSale(deps.Sales, logg))
				r.Put("/{saleId}/items", controllers.ReplaceSaleItems(deps.Sales, logg))
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", controllers.ListEvents(deps.Calendar, loc, logg))
				r.Post("/", controllers.CreateEvent(deps.Calendar, logg))
				r.Get("/{eventId}", controllers.GetEvent(deps.Calendar, logg))
				r.Put("/{eventId}", controllers.UpdateEvent(deps.Calendar, logg))
				r.Delete("/{eventId}", controllers.DeleteEvent(deps.Calendar, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageUsers, logg))
				r.Get("/", controllers.AdminListUsers(deps.Users, logg))
				r.Post("/", controllers.AdminCreateUser(deps.Users, logg))
				r.Get("/{userId}", controllers.AdminGetUser(deps.Users, logg))
				r.Put("/{userId}", controllers.AdminUpdateUser(deps.Users, logg))
				r.Delete("/{userId}", controllers.AdminDeactivateUser(deps.Users, logg))
			})

			r.Route("/backups", func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageBackups, logg))
				r.Get("/", controllers.AdminListBackups(deps.Backups, logg))
				r.Post("/", controllers.AdminCreateBackup(deps.Backups, logg))
				r.Post("/restore", controllers.AdminRestoreUpload(deps.Backups, cfg.Storage.MaxUploadMB, logg))
				r.Get("/{backupId}", controllers.AdminGetBackup(deps.Backups, logg))
				r.Delete("/{backupId}", controllers.AdminDeleteBackup(deps.Backups, logg))
				r.Get("/{backupId}/download", controllers.AdminDownloadBackup(deps.Backups, logg))
				r.Post("/{backupId}/restore", controllers.AdminRestoreBackup(deps.Backups, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageReports, logg))
				r.Get("/", controllers.AdminListReports(deps.Reports, logg))
				r.Post("/", controllers.AdminGenerateReport(deps.Reports, logg))
				r.Get("/{reportId}", controllers.AdminGetReport(deps.Reports, logg))
				r.Delete("/{reportId}", controllers.AdminDeleteReport(deps.Reports, logg))
				r.Get("/{reportId}/download", controllers.AdminDownloadReport(deps.Reports, logg))
				r.Get("/{reportId}/preview", controllers.AdminPreviewReport(deps.Reports, logg))
			})
		})
	})

	return r
}
