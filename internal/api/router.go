package api

import (
	"database/sql"
	"net/http"

	"github.com/nadimkh/mouneh/internal/dailylog"
	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/notify"
	"github.com/nadimkh/mouneh/internal/persist"
	"github.com/nadimkh/mouneh/internal/transfer"
)

// Config carries the shared state the API serves from.
type Config struct {
	DB        *sql.DB
	Inventory *inventory.Repository
	Ledger    *ledger.Log
	Queue     *persist.Queue
	Transfers *transfer.Orchestrator
	DailyLog  *dailylog.Orchestrator
	Notifier  *notify.Emitter
	JWTSecret string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, Notifier: cfg.Notifier}
	usersHandler := &UsersHandler{DB: cfg.DB}
	locationsHandler := &LocationsHandler{DB: cfg.DB, Inventory: cfg.Inventory}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Inventory: cfg.Inventory, Queue: cfg.Queue}
	transfersHandler := &TransfersHandler{Ledger: cfg.Ledger, Transfers: cfg.Transfers}
	dailyLogHandler := &DailyLogHandler{DailyLog: cfg.DailyLog}
	notificationsHandler := &NotificationsHandler{Ledger: cfg.Ledger, Notifier: cfg.Notifier}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRoles(model.RoleAdmin)
	requireManager := RequireRoles(model.RoleAdmin, model.RoleWarehouseManager, model.RoleBranchManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Locations: read for all roles. Branch creation happens through
	// branch manager provisioning, not a direct endpoint.
	mux.Handle("GET /api/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("GET /api/locations/{id}/inventory", authMW(http.HandlerFunc(locationsHandler.GetInventory)))

	// Items: read (all roles), write (managers of the item's location,
	// enforced per handler).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireManager(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))

	// Transfers and the transaction log (all roles; per-transition
	// authority enforced in the handlers).
	mux.Handle("POST /api/transfers", authMW(http.HandlerFunc(transfersHandler.Create)))
	mux.Handle("GET /api/transfers/{group}", authMW(http.HandlerFunc(transfersHandler.Group)))
	mux.Handle("POST /api/transfers/{group}/accept", authMW(http.HandlerFunc(transfersHandler.AcceptGroup)))
	mux.Handle("GET /api/transactions", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transactions/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transactions/{id}/confirm", authMW(http.HandlerFunc(transfersHandler.Confirm)))
	mux.Handle("POST /api/transactions/{id}/receive", authMW(http.HandlerFunc(transfersHandler.Receive)))
	mux.Handle("POST /api/transactions/{id}/reject", authMW(http.HandlerFunc(transfersHandler.Reject)))
	mux.Handle("POST /api/transactions/{id}/cancel", authMW(http.HandlerFunc(transfersHandler.Cancel)))

	// Daily log.
	mux.Handle("POST /api/daily-log", authMW(http.HandlerFunc(dailyLogHandler.Record)))
	mux.Handle("POST /api/daily-log/bulk", authMW(http.HandlerFunc(dailyLogHandler.SubmitBulk)))

	// Notifications.
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.List)))

	return mux
}
