package http

import (
	"net/http"

	"valve-backend/internal/handlers"
	"valve-backend/internal/middleware"
	"valve-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	totpHandler *handlers.TOTPHandler,
	reportHandler *handlers.ReportHandler,
	masterDataHandler *handlers.MasterDataHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	reviewer := authMiddleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)
	adminOnly := authMiddleware.RequireRole(models.RoleAdmin)

	// Public routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/verify-2fa", authHandler.VerifyTOTP).Methods("POST")

	// Health and metrics
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected API routes - Current user
	meAPI := r.PathPrefix("/api/me").Subrouter()
	meAPI.Use(authMiddleware.Authenticate)
	meAPI.HandleFunc("", authHandler.Me).Methods("GET")
	meAPI.HandleFunc("/2fa/setup", totpHandler.Setup).Methods("POST")
	meAPI.HandleFunc("/2fa/enable", totpHandler.Enable).Methods("POST")
	meAPI.HandleFunc("/2fa/disable", totpHandler.Disable).Methods("POST")

	// Protected API routes - Users. Listing is for reviewers, account
	// creation and removal for admins; get and update are self-or-admin,
	// checked in the service.
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("", reviewer(http.HandlerFunc(userHandler.List)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("", adminOnly(http.HandlerFunc(userHandler.Create)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.Get).Methods("GET")
	usersAPI.HandleFunc("/{id}", userHandler.Update).Methods("PUT")
	usersAPI.HandleFunc("/{id}", adminOnly(http.HandlerFunc(userHandler.Delete)).ServeHTTP).Methods("DELETE")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("", reportHandler.List).Methods("GET")
	reportsAPI.HandleFunc("", reportHandler.Create).Methods("POST")
	reportsAPI.HandleFunc("/stats", reportHandler.Stats).Methods("GET")
	reportsAPI.HandleFunc("/preview", reportHandler.Preview).Methods("POST")
	reportsAPI.HandleFunc("/valve-history/{serial}", reportHandler.ValveHistory).Methods("GET")
	reportsAPI.HandleFunc("/{id}", reportHandler.Get).Methods("GET")
	reportsAPI.HandleFunc("/{id}", reportHandler.Delete).Methods("DELETE")
	reportsAPI.HandleFunc("/{id}/pdf", reportHandler.DownloadPDF).Methods("GET")
	reportsAPI.HandleFunc("/{id}/legacy", reportHandler.UpdateLegacy).Methods("PUT")
	reportsAPI.HandleFunc("/{id}/status", reviewer(http.HandlerFunc(reportHandler.UpdateStatus)).ServeHTTP).Methods("PATCH")

	// Protected API routes - Master data. Open to any authenticated user,
	// writes included, so the form's "Other" flow can register new catalog
	// entries before the report is submitted.
	masterAPI := r.PathPrefix("/api/master-data").Subrouter()
	masterAPI.Use(authMiddleware.Authenticate)
	masterAPI.HandleFunc("/brands", masterDataHandler.ListBrands).Methods("GET")
	masterAPI.HandleFunc("/brands", masterDataHandler.CreateBrand).Methods("POST")
	masterAPI.HandleFunc("/models", masterDataHandler.ListModels).Methods("GET")
	masterAPI.HandleFunc("/models", masterDataHandler.CreateModel).Methods("POST")
	masterAPI.HandleFunc("/materials", masterDataHandler.ListMaterials).Methods("GET")
	masterAPI.HandleFunc("/materials", masterDataHandler.CreateMaterial).Methods("POST")
	masterAPI.HandleFunc("/io-sizes", masterDataHandler.IOSizes).Methods("GET")
	masterAPI.HandleFunc("/io-sizes", masterDataHandler.CreateIOSize).Methods("POST")
	masterAPI.HandleFunc("/set-pressures", masterDataHandler.ListSetPressures).Methods("GET")
	masterAPI.HandleFunc("/set-pressures", masterDataHandler.CreateSetPressure).Methods("POST")
	masterAPI.HandleFunc("/valve-serials", masterDataHandler.CreateValveSerial).Methods("POST")
	masterAPI.HandleFunc("/serials/{equipmentNo}", masterDataHandler.SerialsByEquipment).Methods("GET")

	return r
}
