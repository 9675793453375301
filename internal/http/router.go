package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mushroomlog/mushroomlog/internal/handlers"
	"github.com/mushroomlog/mushroomlog/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	TOTP       *handlers.TOTPHandler
	Batches    *handlers.BatchHandler
	Configs    *handlers.ConfigHandler
	Notebook   *handlers.NotebookHandler
	Reports    *handlers.ReportHandler
	Images     *handlers.ImageHandler
	Assistant  *handlers.AssistantHandler
	Setup      *handlers.SetupHandler
	Monitoring *handlers.MonitoringHandler
	Health     *handlers.HealthHandler
}

// NewRouter mounts the API. imagePrefix is the local path objects are served
// under, e.g. "/images/grow_images"; empty when a remote bucket serves them.
func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, imagePrefix string) *mux.Router {
	r := mux.NewRouter()

	// Health & metrics
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", h.Auth.Signup).Methods("POST")
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/auth/2fa", h.Auth.Verify2FA).Methods("POST")

	if imagePrefix != "" && strings.HasPrefix(imagePrefix, "/") {
		r.HandleFunc(strings.TrimRight(imagePrefix, "/")+"/{key:.+}", h.Images.Serve).Methods("GET")
	}

	// Realtime change feed; browsers pass the token as a query parameter
	wsAPI := r.PathPrefix("/api/ws").Subrouter()
	wsAPI.Use(authMiddleware.AuthenticateQuery)
	wsAPI.HandleFunc("", h.Monitoring.Changes).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/me", h.Auth.Me).Methods("GET")

	// 2FA
	api.HandleFunc("/2fa/setup", h.TOTP.SetupTOTP).Methods("POST")
	api.HandleFunc("/2fa/enable", h.TOTP.EnableTOTP).Methods("POST")
	api.HandleFunc("/2fa/disable", h.TOTP.DisableTOTP).Methods("POST")

	// Batches
	api.HandleFunc("/batches", h.Batches.List).Methods("GET")
	api.HandleFunc("/batches", h.Batches.Create).Methods("POST")
	api.HandleFunc("/batches/import", h.Batches.Import).Methods("POST")
	api.HandleFunc("/batches/{id}", h.Batches.Get).Methods("GET")
	api.HandleFunc("/batches/{id}", h.Batches.Update).Methods("PUT")
	api.HandleFunc("/batches/{id}", h.Batches.Delete).Methods("DELETE")
	api.HandleFunc("/batches/{id}/expand", h.Batches.Expand).Methods("POST")
	api.HandleFunc("/batches/{id}/lineage", h.Batches.Lineage).Methods("GET")
	api.HandleFunc("/batches/{id}/images", h.Images.Upload).Methods("POST")
	api.HandleFunc("/batches/{id}/images", h.Images.Delete).Methods("DELETE")
	api.HandleFunc("/display-ids/next", h.Batches.NextDisplayIDs).Methods("GET")

	// Batch groups
	api.HandleFunc("/batch-groups", h.Batches.Groups).Methods("GET")
	api.HandleFunc("/batch-groups", h.Batches.EditGroup).Methods("PUT")
	api.HandleFunc("/batch-groups", h.Batches.DeleteGroup).Methods("DELETE")

	// Configuration
	api.HandleFunc("/configs", h.Configs.Get).Methods("GET")
	api.HandleFunc("/configs", h.Configs.Save).Methods("PUT")

	// Notebook
	api.HandleFunc("/recipes", h.Notebook.ListRecipes).Methods("GET")
	api.HandleFunc("/recipes", h.Notebook.SaveRecipe).Methods("PUT")
	api.HandleFunc("/recipes/{id}", h.Notebook.SaveRecipe).Methods("PUT")
	api.HandleFunc("/recipes/{id}", h.Notebook.DeleteRecipe).Methods("DELETE")
	api.HandleFunc("/notes", h.Notebook.ListNotes).Methods("GET")
	api.HandleFunc("/notes", h.Notebook.SaveNote).Methods("PUT")
	api.HandleFunc("/notes/{id}", h.Notebook.SaveNote).Methods("PUT")
	api.HandleFunc("/notes/{id}", h.Notebook.DeleteNote).Methods("DELETE")

	// Statistics & exports
	api.HandleFunc("/stats", h.Reports.GetStats).Methods("GET")
	api.HandleFunc("/export/csv", h.Reports.ExportCSV).Methods("GET")
	api.HandleFunc("/export/pdf", h.Reports.ExportPDF).Methods("GET")

	// Images
	api.HandleFunc("/images/cleanup", h.Images.Cleanup).Methods("POST")
	api.HandleFunc("/storage/health", h.Images.StorageHealth).Methods("GET")

	// Assistant & setup
	api.HandleFunc("/assistant", h.Assistant.Ask).Methods("POST")
	api.HandleFunc("/setup/test", h.Setup.TestConnection).Methods("POST")

	return r
}

// Wrap applies the middleware chain every request passes through.
func Wrap(router http.Handler, cors func(http.Handler) http.Handler, recovery, logging func(http.Handler) http.Handler) http.Handler {
	return recovery(logging(middleware.MetricsMiddleware(cors(router))))
}
