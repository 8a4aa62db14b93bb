package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"tdash/internal/models"
)

// ERPProbe — проверка доступности ERP для /api/health.
// nil — ERP не сконфигурирован.
type ERPProbe func(ctx context.Context) bool

// RegisterRoutes — базовый liveness.
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
}

// RegisterRoutesWithDB — liveness + readiness (БД) + /api/health
// (статус подключения к Odoo, как его ждёт фронтенд дашборда).
func RegisterRoutesWithDB(r *mux.Router, db *gorm.DB, erp ERPProbe) {
	RegisterRoutes(r)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if db == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			http.Error(w, "db handle error", http.StatusServiceUnavailable)
			return
		}
		if err := sqlDB.Ping(); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		connected := false
		if erp != nil {
			connected = erp(r.Context())
		}
		status := "healthy"
		if erp != nil && !connected {
			status = "unhealthy"
		}
		models.WriteJSON(w, http.StatusOK, map[string]any{
			"status":         status,
			"odoo_connected": connected,
			"timestamp":      time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
