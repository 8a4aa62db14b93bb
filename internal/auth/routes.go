package auth

import (
	"net/http"

	"github.com/gorilla/mux"

	"tdash/internal/models"
	"tdash/internal/repo"
)

// RegisterRoutes вешает /auth/* на роутер.
// Три зоны: публичный login, любой аутентифицированный, admin-only.
func RegisterRoutes(r *mux.Router, svc *Service, store *repo.UserStore) {
	h := NewHandler(svc, store)

	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	authed := r.PathPrefix("/auth").Subrouter()
	authed.Use(RequireAuth(svc))
	authed.HandleFunc("/refresh-token", h.RefreshToken).Methods(http.MethodPost)
	authed.HandleFunc("/change-password", h.ChangePassword).Methods(http.MethodPost)
	authed.HandleFunc("/profile", h.Profile).Methods(http.MethodGet)

	admin := r.PathPrefix("/auth/users").Subrouter()
	admin.Use(RequireAuth(svc), RequireRole(models.RoleAdmin))
	admin.HandleFunc("", h.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/{id:[0-9]+}", h.GetUser).Methods(http.MethodGet)
	admin.HandleFunc("/{id:[0-9]+}", h.UpdateUser).Methods(http.MethodPut)
	admin.HandleFunc("/{id:[0-9]+}", h.DeleteUser).Methods(http.MethodDelete)
}
