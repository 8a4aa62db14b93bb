package dashboard

import (
	"net/http"

	"github.com/gorilla/mux"

	"tdash/internal/auth"
	"tdash/internal/models"
)

// RegisterRoutes вешает дашборд-эндпоинты. Смотреть может любая
// аутентифицированная учётка (ранг visitor и выше).
func RegisterRoutes(r *mux.Router, h *Handler, svc *auth.Service) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireAuth(svc), auth.RequireRole(models.RoleVisitor))

	if h.dash != nil {
		api.HandleFunc("/dashboard/forwarding-orders", h.ForwardingOrders).Methods(http.MethodGet)
		api.HandleFunc("/dashboard/first-mile-truck", h.FirstMileTruck).Methods(http.MethodGet)
		api.HandleFunc("/dashboard/last-mile-truck/{terminal}", h.LastMileTruck).Methods(http.MethodGet)
		api.HandleFunc("/dashboard/stockpiles", h.Stockpiles).Methods(http.MethodGet)
		api.HandleFunc("/dashboard/all", h.All).Methods(http.MethodGet)
	}
	if h.inter != nil {
		api.HandleFunc("/intermodal/containers/ruw", h.RUWContainers).Methods(http.MethodGet)
		api.HandleFunc("/intermodal/containers", h.AllContainers).Methods(http.MethodGet)
		api.HandleFunc("/intermodal/trains", h.Trains).Methods(http.MethodGet)
	}
}
