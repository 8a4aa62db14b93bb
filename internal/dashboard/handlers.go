package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"tdash/internal/logs"
	"tdash/internal/models"
	"tdash/internal/odoo"
	"tdash/internal/repo"
)

// Handler отдаёт агрегаты дашборда. Любой сервис может быть nil —
// соответствующие маршруты тогда просто не регистрируются.
type Handler struct {
	dash  *odoo.Dashboard
	inter *odoo.Intermodal
	snaps *repo.SnapshotStore
}

func NewHandler(dash *odoo.Dashboard, inter *odoo.Intermodal, snaps *repo.SnapshotStore) *Handler {
	return &Handler{dash: dash, inter: inter, snaps: snaps}
}

// serve — общий путь: живой запрос в ERP, при удаче снапшот
// обновляется; при отказе отдаём последний снапшот с stale=true и
// только без него — 502.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, key string, fetch func(context.Context) (any, error)) {
	ctx := r.Context()

	data, err := fetch(ctx)
	if err == nil {
		if h.snaps != nil {
			if b, merr := json.Marshal(data); merr == nil {
				if perr := h.snaps.Put(ctx, key, b); perr != nil {
					logs.Logger.Warnf("dashboard snapshot save %s: %v", key, perr)
				}
			}
		}
		models.WriteJSON(w, http.StatusOK, models.DashboardResponse{
			Success:   true,
			Data:      data,
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	logs.Logger.Errorf("dashboard fetch %s: %v", key, err)

	if h.snaps != nil {
		payload, capturedAt, gerr := h.snaps.Get(ctx, key)
		if gerr == nil && payload != nil {
			models.WriteJSON(w, http.StatusOK, models.DashboardResponse{
				Success:   true,
				Data:      json.RawMessage(payload),
				Timestamp: capturedAt.Format(time.RFC3339),
				Stale:     true,
			})
			return
		}
	}
	models.WriteMessage(w, http.StatusBadGateway, false, "ERP backend unavailable")
}

// GET /api/dashboard/forwarding-orders
func (h *Handler) ForwardingOrders(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "forwarding_orders", func(ctx context.Context) (any, error) {
		return h.dash.ForwardingOrders(ctx)
	})
}

// GET /api/dashboard/first-mile-truck
func (h *Handler) FirstMileTruck(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "first_mile_truck", func(ctx context.Context) (any, error) {
		return h.dash.FirstMileTruck(ctx)
	})
}

// GET /api/dashboard/last-mile-truck/{terminal}
func (h *Handler) LastMileTruck(w http.ResponseWriter, r *http.Request) {
	terminal := mux.Vars(r)["terminal"]
	if terminal != "ICAD" && terminal != "DIC" {
		models.WriteMessage(w, http.StatusBadRequest, false, "Terminal must be ICAD or DIC")
		return
	}
	h.serve(w, r, "last_mile_"+terminal, func(ctx context.Context) (any, error) {
		return h.dash.LastMileTruck(ctx, terminal)
	})
}

// GET /api/dashboard/stockpiles
func (h *Handler) Stockpiles(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "stockpiles", func(ctx context.Context) (any, error) {
		return h.dash.StockpileUtilization(ctx)
	})
}

// GET /api/dashboard/all — все секции одним запросом.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "all", func(ctx context.Context) (any, error) {
		forwarding, err := h.dash.ForwardingOrders(ctx)
		if err != nil {
			return nil, err
		}
		firstMile, err := h.dash.FirstMileTruck(ctx)
		if err != nil {
			return nil, err
		}
		lastMileICAD, err := h.dash.LastMileTruck(ctx, "ICAD")
		if err != nil {
			return nil, err
		}
		lastMileDIC, err := h.dash.LastMileTruck(ctx, "DIC")
		if err != nil {
			return nil, err
		}
		stockpiles, err := h.dash.StockpileUtilization(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"forwarding_orders": forwarding,
			"first_mile_truck":  firstMile,
			"last_mile_icad":    lastMileICAD,
			"last_mile_dic":     lastMileDIC,
			"stockpiles":        stockpiles,
		}, nil
	})
}

// GET /api/intermodal/containers/ruw
func (h *Handler) RUWContainers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "containers_ruw", func(ctx context.Context) (any, error) {
		return h.inter.RUWContainerStats(ctx)
	})
}

// GET /api/intermodal/containers
func (h *Handler) AllContainers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "containers_all", func(ctx context.Context) (any, error) {
		return h.inter.AllLocationsContainerStats(ctx)
	})
}

// GET /api/intermodal/trains?days=N
func (h *Handler) Trains(w http.ResponseWriter, r *http.Request) {
	days := 14
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	h.serve(w, r, "trains", func(ctx context.Context) (any, error) {
		return h.inter.RecentTrainDepartures(ctx, days)
	})
}
