package odoo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Dashboard — запросы терминального дашборда (основной инстанс Odoo).
// Каждый метод — один reshape: search_read по доменному фильтру и
// группировка под фронтенд.
type Dashboard struct {
	c   Caller
	now func() time.Time
}

func NewDashboard(c Caller) *Dashboard {
	return &Dashboard{c: c, now: func() time.Time { return time.Now().In(GST) }}
}

type ForwardingOrdersData struct {
	CurrentWeekCount  int              `json:"current_week_count"`
	LastWeekCount     int              `json:"last_week_count"`
	DailyCounts       map[string]int   `json:"daily_counts"`
	CurrentWeekOrders []map[string]any `json:"current_week_orders"`
	LastWeekOrders    []map[string]any `json:"last_week_orders"`
}

const (
	fwoModel          = "x_fwo"
	fwoStatusField    = "x_studio_selection_field_83c_1ig067df9"
	fwoDepartureField = "x_studio_actual_train_departure"
)

// ForwardingOrders — отправки поездов за текущую и прошлую недели,
// плюс разбивка по дням.
func (d *Dashboard) ForwardingOrders(ctx context.Context) (*ForwardingOrdersData, error) {
	lastWeekStart, currentWeekStart := WeekStarts(d.now())
	currentWeekEnd := currentWeekStart.AddDate(0, 0, 7)

	domain := []any{
		[]any{fwoStatusField, "in", []any{"NDP Train Departed", "Train Arrived at Destination"}},
		[]any{fwoDepartureField, ">=", FormatTime(lastWeekStart)},
		[]any{fwoDepartureField, "<", FormatTime(currentWeekEnd)},
	}

	res, err := d.c.ExecuteKw(ctx, fwoModel, "search_read",
		[]any{domain},
		map[string]any{"fields": []any{fwoDepartureField, fwoStatusField}})
	if err != nil {
		return nil, err
	}

	out := &ForwardingOrdersData{
		DailyCounts:       map[string]int{},
		CurrentWeekOrders: []map[string]any{},
		LastWeekOrders:    []map[string]any{},
	}
	for _, order := range asRecords(res) {
		departure, err := ParseTime(asString(order[fwoDepartureField]))
		if err != nil {
			continue
		}
		if !departure.Before(currentWeekStart) {
			out.CurrentWeekOrders = append(out.CurrentWeekOrders, order)
		} else {
			out.LastWeekOrders = append(out.LastWeekOrders, order)
		}
		out.DailyCounts[departure.Format("2006-01-02")]++
	}
	out.CurrentWeekCount = len(out.CurrentWeekOrders)
	out.LastWeekCount = len(out.LastWeekOrders)
	return out, nil
}

type TruckData struct {
	TotalOrders int              `json:"total_orders"`
	TotalWeight float64          `json:"total_weight"`
	Orders      []map[string]any `json:"orders"`
	Terminal    string           `json:"terminal,omitempty"`
}

// FirstMileTruck — first mile заказы терминала NDP за сегодня.
func (d *Dashboard) FirstMileTruck(ctx context.Context) (*TruckData, error) {
	start, end := TodayRange(d.now())

	domain := []any{
		[]any{"x_studio_terminal", "=", "NDP"},
		[]any{"x_studio_selection_field_1d4_1icdknqu2", "in",
			[]any{"Gate-out Completed", "Train Departed", "Exception"}},
		[]any{"x_studio_actual_date_and_time_of_gate_out", ">=", FormatTime(start)},
		[]any{"x_studio_actual_date_and_time_of_gate_out", "<=", FormatTime(end)},
	}

	res, err := d.c.ExecuteKw(ctx, "x_first_mile_freight", "search_read",
		[]any{domain},
		map[string]any{"fields": []any{
			"x_studio_net_weight_ton",
			"x_studio_actual_date_and_time_of_gate_out",
			"x_studio_selection_field_1d4_1icdknqu2",
		}})
	if err != nil {
		return nil, err
	}

	orders := asRecords(res)
	data := &TruckData{TotalOrders: len(orders), Orders: orders}
	for _, o := range orders {
		data.TotalWeight += asFloat(o["x_studio_net_weight_ton"])
	}
	return data, nil
}

// LastMileTruck — last mile заказы ICAD/DIC за сегодня.
func (d *Dashboard) LastMileTruck(ctx context.Context, terminal string) (*TruckData, error) {
	if terminal != "ICAD" && terminal != "DIC" {
		return nil, fmt.Errorf("terminal must be ICAD or DIC, got %q", terminal)
	}
	start, end := TodayRange(d.now())

	domain := []any{
		[]any{"x_studio_terminal", "=", terminal},
		[]any{"x_studio_selection_field_Vik7G", "in",
			[]any{"Gate-out Completed", "Order Completed and Closed"}},
		[]any{"x_studio_actual_date_and_time_of_gate_out", ">=", FormatTime(start)},
		[]any{"x_studio_actual_date_and_time_of_gate_out", "<=", FormatTime(end)},
	}

	res, err := d.c.ExecuteKw(ctx, "x_last_mile_freight", "search_read",
		[]any{domain},
		map[string]any{"fields": []any{
			"x_studio_net_weight_ton",
			"x_studio_actual_date_and_time_of_gate_out",
			"x_studio_selection_field_Vik7G",
		}})
	if err != nil {
		return nil, err
	}

	orders := asRecords(res)
	data := &TruckData{TotalOrders: len(orders), Orders: orders, Terminal: terminal}
	for _, o := range orders {
		data.TotalWeight += asFloat(o["x_studio_net_weight_ton"])
	}
	return data, nil
}

type Stockpile struct {
	Name               string  `json:"name"`
	Capacity           float64 `json:"capacity"`
	Quantity           float64 `json:"quantity"`
	MaterialName       string  `json:"material_name"`
	MaterialAgeHours   float64 `json:"material_age_hours"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

// StockpileUtilization — загрузка штабелей по терминалам ICAD/DIC.
// Имена полей в studio-моделях плавают между базами, поэтому для
// каждого атрибута пробуем несколько вариантов.
func (d *Dashboard) StockpileUtilization(ctx context.Context) (map[string][]Stockpile, error) {
	res, err := d.c.ExecuteKw(ctx, "x_stockpile", "search_read",
		[]any{[]any{}},
		map[string]any{"limit": 50})
	if err != nil {
		return nil, err
	}

	out := map[string][]Stockpile{"ICAD": {}, "DIC": {}}
	for _, rec := range asRecords(res) {
		name := firstNonEmpty(rec, "x_name", "name", "display_name")
		if name == "" {
			name = fmt.Sprintf("Stockpile %d", asInt(rec["id"]))
		}
		capacity := firstPositive(rec, "x_studio_capacity_1", "x_studio_capacity", "x_capacity", "capacity")
		if capacity == 0 {
			capacity = 5000
		}
		quantity := firstPositive(rec, "x_studio_quantity_in_stock_t", "x_quantity", "quantity", "x_current_stock")
		age := firstPositive(rec, "x_studio_stockpile_material_age", "x_age", "age", "material_age")
		terminal := firstNonEmpty(rec, "x_studio_terminal", "x_terminal", "terminal")

		sp := Stockpile{
			Name:               name,
			Capacity:           capacity,
			Quantity:           quantity,
			MaterialName:       d.materialName(ctx, rec),
			MaterialAgeHours:   age,
			UtilizationPercent: quantity / max(capacity, 1) * 100,
		}

		switch {
		case strings.Contains(strings.ToUpper(terminal), "ICAD"):
			out["ICAD"] = append(out["ICAD"], sp)
		case strings.Contains(strings.ToUpper(terminal), "DIC"):
			out["DIC"] = append(out["DIC"], sp)
		default:
			// терминал не указан — относим к ICAD с пометкой в имени
			sp.Name = "ICAD-" + sp.Name
			out["ICAD"] = append(out["ICAD"], sp)
		}
	}
	return out, nil
}

// materialName — many2one приходит либо как [id, name], либо как id;
// во втором случае дочитываем запись x_material.
func (d *Dashboard) materialName(ctx context.Context, rec map[string]any) string {
	field := rec["x_studio_material"]
	if pair, ok := field.([]any); ok && len(pair) > 1 {
		return asString(pair[1])
	}

	id := asInt(field)
	if id == 0 {
		return ""
	}
	res, err := d.c.ExecuteKw(ctx, "x_material", "read",
		[]any{[]any{id}},
		map[string]any{"fields": []any{"x_name", "name"}})
	if err != nil {
		return "Unknown"
	}
	recs := asRecords(res)
	if len(recs) == 0 {
		return "Unknown"
	}
	if s := firstNonEmpty(recs[0], "x_name", "name"); s != "" {
		return s
	}
	return "Unknown"
}
