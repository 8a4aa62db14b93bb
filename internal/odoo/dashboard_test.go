package odoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller подменяет XML-RPC слой: отвечает по (model, method).
type fakeCaller struct {
	handler func(model, method string, args []any, kw map[string]any) (any, error)
	calls   []string
}

func (f *fakeCaller) ExecuteKw(_ context.Context, model, method string, args []any, kw map[string]any) (any, error) {
	f.calls = append(f.calls, model+"."+method)
	return f.handler(model, method, args, kw)
}

func fixedNow() time.Time {
	// среда 12 марта 2025, 10:00 GST
	return time.Date(2025, 3, 12, 10, 0, 0, 0, GST)
}

func TestForwardingOrdersGrouping(t *testing.T) {
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		require.Equal(t, "x_fwo", model)
		require.Equal(t, "search_read", method)
		return []any{
			// текущая неделя (пн 10 марта и позже)
			map[string]any{fwoDepartureField: "2025-03-11 08:00:00", fwoStatusField: "NDP Train Departed"},
			map[string]any{fwoDepartureField: "2025-03-11 21:15:00", fwoStatusField: "Train Arrived at Destination"},
			// прошлая неделя
			map[string]any{fwoDepartureField: "2025-03-05 09:30:00", fwoStatusField: "NDP Train Departed"},
			// пустое поле отправления — пропускаем
			map[string]any{fwoDepartureField: false, fwoStatusField: "NDP Train Departed"},
		}, nil
	}}
	d := NewDashboard(fake)
	d.now = fixedNow

	data, err := d.ForwardingOrders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, data.CurrentWeekCount)
	assert.Equal(t, 1, data.LastWeekCount)
	assert.Equal(t, map[string]int{
		"2025-03-11": 2,
		"2025-03-05": 1,
	}, data.DailyCounts)
}

func TestFirstMileTruckTotals(t *testing.T) {
	var gotDomain []any
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		require.Equal(t, "x_first_mile_freight", model)
		gotDomain = args[0].([]any)
		return []any{
			map[string]any{"x_studio_net_weight_ton": 42.5},
			map[string]any{"x_studio_net_weight_ton": 7.5},
			map[string]any{"x_studio_net_weight_ton": false}, // вес не заполнен
		}, nil
	}}
	d := NewDashboard(fake)
	d.now = fixedNow

	data, err := d.FirstMileTruck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, data.TotalOrders)
	assert.Equal(t, 50.0, data.TotalWeight)

	// домен фильтрует по терминалу NDP и сегодняшнему дню
	first := gotDomain[0].([]any)
	assert.Equal(t, []any{"x_studio_terminal", "=", "NDP"}, first)
	from := gotDomain[2].([]any)
	assert.Equal(t, "2025-03-12 00:00:00", from[2])
}

func TestLastMileTruckValidatesTerminal(t *testing.T) {
	d := NewDashboard(&fakeCaller{handler: func(_, _ string, _ []any, _ map[string]any) (any, error) {
		return []any{}, nil
	}})
	d.now = fixedNow

	_, err := d.LastMileTruck(context.Background(), "NDP")
	assert.Error(t, err)

	data, err := d.LastMileTruck(context.Background(), "DIC")
	require.NoError(t, err)
	assert.Equal(t, "DIC", data.Terminal)
	assert.Equal(t, 0, data.TotalOrders)
}

func TestStockpileUtilizationGrouping(t *testing.T) {
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		switch model {
		case "x_stockpile":
			return []any{
				map[string]any{
					"id":                           int64(1),
					"x_name":                       "SP-01",
					"x_studio_capacity_1":          1000.0,
					"x_studio_quantity_in_stock_t": 750.0,
					"x_studio_terminal":            "ICAD",
					"x_studio_material":            []any{int64(7), "Iron Ore"},
				},
				map[string]any{
					"id":                           int64(2),
					"x_name":                       "SP-02",
					"x_studio_capacity_1":          1500.0,
					"x_studio_quantity_in_stock_t": 600.0,
					"x_studio_terminal":            "DIC",
					// material как id — дочитывается отдельным read
					"x_studio_material": int64(9),
				},
				map[string]any{
					// терминал не указан — попадает в ICAD с префиксом
					"id":     int64(3),
					"x_name": "SP-03",
				},
			}, nil
		case "x_material":
			require.Equal(t, "read", method)
			return []any{map[string]any{"x_name": "Coal"}}, nil
		default:
			return nil, errors.New("unexpected model " + model)
		}
	}}
	d := NewDashboard(fake)
	d.now = fixedNow

	data, err := d.StockpileUtilization(context.Background())
	require.NoError(t, err)

	require.Len(t, data["ICAD"], 2)
	require.Len(t, data["DIC"], 1)

	icad := data["ICAD"][0]
	assert.Equal(t, "SP-01", icad.Name)
	assert.Equal(t, "Iron Ore", icad.MaterialName)
	assert.InDelta(t, 75.0, icad.UtilizationPercent, 0.001)

	dic := data["DIC"][0]
	assert.Equal(t, "Coal", dic.MaterialName)
	assert.InDelta(t, 40.0, dic.UtilizationPercent, 0.001)

	orphan := data["ICAD"][1]
	assert.Equal(t, "ICAD-SP-03", orphan.Name)
	// дефолтная ёмкость, пустой остаток
	assert.Equal(t, 5000.0, orphan.Capacity)
	assert.Equal(t, 0.0, orphan.UtilizationPercent)
}

func TestRUWContainerStats(t *testing.T) {
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		require.Equal(t, "x_container", model)
		switch method {
		case "search_count":
			domain := args[0].([]any)
			if len(domain) == 1 {
				return int64(40), nil // total
			}
			cond := domain[1].([]any)
			if cond[2] == true {
				return int64(30), nil // loaded
			}
			return int64(10), nil // empty
		case "search_read":
			return []any{map[string]any{"x_name": "CONT-1"}}, nil
		}
		return nil, errors.New("unexpected method " + method)
	}}
	im := NewIntermodal(fake)
	im.now = fixedNow

	stats, err := im.RUWContainerStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 40, stats.Total)
	assert.EqualValues(t, 30, stats.Loaded)
	assert.EqualValues(t, 10, stats.Empty)
	assert.Equal(t, 75.0, stats.LoadedPercentage)
	assert.Equal(t, 25.0, stats.EmptyPercentage)
	assert.Len(t, stats.RecentContainers, 1)
}

func TestAllLocationsContainerStats(t *testing.T) {
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		return []any{
			map[string]any{"x_studio_location": "RUW", "x_studio_filled": true},
			map[string]any{"x_studio_location": "RUW", "x_studio_filled": false},
			map[string]any{"x_studio_location": "RUW", "x_studio_filled": true},
			map[string]any{"x_studio_location": "ICAD", "x_studio_filled": false},
			map[string]any{"x_studio_location": false, "x_studio_filled": false},
		}, nil
	}}
	im := NewIntermodal(fake)
	im.now = fixedNow

	stats, err := im.AllLocationsContainerStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.Locations, 3)

	// сортировка по total по убыванию
	assert.Equal(t, "RUW", stats.Locations[0].Location)
	assert.EqualValues(t, 3, stats.Locations[0].Total)
	assert.EqualValues(t, 2, stats.Locations[0].Loaded)
	assert.InDelta(t, 66.7, stats.Locations[0].LoadedPercentage, 0.01)
}

func TestRecentTrainDepartures(t *testing.T) {
	fake := &fakeCaller{handler: func(model, method string, args []any, kw map[string]any) (any, error) {
		require.Equal(t, "x_scheduled_train", model)
		return []any{
			map[string]any{
				"id": int64(11), "x_name": "TR-011",
				"x_studio_from": "NDP", "x_studio_to_1": "ICAD",
				"x_studio_actual_departure": "2025-03-10 04:00:00",
				trainStatusField:            "Departed from Origin",
				"x_studio_train_set":        "Set A",
			},
			// без фактического отправления — отбрасывается
			map[string]any{
				"id": int64(12), "x_name": "TR-012",
				"x_studio_actual_departure": false,
				trainStatusField:            "Departed from Origin",
			},
		}, nil
	}}
	im := NewIntermodal(fake)
	im.now = fixedNow

	data, err := im.RecentTrainDepartures(context.Background(), 0) // 0 → дефолт 14
	require.NoError(t, err)
	assert.Equal(t, 14, data.Days)
	require.Equal(t, 1, data.TotalCount)
	assert.Equal(t, "TR-011", data.Trains[0].TrainID)
	assert.Equal(t, "NDP", data.Trains[0].Origin)
	assert.Equal(t, "ICAD", data.Trains[0].Destination)
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 0.0, percentage(1, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 33.3, percentage(1, 3))
	assert.Equal(t, 66.7, percentage(2, 3))
}
