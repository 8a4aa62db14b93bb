package odoo

import (
	"context"
	"sort"
	"time"
)

// Intermodal — запросы второго инстанса Odoo (AL TOS):
// контейнерная статистика и отправления поездов.
type Intermodal struct {
	c   Caller
	now func() time.Time
}

func NewIntermodal(c Caller) *Intermodal {
	return &Intermodal{c: c, now: func() time.Time { return time.Now().In(GST) }}
}

type ContainerStats struct {
	Location         string           `json:"location"`
	Total            int64            `json:"total"`
	Loaded           int64            `json:"loaded"`
	Empty            int64            `json:"empty"`
	LoadedPercentage float64          `json:"loaded_percentage"`
	EmptyPercentage  float64          `json:"empty_percentage"`
	RecentContainers []map[string]any `json:"recent_containers,omitempty"`
	LastUpdated      string           `json:"last_updated,omitempty"`
}

// RUWContainerStats — счётчики гружёных/порожних контейнеров на RUW.
func (im *Intermodal) RUWContainerStats(ctx context.Context) (*ContainerStats, error) {
	count := func(domain []any) (int64, error) {
		res, err := im.c.ExecuteKw(ctx, "x_container", "search_count", []any{domain}, nil)
		if err != nil {
			return 0, err
		}
		return asInt(res), nil
	}

	atRUW := []any{"x_studio_location", "=", "RUW"}
	total, err := count([]any{atRUW})
	if err != nil {
		return nil, err
	}
	loaded, err := count([]any{atRUW, []any{"x_studio_filled", "=", true}})
	if err != nil {
		return nil, err
	}
	empty, err := count([]any{atRUW, []any{"x_studio_filled", "=", false}})
	if err != nil {
		return nil, err
	}

	recent, err := im.c.ExecuteKw(ctx, "x_container", "search_read",
		[]any{[]any{atRUW}},
		map[string]any{
			"fields": []any{"id", "x_name", "x_studio_location", "x_studio_filled", "create_date", "write_date"},
			"limit":  10,
			"order":  "write_date desc",
		})
	if err != nil {
		return nil, err
	}

	return &ContainerStats{
		Location:         "RUW",
		Total:            total,
		Loaded:           loaded,
		Empty:            empty,
		LoadedPercentage: percentage(loaded, total),
		EmptyPercentage:  percentage(empty, total),
		RecentContainers: asRecords(recent),
		LastUpdated:      im.now().Format(time.RFC3339),
	}, nil
}

type LocationStats struct {
	Locations   []ContainerStats `json:"locations"`
	LastUpdated string           `json:"last_updated"`
}

// AllLocationsContainerStats — те же счётчики, сгруппированные по всем
// локациям, по убыванию total.
func (im *Intermodal) AllLocationsContainerStats(ctx context.Context) (*LocationStats, error) {
	res, err := im.c.ExecuteKw(ctx, "x_container", "search_read",
		[]any{[]any{}},
		map[string]any{"fields": []any{"x_studio_location", "x_studio_filled"}})
	if err != nil {
		return nil, err
	}

	type bucket struct{ total, loaded int64 }
	byLoc := map[string]*bucket{}
	for _, rec := range asRecords(res) {
		loc := asString(rec["x_studio_location"])
		if loc == "" {
			loc = "Unknown"
		}
		b := byLoc[loc]
		if b == nil {
			b = &bucket{}
			byLoc[loc] = b
		}
		b.total++
		if asBool(rec["x_studio_filled"]) {
			b.loaded++
		}
	}

	out := &LocationStats{
		Locations:   make([]ContainerStats, 0, len(byLoc)),
		LastUpdated: im.now().Format(time.RFC3339),
	}
	for loc, b := range byLoc {
		empty := b.total - b.loaded
		out.Locations = append(out.Locations, ContainerStats{
			Location:         loc,
			Total:            b.total,
			Loaded:           b.loaded,
			Empty:            empty,
			LoadedPercentage: percentage(b.loaded, b.total),
			EmptyPercentage:  percentage(empty, b.total),
		})
	}
	sort.Slice(out.Locations, func(i, j int) bool {
		return out.Locations[i].Total > out.Locations[j].Total
	})
	return out, nil
}

type TrainDeparture struct {
	ID              int64  `json:"id"`
	TrainID         string `json:"train_id"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	ActualDeparture string `json:"actual_departure"`
	Status          string `json:"status"`
	TrainSet        string `json:"train_set"`
}

type TrainDepartures struct {
	Trains      []TrainDeparture `json:"trains"`
	TotalCount  int              `json:"total_count"`
	Days        int              `json:"days"`
	LastUpdated string           `json:"last_updated"`
}

const trainStatusField = "x_studio_selection_field_mojWp"

// RecentTrainDepartures — поезда со статусом departed/arrived за
// последние days дней (по умолчанию 14).
func (im *Intermodal) RecentTrainDepartures(ctx context.Context, days int) (*TrainDepartures, error) {
	if days <= 0 {
		days = 14
	}
	cutoff := im.now().AddDate(0, 0, -days).Format("2006-01-02")

	domain := []any{
		"&",
		"|",
		[]any{trainStatusField, "=", "Departed from Origin"},
		[]any{trainStatusField, "=", "Arrived at Destination"},
		[]any{"x_studio_actual_departure", ">=", cutoff},
	}

	res, err := im.c.ExecuteKw(ctx, "x_scheduled_train", "search_read",
		[]any{domain},
		map[string]any{
			"fields": []any{
				"id", "display_name", "x_name",
				"x_studio_from", "x_studio_to_1",
				"x_studio_actual_departure", trainStatusField, "x_studio_train_set",
			},
			"order": "x_studio_actual_departure desc",
		})
	if err != nil {
		return nil, err
	}

	out := &TrainDepartures{
		Trains:      []TrainDeparture{},
		Days:        days,
		LastUpdated: im.now().Format(time.RFC3339),
	}
	for _, rec := range asRecords(res) {
		departure := asString(rec["x_studio_actual_departure"])
		if departure == "" {
			continue // рейс без фактического отправления не показываем
		}
		name := firstNonEmpty(rec, "x_name", "display_name")
		if name == "" {
			name = "N/A"
		}
		out.Trains = append(out.Trains, TrainDeparture{
			ID:              asInt(rec["id"]),
			TrainID:         name,
			Origin:          firstNonEmpty(rec, "x_studio_from"),
			Destination:     firstNonEmpty(rec, "x_studio_to_1"),
			ActualDeparture: departure,
			Status:          firstNonEmpty(rec, trainStatusField),
			TrainSet:        asString(rec["x_studio_train_set"]),
		})
	}
	out.TotalCount = len(out.Trains)
	return out, nil
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	// один знак после запятой, как на фронте
	return float64(int64(float64(part)/float64(total)*1000+0.5)) / 10
}
