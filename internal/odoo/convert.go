package odoo

// XML-RPC приносит значения как any; пустые поля Odoo отдаёт как false.
// Конвертеры ниже сводят это к обычным Go-типам.

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// asRecords — результат search_read/read: список map-записей.
func asRecords(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// firstNonEmpty — первая непустая строка из вариантов полей
// (x_studio-поля в разных базах называются по-разному).
func firstNonEmpty(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(rec[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstPositive(rec map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if f := asFloat(rec[k]); f != 0 {
			return f
		}
	}
	return 0
}
