package eeg

import "encoding/json"

// Поля, которые считаем временной меткой, а не каналом
var timestampKeys = map[string]bool{
	"timestamp": true,
	"time":      true,
	"ts":        true,
}

// Normalize приводит сырую запись бэкенда к SamplePoint.
// Схема записи не контролируется нами: ключи могут быть электродами
// (Fp1..O2), полосами (alpha/beta/...) или чем угодно еще. Числовые
// значения копируются как есть, нечисловые молча отбрасываются.
// Если временной метки нет, используется порядковый индекс
func Normalize(raw map[string]any, index int) SamplePoint {
	point := SamplePoint{
		Time:     float64(index),
		Channels: make(map[string]float64),
	}

	if raw == nil {
		return point
	}

	for _, key := range []string{"timestamp", "time", "ts"} {
		if v, ok := raw[key]; ok {
			if ts, ok := asNumber(v); ok {
				point.Time = ts
				break
			}
		}
	}

	for key, value := range raw {
		if timestampKeys[key] {
			continue
		}
		if num, ok := asNumber(value); ok {
			point.Channels[key] = num
		}
	}

	return point
}

// NormalizeBatch нормализует пачку записей, сохраняя порядок
func NormalizeBatch(raws []map[string]any, startIndex int) []SamplePoint {
	points := make([]SamplePoint, 0, len(raws))
	for i, raw := range raws {
		points = append(points, Normalize(raw, startIndex+i))
	}
	return points
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
