package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DurationType единица длительности подписки
type DurationType string

const (
	DurationMinute DurationType = "minute"
	DurationHour   DurationType = "hour"
	DurationDay    DurationType = "day"
	DurationWeek   DurationType = "week"
	DurationMonth  DurationType = "month"
	DurationYear   DurationType = "year"
)

// ParseDurationType принимает "day", "Days", "DAILY" и т.п.
func ParseDurationType(s string) (DurationType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "minute", "minutes":
		return DurationMinute, nil
	case "hour", "hours", "hourly":
		return DurationHour, nil
	case "day", "days", "daily":
		return DurationDay, nil
	case "week", "weeks", "weekly":
		return DurationWeek, nil
	case "month", "months", "monthly":
		return DurationMonth, nil
	case "year", "years", "yearly":
		return DurationYear, nil
	}
	return "", fmt.Errorf("unknown duration type %q", s)
}

// AddTo возвращает from + n единиц. Месяцы и годы считаются по календарю.
func (d DurationType) AddTo(from time.Time, n int) time.Time {
	switch d {
	case DurationMinute:
		return from.Add(time.Duration(n) * time.Minute)
	case DurationHour:
		return from.Add(time.Duration(n) * time.Hour)
	case DurationDay:
		return from.AddDate(0, 0, n)
	case DurationWeek:
		return from.AddDate(0, 0, 7*n)
	case DurationMonth:
		return from.AddDate(0, n, 0)
	case DurationYear:
		return from.AddDate(n, 0, 0)
	}
	return from
}

// Label формирует подпись вида "1 Day" или "3 Days"
func (d DurationType) Label(n int) string {
	unit := strings.ToUpper(string(d[:1])) + string(d[1:])
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// MaxCost наибольшая стоимость, которая помещается в NUMERIC(12,2)
const MaxCost = 9999999999.99

const maxCostCents = 999999999999

// ParseCost принимает число или строку с числом. Отсутствие, NaN,
// отрицательные значения и суммы больше MaxCost считаются ошибкой.
func ParseCost(v interface{}) (float64, error) {
	var f float64
	switch c := v.(type) {
	case nil:
		return 0, fmt.Errorf("cost is required")
	case float64:
		f = c
	case int:
		f = float64(c)
	case json.Number:
		parsed, err := c.Float64()
		if err != nil {
			return 0, fmt.Errorf("cost must be a number")
		}
		f = parsed
	case string:
		s := strings.TrimSpace(c)
		if s == "" {
			return 0, fmt.Errorf("cost is required")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cost must be a number")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("cost must be a number")
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cost must be a number")
	}
	if f < 0 {
		return 0, fmt.Errorf("cost must not be negative")
	}
	// Сравнение в копейках после округления, как его выполнит Postgres
	if math.Round(f*100) > maxCostCents {
		return 0, fmt.Errorf("cost must not exceed %.2f", MaxCost)
	}
	return f, nil
}
