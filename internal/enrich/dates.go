package enrich

import (
	"encoding/json"
	"time"
)

// Форматы дат, реально встречающиеся в публикуемых файлах. Полный ISO с
// временем, голая дата и несколько частичных вариантов.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	"02/01/2006",
}

func parseFlexibleDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateOnly возвращает YYYY-MM-DD часть даты; неразбираемое значение
// проходит насквозь без изменений
func dateOnly(value string) string {
	t, ok := parseFlexibleDate(value)
	if !ok {
		return value
	}
	return t.Format("2006-01-02")
}

const day = 24 * time.Hour

// Границы возрастных корзин в днях. Корзина i покрывает
// [edges[i], edges[i+1]) - нижняя граница включительно, так что ровно
// 365 дней попадает в "1-2 years", а не в "Under 1 year".
var ageBandEdges = []time.Duration{
	-365 * day,
	365 * day,
	730 * day,
	1825 * day,
	3650 * day,
	9125 * day,
	73000 * day,
}

var ageBandLabels = []string{
	"Under 1 year",
	"1-2 years",
	"2-5 years",
	"5-10 years",
	"10-25 years",
	"Over 25 years",
}

// ageBand возвращает метку корзины для возраста организации на момент
// award; возраст вне границ корзин метки не получает
func ageBand(age time.Duration) (string, bool) {
	for i := range ageBandLabels {
		if age >= ageBandEdges[i] && age < ageBandEdges[i+1] {
			return ageBandLabels[i], true
		}
	}
	return "", false
}

// compositeKey сериализует пару [имя, id] в JSON-текст составного ключа.
// Имя первым - фасеты полагаются на этот порядок.
func compositeKey(name, id string) string {
	key, _ := json.Marshal([]string{name, id})
	return string(key)
}
