package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// KeyResolver переводит сырые id организаций в индексированные композитные
// ключи [name, id] - в индексе лежит композит, а в URL ходит голый id.
type KeyResolver interface {
	ResolveOrgKeys(ctx context.Context, facet TermFacet, ids []string) ([]string, error)
}

const monthYearLayout = "01/2006"

// ParseParameters превращает плоский набор URL-параметров в структурный
// запрос. Параметр json_query (легаси-ссылки) имеет приоритет; если он не
// разбирается - молча строим дефолтный запрос с нуля.
func ParseParameters(ctx context.Context, values url.Values, resolver KeyResolver) (*Query, error) {
	if legacy := values.Get("json_query"); legacy != "" {
		q, err := ParseLegacyQuery([]byte(legacy))
		if err != nil {
			return NewQuery(), nil
		}
		return q, nil
	}

	q := NewQuery()

	if text := values.Get("query"); text != "" {
		q.Text = text
	}
	if field := values.Get("default_field"); field != "" {
		q.DefaultField = field
	}

	if sort := strings.Fields(values.Get("sort")); len(sort) == 2 {
		q.SortField = sort[0]
		q.SortOrder = sort[1]
	}

	for _, facet := range TermFacets {
		facetValues := values[facet.ParamName]
		if len(facetValues) == 0 {
			continue
		}

		raw := facetValues
		if facet.IsJSON {
			resolved, err := resolver.ResolveOrgKeys(ctx, facet, facetValues)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s keys: %w", facet.ParamName, err)
			}
			raw = resolved
		}

		clauses := make([]Clause, 0, len(raw))
		for _, value := range raw {
			clauses = append(clauses, Clause{Term: &TermValue{Field: facet.FieldName, Value: value}})
		}

		exclude := values.Get("exclude_"+facet.ParamName) != ""
		q.Filters[facet.FilterIndex].SetValues(clauses, exclude)
	}

	for _, facet := range TermFacets {
		if values.Get(facet.ParamName+"More") != "" {
			q.FacetSizes[facet.ParamName] = FacetSizeLarge
		}
	}
	for _, agg := range []string{AggAwardYear, AggAmountFixed} {
		if values.Get(agg+"More") != "" {
			q.FacetSizes[agg] = FacetSizeLarge
		}
	}

	parseAwardYears(q, values[AggAwardYear])
	parseFixedAmounts(q, values[AggAmountFixed])
	parseAmountRange(q, values)
	parseDateRange(q, values)

	// Валютная привязка суммовых слотов: только явный выбор пользователя,
	// наблюдаемую валюту подставляет аугментер на этапе агрегации
	if currency := explicitCurrency(q); currency != "" {
		if q.Filters[SlotAmountFixed].Active() {
			q.Filters[SlotAmountFixed].Must = &TermValue{Field: "currency", Value: currency}
		}
		if q.Filters[SlotAmountRange].Active() {
			q.Filters[SlotAmountRange].Must = &TermValue{Field: "currency", Value: currency}
		}
	}

	return q, nil
}

func explicitCurrency(q *Query) string {
	slot := q.Filters[SlotCurrency]
	if slot.Excluded() || len(slot.Should) != 1 {
		return ""
	}
	return slot.Should[0].Term.Value
}

func parseAwardYears(q *Query, years []string) {
	clauses := make([]Clause, 0, len(years))
	for _, year := range years {
		if _, err := strconv.Atoi(year); err != nil {
			continue
		}
		clauses = append(clauses, yearClause(year))
	}
	if len(clauses) > 0 {
		q.Filters[SlotAwardYear].Should = clauses
	}
}

func yearClause(year string) Clause {
	return Clause{Range: &RangeValue{
		Field:  "awardDate",
		GTE:    year + "||/y",
		LTE:    year + "||/y",
		Format: "year",
	}}
}

// parseFixedAmounts разбирает значения вида "500-1000" и "10000000+"
func parseFixedAmounts(q *Query, buckets []string) {
	clauses := make([]Clause, 0, len(buckets))
	for _, value := range buckets {
		bucket, ok := parseAmountBucket(value)
		if !ok {
			continue
		}
		clauses = append(clauses, bucketClause(bucket))
	}
	if len(clauses) > 0 {
		q.Filters[SlotAmountFixed].Should = clauses
	}
}

func parseAmountBucket(value string) (AmountBucket, bool) {
	if from, found := strings.CutSuffix(value, "+"); found {
		f, err := strconv.ParseFloat(from, 64)
		if err != nil {
			return AmountBucket{}, false
		}
		return AmountBucket{From: f}, true
	}

	from, to, found := strings.Cut(value, "-")
	if !found {
		return AmountBucket{}, false
	}
	f, err := strconv.ParseFloat(from, 64)
	if err != nil {
		return AmountBucket{}, false
	}
	t, err := strconv.ParseFloat(to, 64)
	if err != nil {
		return AmountBucket{}, false
	}
	return AmountBucket{From: f, To: t}, true
}

func bucketClause(bucket AmountBucket) Clause {
	r := &RangeValue{Field: "amountAwarded", GTE: bucket.From}
	if bucket.To != 0 {
		r.LT = bucket.To
	}
	return Clause{Range: r}
}

// FormatAmountBucket - обратная сторона parseAmountBucket
func FormatAmountBucket(bucket AmountBucket) string {
	if bucket.To == 0 {
		return strconv.FormatFloat(bucket.From, 'f', -1, 64) + "+"
	}
	return strconv.FormatFloat(bucket.From, 'f', -1, 64) + "-" + strconv.FormatFloat(bucket.To, 'f', -1, 64)
}

func parseAmountRange(q *Query, values url.Values) {
	bounds := &RangeValue{Field: "amountAwarded"}
	if min := values.Get("min_amount"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			bounds.GTE = v
		}
	}
	if max := values.Get("max_amount"); max != "" {
		if v, err := strconv.ParseFloat(max, 64); err == nil {
			bounds.LTE = v
		}
	}
	if bounds.GTE != nil || bounds.LTE != nil {
		q.Filters[SlotAmountRange].Should = []Clause{{Range: bounds}}
	}
}

// parseDateRange разбирает min_date/max_date в формате MM/YYYY.
// Верхняя граница - эксклюзивное первое число следующего месяца, чтобы
// диапазон включал весь названный месяц.
func parseDateRange(q *Query, values url.Values) {
	bounds := &RangeValue{Field: "awardDate"}
	if min := values.Get("min_date"); min != "" {
		if t, err := time.Parse(monthYearLayout, min); err == nil {
			bounds.GTE = t.Format("2006-01-02")
		}
	}
	if max := values.Get("max_date"); max != "" {
		if t, err := time.Parse(monthYearLayout, max); err == nil {
			bounds.LT = t.AddDate(0, 1, 0).Format("2006-01-02")
		}
	}
	if bounds.GTE != nil || bounds.LT != nil {
		q.Filters[SlotDateRange].Should = []Clause{{Range: bounds}}
	}
}

// BuildParameters - обратное направление компилятора: восстанавливает из
// структурного запроса тот же наблюдаемый набор URL-параметров. Порядок
// многозначных параметров незначим, набор значений обязан совпадать.
func BuildParameters(q *Query) url.Values {
	values := url.Values{}

	values.Set("query", q.Text)
	values.Set("default_field", q.DefaultField)
	values.Set("sort", q.SortField+" "+q.SortOrder)

	for _, facet := range TermFacets {
		slot := q.Filters[facet.FilterIndex]
		for _, clause := range slot.Values() {
			if clause.Term == nil {
				continue
			}
			value := clause.Term.Value
			if facet.IsJSON {
				value = CompositeId(value)
			}
			values.Add(facet.ParamName, value)
		}
		if slot.Excluded() {
			values.Set("exclude_"+facet.ParamName, "true")
		}
	}

	for _, clause := range q.Filters[SlotAwardYear].Should {
		if clause.Range != nil {
			if year, ok := clause.Range.GTE.(string); ok {
				values.Add(AggAwardYear, strings.TrimSuffix(year, "||/y"))
			}
		}
	}

	for _, clause := range q.Filters[SlotAmountFixed].Should {
		if clause.Range == nil {
			continue
		}
		bucket := AmountBucket{}
		if from, ok := clause.Range.GTE.(float64); ok {
			bucket.From = from
		}
		if to, ok := clause.Range.LT.(float64); ok {
			bucket.To = to
		}
		values.Add(AggAmountFixed, FormatAmountBucket(bucket))
	}

	for _, clause := range q.Filters[SlotAmountRange].Should {
		if clause.Range == nil {
			continue
		}
		if min, ok := clause.Range.GTE.(float64); ok {
			values.Set("min_amount", strconv.FormatFloat(min, 'f', -1, 64))
		}
		if max, ok := clause.Range.LTE.(float64); ok {
			values.Set("max_amount", strconv.FormatFloat(max, 'f', -1, 64))
		}
	}

	for _, clause := range q.Filters[SlotDateRange].Should {
		if clause.Range == nil {
			continue
		}
		if min, ok := clause.Range.GTE.(string); ok {
			if t, err := time.Parse("2006-01-02", min); err == nil {
				values.Set("min_date", t.Format(monthYearLayout))
			}
		}
		if max, ok := clause.Range.LT.(string); ok {
			if t, err := time.Parse("2006-01-02", max); err == nil {
				values.Set("max_date", t.AddDate(0, -1, 0).Format(monthYearLayout))
			}
		}
	}

	for param, size := range q.FacetSizes {
		if size == FacetSizeLarge {
			values.Set(param+"More", "true")
		}
	}

	return values
}

// CompositeId достает id из композитного ключа [name, id]; порядок
// элементов (имя первым) - несущий, см. модель документа
func CompositeId(key string) string {
	var pair []string
	if err := json.Unmarshal([]byte(key), &pair); err != nil || len(pair) != 2 {
		return key
	}
	return pair[1]
}

// CompositeName достает отображаемое имя из композитного ключа [name, id]
func CompositeName(key string) string {
	var pair []string
	if err := json.Unmarshal([]byte(key), &pair); err != nil || len(pair) != 2 {
		return key
	}
	return pair[0]
}
