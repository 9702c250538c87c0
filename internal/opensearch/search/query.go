package search

import (
	"encoding/json"
)

// Query - структурированный запрос: полнотекстовая часть, сортировка и
// массив фильтров с фиксированными позициями слотов. Строится на каждый
// запрос заново и выбрасывается после ответа.
type Query struct {
	Text         string
	DefaultField string
	SortField    string
	SortOrder    string

	// Ровно NumSlots элементов, позиция = слот фасета
	Filters []*FilterClause

	// Размер страницы бакетов по параметру фасета ("показать больше")
	FacetSizes map[string]int

	DataType string
}

// FilterClause - одна булева клауза слота. Значения в Should объединяются
// по ИЛИ; MustNot инвертирует слот целиком (исключающий фасет); Must
// удерживает валютную привязку суммовых слотов.
type FilterClause struct {
	Should  []Clause
	MustNot []Clause
	Must    *TermValue
}

// Clause - term либо range, ровно одно из двух
type Clause struct {
	Term  *TermValue
	Range *RangeValue
}

type TermValue struct {
	Field string
	Value string
}

// RangeValue - границы диапазона. Числовые для сумм, строковые для дат.
type RangeValue struct {
	Field  string
	GTE    any
	LTE    any
	LT     any
	Format string
}

func (c Clause) Equal(other Clause) bool {
	switch {
	case c.Term != nil && other.Term != nil:
		return *c.Term == *other.Term
	case c.Range != nil && other.Range != nil:
		return c.Range.Field == other.Range.Field &&
			c.Range.GTE == other.Range.GTE &&
			c.Range.LTE == other.Range.LTE &&
			c.Range.LT == other.Range.LT &&
			c.Range.Format == other.Range.Format
	}
	return false
}

// NewQuery возвращает запрос с пустыми слотами и сортировкой по релевантности
func NewQuery() *Query {
	q := &Query{
		Text:         "*",
		DefaultField: "*",
		SortField:    "_score",
		SortOrder:    "desc",
		Filters:      make([]*FilterClause, NumSlots),
		FacetSizes:   map[string]int{},
		DataType:     "grant",
	}
	for i := range q.Filters {
		q.Filters[i] = &FilterClause{}
	}
	return q
}

func (q *Query) Clone() *Query {
	clone := &Query{
		Text:         q.Text,
		DefaultField: q.DefaultField,
		SortField:    q.SortField,
		SortOrder:    q.SortOrder,
		Filters:      make([]*FilterClause, len(q.Filters)),
		FacetSizes:   make(map[string]int, len(q.FacetSizes)),
		DataType:     q.DataType,
	}
	for i, clause := range q.Filters {
		clone.Filters[i] = clause.clone()
	}
	for param, size := range q.FacetSizes {
		clone.FacetSizes[param] = size
	}
	return clone
}

func (f *FilterClause) clone() *FilterClause {
	clone := &FilterClause{
		Should:  cloneClauses(f.Should),
		MustNot: cloneClauses(f.MustNot),
	}
	if f.Must != nil {
		must := *f.Must
		clone.Must = &must
	}
	return clone
}

// cloneClauses копирует клаузы вглубь - клон запроса обязан быть
// независимым, аугментер мутирует клоны при сборке ссылок
func cloneClauses(clauses []Clause) []Clause {
	if clauses == nil {
		return nil
	}
	cloned := make([]Clause, len(clauses))
	for i, c := range clauses {
		if c.Term != nil {
			term := *c.Term
			cloned[i].Term = &term
		}
		if c.Range != nil {
			r := *c.Range
			cloned[i].Range = &r
		}
	}
	return cloned
}

// Active сообщает, есть ли в слоте хоть одно выбранное значение
func (f *FilterClause) Active() bool {
	return len(f.Should) > 0 || len(f.MustNot) > 0
}

// Values возвращает активные клаузы слота независимо от include/exclude
func (f *FilterClause) Values() []Clause {
	if len(f.MustNot) > 0 {
		return f.MustNot
	}
	return f.Should
}

// Excluded сообщает, инвертирован ли слот
func (f *FilterClause) Excluded() bool {
	return len(f.MustNot) > 0
}

// SetValues пишет клаузы в нужную сторону слота
func (f *FilterClause) SetValues(clauses []Clause, exclude bool) {
	if exclude {
		f.MustNot = clauses
		f.Should = nil
	} else {
		f.Should = clauses
		f.MustNot = nil
	}
}

// HasActiveFilters сообщает, выбран ли хоть один фасет
func (q *Query) HasActiveFilters() bool {
	for _, clause := range q.Filters {
		if clause.Active() || clause.Must != nil {
			return true
		}
	}
	return false
}

// ClearFilters сбрасывает все слоты в нулевое состояние
func (q *Query) ClearFilters() {
	for i := range q.Filters {
		q.Filters[i] = &FilterClause{}
	}
}

// FacetSize возвращает действующий размер страницы бакетов фасета
func (q *Query) FacetSize(param string, fallback int) int {
	if size, ok := q.FacetSizes[param]; ok {
		return size
	}
	return fallback
}

// EngineBody собирает тело запроса для движка: query_string + массив
// булевых фильтров + сортировка + terms-агрегации из таблицы фасетов.
// Пустые объекты вычищаются, иначе движок отвергает запрос.
func (q *Query) EngineBody(withAggs bool) map[string]any {
	filter := make([]any, len(q.Filters))
	for i, clause := range q.Filters {
		filter[i] = clause.engineClause()
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"query_string": map[string]any{
						"query":         q.Text,
						"default_field": q.DefaultField,
					},
				},
				"filter": filter,
			},
		},
		"sort": []any{
			map[string]any{
				q.SortField: map[string]any{"order": q.SortOrder},
			},
		},
	}

	if withAggs {
		body["aggs"] = q.buildAggs()
	}

	return cleanForEngine(body).(map[string]any)
}

func (f *FilterClause) engineClause() map[string]any {
	boolClause := map[string]any{}

	if len(f.MustNot) > 0 {
		mustNot := make([]any, len(f.MustNot))
		for i, clause := range f.MustNot {
			mustNot[i] = clause.engineClause()
		}
		boolClause["must_not"] = mustNot
	} else {
		should := make([]any, len(f.Should))
		for i, clause := range f.Should {
			should[i] = clause.engineClause()
		}
		boolClause["should"] = should
	}

	if f.Must != nil {
		boolClause["must"] = map[string]any{
			"term": map[string]any{f.Must.Field: f.Must.Value},
		}
		if len(f.Should) > 0 {
			boolClause["minimum_should_match"] = 1
		}
	}

	return map[string]any{"bool": boolClause}
}

func (c Clause) engineClause() map[string]any {
	if c.Term != nil {
		return map[string]any{
			"term": map[string]any{c.Term.Field: c.Term.Value},
		}
	}

	bounds := map[string]any{}
	if c.Range.GTE != nil {
		bounds["gte"] = c.Range.GTE
	}
	if c.Range.LTE != nil {
		bounds["lte"] = c.Range.LTE
	}
	if c.Range.LT != nil {
		bounds["lt"] = c.Range.LT
	}
	if c.Range.Format != "" {
		bounds["format"] = c.Range.Format
	}
	return map[string]any{
		"range": map[string]any{c.Range.Field: bounds},
	}
}

func (q *Query) buildAggs() map[string]any {
	aggs := map[string]any{}
	for _, facet := range TermFacets {
		aggs[facet.ParamName] = map[string]any{
			"terms": map[string]any{
				"field": facet.FieldName,
				"size":  q.FacetSize(facet.ParamName, facet.FacetSize),
			},
		}
	}

	ranges := make([]any, 0, len(FixedAmountRanges))
	for _, bucket := range FixedAmountRanges {
		r := map[string]any{"from": bucket.From}
		if bucket.To != 0 {
			r["to"] = bucket.To
		}
		ranges = append(ranges, r)
	}
	aggs[AggAmountFixed] = map[string]any{
		"range": map[string]any{
			"field":  "amountAwarded",
			"ranges": ranges,
		},
	}

	aggs[AggAwardYear] = map[string]any{
		"date_histogram": map[string]any{
			"field":             "awardDate",
			"format":            "yyyy",
			"calendar_interval": "year",
			"order":             map[string]any{"_key": "desc"},
		},
	}

	return aggs
}

// cleanForEngine рекурсивно убирает пустые объекты и массивы
func cleanForEngine(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			cleaned := cleanForEngine(item)
			if isEmptyValue(cleaned) {
				delete(v, key)
			} else {
				v[key] = cleaned
			}
		}
		return v
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			cleaned := cleanForEngine(item)
			if !isEmptyValue(cleaned) {
				result = append(result, cleaned)
			}
		}
		return result
	}
	return value
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	case nil:
		return true
	}
	return false
}

// MarshalBody сериализует тело запроса для движка
func (q *Query) MarshalBody(withAggs bool) ([]byte, error) {
	return json.Marshal(q.EngineBody(withAggs))
}
