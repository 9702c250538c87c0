package search

import (
	"encoding/json"
	"fmt"
)

// Исторические неквалифицированные пути полей переписываются на текущие
// вложенные - старые расшаренные ссылки обязаны продолжать работать
var legacyFieldRewrites = map[string]string{
	"recipientRegionName":   "additional_data.recipientRegionName",
	"recipientDistrictName": "additional_data.recipientDistrictName",
	"recipientWardName":     "additional_data.recipientWardName",
}

// Имена агрегаций с собственным размером страницы в extra_context
var legacyFacetSizeKeys = map[string]string{
	"awardYear_facet_size":          AggAwardYear,
	"amountAwardedFixed_facet_size": AggAmountFixed,
}

type legacyQuery struct {
	Query struct {
		Bool struct {
			Must   json.RawMessage   `json:"must"`
			Filter []json.RawMessage `json:"filter"`
		} `json:"bool"`
	} `json:"query"`
	Sort         json.RawMessage            `json:"sort"`
	ExtraContext map[string]int             `json:"extra_context"`
	Aggs         map[string]legacyAggregate `json:"aggs"`
}

type legacyAggregate struct {
	Terms *struct {
		Size int `json:"size"`
	} `json:"terms"`
}

type legacyBool struct {
	Bool struct {
		Should  json.RawMessage   `json:"should"`
		MustNot []json.RawMessage `json:"must_not"`
		Must    json.RawMessage   `json:"must"`
	} `json:"bool"`
}

// ParseLegacyQuery разбирает сериализованный json_query из старых ссылок.
// Более короткий массив фильтров (от версий с меньшим числом фасетов)
// дополняется пустыми слотами в хвосте, а не отвергается.
func ParseLegacyQuery(data []byte) (*Query, error) {
	var legacy legacyQuery
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse legacy query: %w", err)
	}

	if legacy.Query.Bool.Must == nil {
		return nil, fmt.Errorf("legacy query has no query.bool.must")
	}

	q := NewQuery()

	var must struct {
		QueryString struct {
			Query        string `json:"query"`
			DefaultField string `json:"default_field"`
		} `json:"query_string"`
	}
	if err := json.Unmarshal(legacy.Query.Bool.Must, &must); err != nil {
		return nil, fmt.Errorf("failed to parse legacy query_string: %w", err)
	}
	if must.QueryString.Query != "" {
		q.Text = must.QueryString.Query
	}
	if must.QueryString.DefaultField != "" {
		q.DefaultField = must.QueryString.DefaultField
	}

	if legacy.Sort != nil {
		var sort map[string]struct {
			Order string `json:"order"`
		}
		if err := json.Unmarshal(legacy.Sort, &sort); err == nil {
			for field, order := range sort {
				q.SortField = field
				if order.Order != "" {
					q.SortOrder = order.Order
				}
				break
			}
		}
	}

	if len(legacy.Query.Bool.Filter) > NumSlots {
		return nil, fmt.Errorf("legacy filter has %d slots, supported maximum is %d",
			len(legacy.Query.Bool.Filter), NumSlots)
	}

	for slot, raw := range legacy.Query.Bool.Filter {
		clause, err := parseLegacySlot(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse filter slot %d: %w", slot, err)
		}
		q.Filters[slot] = clause
	}
	// Хвост остается пустыми дефолтными слотами - это и есть паддинг

	for key, size := range legacy.ExtraContext {
		if agg, ok := legacyFacetSizeKeys[key]; ok && size != FacetSizeSmall {
			q.FacetSizes[agg] = size
		}
	}
	for name, agg := range legacy.Aggs {
		if _, ok := FacetByParam(name); !ok {
			continue
		}
		if agg.Terms != nil && agg.Terms.Size != FacetSizeSmall {
			q.FacetSizes[name] = agg.Terms.Size
		}
	}

	return q, nil
}

func parseLegacySlot(data []byte) (*FilterClause, error) {
	var slot legacyBool
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, err
	}

	clause := &FilterClause{}

	if len(slot.Bool.Should) > 0 {
		clauses, err := parseLegacyClauseList(slot.Bool.Should)
		if err != nil {
			return nil, err
		}
		clause.Should = clauses
	}

	for _, raw := range slot.Bool.MustNot {
		c, ok, err := parseLegacyClause(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			clause.MustNot = append(clause.MustNot, c)
		}
	}

	if len(slot.Bool.Must) > 0 {
		c, ok, err := parseLegacyClause(slot.Bool.Must)
		if err != nil {
			return nil, err
		}
		if ok && c.Term != nil {
			clause.Must = c.Term
		}
	}

	return clause, nil
}

// parseLegacyClauseList принимает и список клауз, и одиночный объект -
// исторический слот свободного диапазона сумм хранил should как объект
func parseLegacyClauseList(data json.RawMessage) ([]Clause, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		c, ok, err := parseLegacyClause(data)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []Clause{c}, nil
	}

	clauses := make([]Clause, 0, len(list))
	for _, raw := range list {
		c, ok, err := parseLegacyClause(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			clauses = append(clauses, c)
		}
	}
	return clauses, nil
}

// parseLegacyClause разбирает {"term": {...}} либо {"range": {...}};
// пустые объекты-заполнители легитимны и пропускаются
func parseLegacyClause(data json.RawMessage) (Clause, bool, error) {
	var node struct {
		Term  map[string]json.RawMessage `json:"term"`
		Range map[string]struct {
			GTE    any    `json:"gte"`
			LTE    any    `json:"lte"`
			LT     any    `json:"lt"`
			Format string `json:"format"`
		} `json:"range"`
	}
	if err := json.Unmarshal(data, &node); err != nil {
		return Clause{}, false, err
	}

	for field, rawValue := range node.Term {
		var value string
		if err := json.Unmarshal(rawValue, &value); err != nil {
			// Форма {"term": {"field": {"value": ...}}}
			var wrapped struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(rawValue, &wrapped); err != nil {
				return Clause{}, false, err
			}
			value = wrapped.Value
		}
		return Clause{Term: &TermValue{Field: rewriteLegacyField(field), Value: value}}, true, nil
	}

	for field, bounds := range node.Range {
		if bounds.GTE == nil && bounds.LTE == nil && bounds.LT == nil {
			// Пустой диапазон-заполнитель
			return Clause{}, false, nil
		}
		return Clause{Range: &RangeValue{
			Field:  rewriteLegacyField(field),
			GTE:    bounds.GTE,
			LTE:    bounds.LTE,
			LT:     bounds.LT,
			Format: bounds.Format,
		}}, true, nil
	}

	return Clause{}, false, nil
}

func rewriteLegacyField(field string) string {
	if current, ok := legacyFieldRewrites[field]; ok {
		return current
	}
	return field
}
