package search

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyQuery_ShortFilterPadded(t *testing.T) {
	// Ссылка эпохи восьми слотов: хвост добивается пустыми
	data := []byte(`{
		"query": {"bool": {
			"must": {"query_string": {"query": "gardens", "default_field": "*"}},
			"filter": [
				{"bool": {"should": []}},
				{"bool": {"should": []}},
				{"bool": {"should": []}},
				{"bool": {"should": {"range": {"amountAwarded": {}}}}},
				{"bool": {"should": []}},
				{"bool": {"should": [{"term": {"recipientRegionName": "London"}}]}},
				{"bool": {"should": []}},
				{"bool": {"should": [{"term": {"currency": "GBP"}}]}}
			]
		}},
		"sort": {"_score": {"order": "desc"}}
	}`)

	q, err := ParseLegacyQuery(data)
	require.NoError(t, err)

	assert.Equal(t, "gardens", q.Text)
	assert.Equal(t, "_score", q.SortField)
	require.Len(t, q.Filters, NumSlots)

	region := q.Filters[SlotRegion]
	require.Len(t, region.Should, 1)
	// Неквалифицированное историческое имя поля переписано на вложенное
	assert.Equal(t, "additional_data.recipientRegionName", region.Should[0].Term.Field)
	assert.Equal(t, "London", region.Should[0].Term.Value)

	currency := q.Filters[SlotCurrency]
	require.Len(t, currency.Should, 1)
	assert.Equal(t, "GBP", currency.Should[0].Term.Value)

	// Пустой range-заполнитель и добитые слоты неактивны
	assert.False(t, q.Filters[SlotAmountRange].Active())
	assert.False(t, q.Filters[SlotDateRange].Active())
	assert.False(t, q.Filters[SlotAgeBand].Active())
}

func TestParseLegacyQuery_ShouldAsSingleObject(t *testing.T) {
	data := []byte(`{
		"query": {"bool": {
			"must": {"query_string": {"query": "*"}},
			"filter": [
				{"bool": {"should": []}},
				{"bool": {"should": []}},
				{"bool": {"should": []}},
				{"bool": {"should": {"range": {"amountAwarded": {"gte": 1000, "lte": 50000}}}}}
			]
		}}
	}`)

	q, err := ParseLegacyQuery(data)
	require.NoError(t, err)

	slot := q.Filters[SlotAmountRange]
	require.Len(t, slot.Should, 1)
	assert.Equal(t, float64(1000), slot.Should[0].Range.GTE)
	assert.Equal(t, float64(50000), slot.Should[0].Range.LTE)
}

func TestParseLegacyQuery_MustNotAndWrappedTerm(t *testing.T) {
	data := []byte(`{
		"query": {"bool": {
			"must": {"query_string": {"query": "*"}},
			"filter": [
				{"bool": {"must_not": [{"term": {"fundingOrganization.id_and_name": {"value": "[\"A\",\"GB-1\"]"}}}]}}
			]
		}}
	}`)

	q, err := ParseLegacyQuery(data)
	require.NoError(t, err)

	slot := q.Filters[SlotFundingOrg]
	assert.True(t, slot.Excluded())
	require.Len(t, slot.MustNot, 1)
	assert.Equal(t, `["A","GB-1"]`, slot.MustNot[0].Term.Value)
}

func TestParseLegacyQuery_MustCurrencyBinding(t *testing.T) {
	data := []byte(`{
		"query": {"bool": {
			"must": {"query_string": {"query": "*"}},
			"filter": [
				{"bool": {"should": []}},
				{"bool": {"should": []}},
				{"bool": {
					"should": [{"range": {"amountAwarded": {"gte": 500, "lt": 1000}}}],
					"must": {"term": {"currency": "GBP"}}
				}}
			]
		}}
	}`)

	q, err := ParseLegacyQuery(data)
	require.NoError(t, err)

	slot := q.Filters[SlotAmountFixed]
	require.NotNil(t, slot.Must)
	assert.Equal(t, TermValue{Field: "currency", Value: "GBP"}, *slot.Must)
	require.Len(t, slot.Should, 1)
}

func TestParseLegacyQuery_FacetSizes(t *testing.T) {
	data := []byte(`{
		"query": {"bool": {
			"must": {"query_string": {"query": "*"}},
			"filter": []
		}},
		"extra_context": {
			"awardYear_facet_size": 50,
			"amountAwardedFixed_facet_size": 3
		},
		"aggs": {
			"currency": {"terms": {"field": "currency", "size": 50}},
			"unknownAgg": {"terms": {"field": "x", "size": 50}}
		}
	}`)

	q, err := ParseLegacyQuery(data)
	require.NoError(t, err)

	assert.Equal(t, FacetSizeLarge, q.FacetSize(AggAwardYear, FacetSizeSmall))
	// Дефолтный размер не запоминается
	assert.Equal(t, FacetSizeSmall, q.FacetSize(AggAmountFixed, FacetSizeSmall))
	assert.Equal(t, FacetSizeLarge, q.FacetSize("currency", FacetSizeSmall))
	// Агрегация вне таблицы фасетов игнорируется
	assert.Equal(t, FacetSizeSmall, q.FacetSize("unknownAgg", FacetSizeSmall))
}

func TestParseLegacyQuery_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"missing must", `{"query": {"bool": {"filter": []}}}`},
		{"too many slots", `{
			"query": {"bool": {
				"must": {"query_string": {"query": "*"}},
				"filter": [
					{}, {}, {}, {}, {}, {}, {}, {},
					{}, {}, {}, {}, {}, {}, {}
				]
			}}
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLegacyQuery([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseParameters_LegacyPrecedence(t *testing.T) {
	values := url.Values{
		"json_query": {`{
			"query": {"bool": {
				"must": {"query_string": {"query": "legacy text"}},
				"filter": []
			}}
		}`},
		"query": {"ignored"},
	}

	q, err := ParseParameters(context.Background(), values, nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy text", q.Text)
}

func TestParseParameters_BadLegacyFallsBack(t *testing.T) {
	values := url.Values{
		"json_query": {`not json at all`},
		"query":      {"also ignored"},
	}

	q, err := ParseParameters(context.Background(), values, nil)
	require.NoError(t, err)
	// Сломанная легаси-ссылка дает чистый дефолтный запрос, а не 500
	assert.Equal(t, "*", q.Text)
	assert.False(t, q.HasActiveFilters())
}
