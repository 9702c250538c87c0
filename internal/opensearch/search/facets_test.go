package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermFacetsTableConsistency(t *testing.T) {
	params := make(map[string]bool)
	slots := make(map[int]bool)

	for _, facet := range TermFacets {
		assert.NotEmpty(t, facet.FieldName, "facet %s has no field", facet.ParamName)
		assert.NotEmpty(t, facet.ParamName, "facet with field %s has no param", facet.FieldName)
		assert.NotEmpty(t, facet.DisplayName, "facet %s has no display name", facet.ParamName)
		assert.Positive(t, facet.FacetSize, "facet %s has no default size", facet.ParamName)

		assert.False(t, params[facet.ParamName], "duplicate param %s", facet.ParamName)
		params[facet.ParamName] = true

		assert.False(t, slots[facet.FilterIndex], "slot %d claimed twice", facet.FilterIndex)
		slots[facet.FilterIndex] = true

		assert.GreaterOrEqual(t, facet.FilterIndex, 0)
		assert.Less(t, facet.FilterIndex, NumSlots)
	}
}

func TestSlotLayout(t *testing.T) {
	// Позиции слотов - внешний контракт URL, их смена ломает старые ссылки
	assert.Equal(t, 0, SlotFundingOrg)
	assert.Equal(t, 1, SlotRecipientOrg)
	assert.Equal(t, 2, SlotAmountFixed)
	assert.Equal(t, 3, SlotAmountRange)
	assert.Equal(t, 4, SlotAwardYear)
	assert.Equal(t, 9, SlotDateRange)
	assert.Equal(t, 13, SlotAgeBand)
	assert.Equal(t, 14, NumSlots)
}

func TestFacetByParam(t *testing.T) {
	facet, ok := FacetByParam("currency")
	require.True(t, ok)
	assert.Equal(t, SlotCurrency, facet.FilterIndex)
	assert.Equal(t, "currency", facet.FieldName)

	_, ok = FacetByParam("noSuchFacet")
	assert.False(t, ok)
}

func TestFixedAmountRangesShape(t *testing.T) {
	require.NotEmpty(t, FixedAmountRanges)

	for i, bucket := range FixedAmountRanges {
		if bucket.To != 0 {
			assert.Less(t, bucket.From, bucket.To, "bucket %d is inverted", i)
		}
		if i > 0 {
			prev := FixedAmountRanges[i-1]
			assert.GreaterOrEqual(t, bucket.From, prev.To, "bucket %d overlaps previous", i)
		}
	}

	last := FixedAmountRanges[len(FixedAmountRanges)-1]
	assert.Zero(t, last.To, "last bucket must be open-ended")
}

func TestAgeBandOrderMatchesFacet(t *testing.T) {
	facet, ok := FacetByParam("recipientOrgAgeBand")
	require.True(t, ok)

	// Размер страницы возрастного фасета вмещает все корзины сразу
	assert.Equal(t, len(AgeBandOrder), facet.FacetSize)
}
