package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

// SelectedValue - одна хлебная крошка выбранного фасета: человекочитаемое
// значение и URL, снимающий ровно это значение
type SelectedValue struct {
	DisplayValue string `json:"display_value"`
	URL          string `json:"url"`
}

// SeeMoreLink - переключатель размера страницы бакетов фасета
type SeeMoreLink struct {
	More bool   `json:"more"`
	URL  string `json:"url"`
}

// AugmentedResults - ответ поиска, дополненный навигационным состоянием:
// URL на каждом бакете, хлебные крошки, переключатели "показать больше"
type AugmentedResults struct {
	*models.SearchResponse

	SelectedFacets map[string][]SelectedValue `json:"selected_facets"`
	SeeMore        map[string]*SeeMoreLink    `json:"see_more_url"`
}

// Augmenter дописывает в ответ движка все, что нужно странице поиска,
// чтобы оставаться без собственной логики: каждый бакет несет готовый URL
// переключения, каждый активный фасет - URL сброса.
type Augmenter struct {
	searcher *Searcher
	logger   logger.Logger
}

func NewAugmenter(searcher *Searcher, logger logger.Logger) *Augmenter {
	return &Augmenter{
		searcher: searcher,
		logger:   logger,
	}
}

// Augment декорирует ответ относительно исходного запроса. Запрос не
// мутируется: все URL строятся на клонах.
func (a *Augmenter) Augment(ctx context.Context, resp *models.SearchResponse, q *Query) (*AugmentedResults, error) {
	results := &AugmentedResults{
		SearchResponse: resp,
		SelectedFacets: make(map[string][]SelectedValue),
		SeeMore:        make(map[string]*SeeMoreLink),
	}

	existingCurrency, currentCurrency := a.currencyContext(resp, q)

	for _, facet := range TermFacets {
		if err := a.augmentTermFacet(ctx, results, q, facet); err != nil {
			return nil, err
		}
	}

	if err := a.augmentFixedAmounts(ctx, results, q, existingCurrency, currentCurrency); err != nil {
		return nil, err
	}
	a.augmentFreeAmountRange(results, q, currentCurrency)

	if err := a.augmentAwardYears(ctx, results, q); err != nil {
		return nil, err
	}
	a.augmentDateRange(results, q)

	a.reorderAgeBands(resp)

	if q.HasActiveFilters() {
		cleared := q.Clone()
		cleared.ClearFilters()
		resp.ClearAllFacetURL = facetURL(cleared, "")
	}

	a.buildSeeMoreLinks(results, q)

	return results, nil
}

// currencyContext определяет валютную рамку суммовых фасетов: явно
// зафиксированная валюта, иначе самая частая в текущей выборке
func (a *Augmenter) currencyContext(resp *models.SearchResponse, q *Query) (existing, current string) {
	if must := q.Filters[SlotAmountFixed].Must; must != nil && must.Field == "currency" {
		existing = must.Value
		current = existing
		return existing, current
	}
	if agg := resp.Aggregations["currency"]; agg != nil && len(agg.Buckets) > 0 {
		current = agg.Buckets[0].KeyString()
	}
	return existing, current
}

func (a *Augmenter) augmentTermFacet(ctx context.Context, results *AugmentedResults, q *Query, facet TermFacet) error {
	agg := results.Aggregations[facet.ParamName]
	if agg == nil {
		return nil
	}

	slot := q.Filters[facet.FilterIndex]
	current := slot.Values()
	excluded := slot.Excluded()

	// Бакеты активного фасета считаются без его собственного фильтра,
	// иначе пользователь не увидит, что еще можно выбрать
	if len(current) > 0 {
		relaxed := q.Clone()
		relaxed.Filters[facet.FilterIndex] = &FilterClause{}
		fresh, err := a.searcher.Execute(ctx, relaxed, 0, 0)
		if err != nil {
			return fmt.Errorf("failed to relax %s facet: %w", facet.ParamName, err)
		}
		if freshAgg := fresh.Aggregations[facet.ParamName]; freshAgg != nil {
			agg = freshAgg
			results.Aggregations[facet.ParamName] = agg
		}
	}

	// Хлебные крошки: каждая снимает одно значение, остальные сохраняет
	for i, clause := range current {
		remaining := make([]Clause, 0, len(current)-1)
		remaining = append(remaining, current[:i]...)
		remaining = append(remaining, current[i+1:]...)

		smaller := q.Clone()
		smaller.Filters[facet.FilterIndex].SetValues(remaining, excluded)

		display := clause.Term.Value
		if facet.IsJSON {
			display = CompositeName(display)
		}
		if excluded {
			display = "Excluded: " + display
		}
		results.SelectedFacets[facet.DisplayName] = append(results.SelectedFacets[facet.DisplayName],
			SelectedValue{DisplayValue: display, URL: facetURL(smaller, "")})
	}

	for _, bucket := range agg.Buckets {
		key := bucket.KeyString()

		toggled := make([]Clause, 0, len(current)+1)
		for _, clause := range current {
			if clause.Term != nil && clause.Term.Value == key {
				bucket.Selected = true
				continue
			}
			toggled = append(toggled, clause)
		}
		if !bucket.Selected {
			toggled = append(toggled, Clause{Term: &TermValue{Field: facet.FieldName, Value: key}})
		}

		next := q.Clone()
		next.Filters[facet.FilterIndex].SetValues(toggled, excluded)
		bucket.URL = facetURL(next, "")
	}

	if len(current) > 0 {
		cleared := q.Clone()
		cleared.Filters[facet.FilterIndex] = &FilterClause{}
		agg.ClearURL = facetURL(cleared, "")
	}
	agg.Exclude = excluded

	return nil
}

// augmentFixedAmounts всегда пересчитывает суммовые бакеты отдельным
// запросом: без собственного фильтра слота и в рамке одной валюты -
// смешивать суммы разных валют в одной гистограмме бессмысленно
func (a *Augmenter) augmentFixedAmounts(ctx context.Context, results *AugmentedResults, q *Query, existingCurrency, currentCurrency string) error {
	slot := q.Filters[SlotAmountFixed]
	current := slot.Should

	relaxed := q.Clone()
	relaxed.Filters[SlotAmountFixed].Should = nil
	relaxed.Filters[SlotAmountFixed].MustNot = nil
	if currentCurrency != "" && existingCurrency == "" {
		relaxed.Filters[SlotAmountFixed].Must = &TermValue{Field: "currency", Value: currentCurrency}
	}

	fresh, err := a.searcher.Execute(ctx, relaxed, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to compute amount buckets: %w", err)
	}
	agg := fresh.Aggregations[AggAmountFixed]
	if agg == nil {
		return nil
	}
	results.Aggregations[AggAmountFixed] = agg

	freeRangeActive := q.Filters[SlotAmountRange].Active()
	if len(current) > 0 || freeRangeActive {
		cleared := q.Clone()
		cleared.Filters[SlotAmountFixed] = &FilterClause{}
		cleared.Filters[SlotAmountRange] = &FilterClause{}
		agg.ClearURL = facetURL(cleared, "")
	}

	for _, bucket := range agg.Buckets {
		var bucketRange AmountBucket
		if bucket.From != nil {
			bucketRange.From = *bucket.From
		}
		if bucket.To != nil {
			bucketRange.To = *bucket.To
		}
		clause := bucketClause(bucketRange)

		toggled := make([]Clause, 0, len(current)+1)
		for _, existing := range current {
			if existing.Equal(clause) {
				bucket.Selected = true
				continue
			}
			toggled = append(toggled, existing)
		}
		if !bucket.Selected {
			toggled = append(toggled, clause)
		}

		next := q.Clone()
		next.Filters[SlotAmountFixed].Should = toggled
		next.Filters[SlotAmountFixed].MustNot = nil
		switch {
		case len(toggled) == 0:
			next.Filters[SlotAmountFixed].Must = nil
		case existingCurrency == "" && currentCurrency != "":
			next.Filters[SlotAmountFixed].Must = &TermValue{Field: "currency", Value: currentCurrency}
		}
		bucket.URL = facetURL(next, "")

		if bucket.Selected {
			results.SelectedFacets["Amounts"] = append(results.SelectedFacets["Amounts"],
				SelectedValue{
					DisplayValue: amountDisplay(bucketRange.From, bucketRange.To, currentCurrency),
					URL:          bucket.URL,
				})
		}
	}

	return nil
}

// augmentFreeAmountRange добавляет хлебную крошку произвольного диапазона
// сумм (min_amount/max_amount)
func (a *Augmenter) augmentFreeAmountRange(results *AugmentedResults, q *Query, currentCurrency string) {
	slot := q.Filters[SlotAmountRange]
	if !slot.Active() {
		return
	}

	for _, clause := range slot.Should {
		if clause.Range == nil {
			continue
		}
		var from, to float64
		if v, ok := clause.Range.GTE.(float64); ok {
			from = v
		}
		if v, ok := clause.Range.LTE.(float64); ok {
			to = v
		}

		cleared := q.Clone()
		cleared.Filters[SlotAmountRange] = &FilterClause{}
		results.SelectedFacets["Amounts"] = append(results.SelectedFacets["Amounts"],
			SelectedValue{
				DisplayValue: amountDisplay(from, to, currentCurrency),
				URL:          facetURL(cleared, ""),
			})
	}
}

func (a *Augmenter) augmentAwardYears(ctx context.Context, results *AugmentedResults, q *Query) error {
	agg := results.Aggregations[AggAwardYear]
	if agg == nil {
		return nil
	}

	current := q.Filters[SlotAwardYear].Should

	if len(current) > 0 {
		relaxed := q.Clone()
		relaxed.Filters[SlotAwardYear] = &FilterClause{}
		fresh, err := a.searcher.Execute(ctx, relaxed, 0, 0)
		if err != nil {
			return fmt.Errorf("failed to relax award year facet: %w", err)
		}
		if freshAgg := fresh.Aggregations[AggAwardYear]; freshAgg != nil {
			agg = freshAgg
			results.Aggregations[AggAwardYear] = agg
		}
	}

	for _, bucket := range agg.Buckets {
		year := bucket.KeyAsString
		if year == "" {
			continue
		}
		clause := yearClause(year)

		toggled := make([]Clause, 0, len(current)+1)
		for _, existing := range current {
			if existing.Equal(clause) {
				bucket.Selected = true
				continue
			}
			toggled = append(toggled, existing)
		}
		if !bucket.Selected {
			toggled = append(toggled, clause)
		}

		next := q.Clone()
		next.Filters[SlotAwardYear].Should = toggled
		bucket.URL = facetURL(next, "")

		if bucket.Selected {
			results.SelectedFacets["Award Year"] = append(results.SelectedFacets["Award Year"],
				SelectedValue{DisplayValue: year, URL: bucket.URL})
		}
	}

	if len(current) > 0 {
		cleared := q.Clone()
		cleared.Filters[SlotAwardYear] = &FilterClause{}
		agg.ClearURL = facetURL(cleared, "")
	}

	return nil
}

// augmentDateRange добавляет хлебную крошку диапазона дат min_date/max_date
func (a *Augmenter) augmentDateRange(results *AugmentedResults, q *Query) {
	slot := q.Filters[SlotDateRange]
	if !slot.Active() {
		return
	}

	params := BuildParameters(q)
	minDate, maxDate := params.Get("min_date"), params.Get("max_date")

	var display string
	switch {
	case minDate != "" && maxDate != "":
		display = minDate + " - " + maxDate
	case minDate != "":
		display = "From " + minDate
	case maxDate != "":
		display = "Until " + maxDate
	default:
		return
	}

	cleared := q.Clone()
	cleared.Filters[SlotDateRange] = &FilterClause{}
	results.SelectedFacets["Award Date"] = append(results.SelectedFacets["Award Date"],
		SelectedValue{DisplayValue: display, URL: facetURL(cleared, "")})
}

// reorderAgeBands пересортировывает бакеты возраста организаций по
// возрастанию возраста, а не по числу документов
func (a *Augmenter) reorderAgeBands(resp *models.SearchResponse) {
	agg := resp.Aggregations["recipientOrgAgeBand"]
	if agg == nil || len(agg.Buckets) == 0 {
		return
	}

	byKey := make(map[string]*models.Bucket, len(agg.Buckets))
	for _, bucket := range agg.Buckets {
		byKey[bucket.KeyString()] = bucket
	}

	ordered := make([]*models.Bucket, 0, len(agg.Buckets))
	for _, band := range AgeBandOrder {
		if bucket, ok := byKey[band]; ok {
			ordered = append(ordered, bucket)
			delete(byKey, band)
		}
	}
	// Неизвестные метки в хвост, чтобы ничего не потерять
	for _, bucket := range agg.Buckets {
		if _, ok := byKey[bucket.KeyString()]; ok {
			ordered = append(ordered, bucket)
		}
	}

	agg.Buckets = ordered
}

// buildSeeMoreLinks строит переключатель 3<->50 для каждого фасета
func (a *Augmenter) buildSeeMoreLinks(results *AugmentedResults, q *Query) {
	names := make([]string, 0, len(TermFacets)+2)
	for _, facet := range TermFacets {
		names = append(names, facet.ParamName)
	}
	names = append(names, AggAwardYear, AggAmountFixed)

	for _, name := range names {
		if results.Aggregations[name] == nil {
			continue
		}

		more := q.FacetSize(name, FacetSizeSmall) == FacetSizeSmall
		next := q.Clone()
		if more {
			next.FacetSizes[name] = FacetSizeLarge
		} else {
			delete(next.FacetSizes, name)
		}

		results.SeeMore[name] = &SeeMoreLink{
			More: more,
			URL:  facetURL(next, name),
		}
	}
}

// facetURL сериализует запрос в относительный URL; anchor прокручивает
// страницу к нужному фасету
func facetURL(q *Query, anchor string) string {
	u := "?" + BuildParameters(q).Encode()
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}

// amountDisplay форматирует диапазон сумм для хлебной крошки: "£10,000 -
// £50,000" либо "£10,000+" для открытого верха
func amountDisplay(from, to float64, currency string) string {
	display := currencyPrefix(currency) + formatThousands(int64(from))
	if to != 0 {
		return display + " - " + currencyPrefix(currency) + formatThousands(int64(to))
	}
	return display + "+"
}

func currencyPrefix(currency string) string {
	switch strings.ToUpper(currency) {
	case "GBP":
		return "£"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "":
		return ""
	default:
		return currency + " "
	}
}

func formatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
