package search

// Именованные слоты фильтров. Позиция слота в массиве filter - это
// контракт обратной совместимости URL: старые ссылки сериализуют массив
// по позициям, поэтому порядок менять нельзя, новые слоты только в хвост.
const (
	SlotFundingOrg = iota
	SlotRecipientOrg
	SlotAmountFixed
	SlotAmountRange
	SlotAwardYear
	SlotRegion
	SlotDistrict
	SlotCurrency
	SlotOrgType
	SlotDateRange
	SlotProgramme
	SlotRecipientType
	SlotGrantType
	SlotAgeBand

	NumSlots
)

// TermFacet - одна строка таблицы фасетов. Таблица - единственный источник
// правды для обоих направлений компилятора: новый фасет добавляется одной
// строкой здесь плюс именованным слотом выше.
type TermFacet struct {
	// Путь поля в индексе
	FieldName string
	// Имя URL-параметра (и имя агрегации в ответе)
	ParamName string
	// Слот в массиве filter
	FilterIndex int
	// Заголовок для хлебных крошек выбранных фасетов
	DisplayName string
	// Значение поля - JSON-композит [name, id], а не скаляр
	IsJSON bool
	// Размер страницы бакетов по умолчанию
	FacetSize int
}

var TermFacets = []TermFacet{
	{"fundingOrganization.id_and_name", "fundingOrganization", SlotFundingOrg, "Funders", true, 3},
	{"recipientOrganization.id_and_name", "recipientOrganization", SlotRecipientOrg, "Recipients", true, 3},
	{"additional_data.recipientRegionName", "recipientRegionName", SlotRegion, "Regions", false, 3},
	{"additional_data.recipientDistrictName", "recipientDistrictName", SlotDistrict, "Districts", false, 3},
	{"currency", "currency", SlotCurrency, "Currency", false, 3},
	{"additional_data.TSGFundingOrgType", "fundingOrgType", SlotOrgType, "Funder Types", false, 3},
	{"grantProgramme.title_keyword", "programmeTitle", SlotProgramme, "Programmes", false, 3},
	{"additional_data.TSGRecipientType", "recipientTSGType", SlotRecipientType, "Recipient Types", false, 3},
	{"simple_grant_type", "simpleGrantType", SlotGrantType, "Grant Types", false, 3},
	{"additional_data.GNRecipientOrgAgeWhenAwarded", "recipientOrgAgeBand", SlotAgeBand, "Org Age", false, 6},
}

// FacetByParam возвращает строку таблицы по имени URL-параметра
func FacetByParam(param string) (TermFacet, bool) {
	for _, facet := range TermFacets {
		if facet.ParamName == param {
			return facet, true
		}
	}
	return TermFacet{}, false
}

// Размеры страницы бакетов для переключателя "показать больше/меньше"
const (
	FacetSizeSmall = 3
	FacetSizeLarge = 50
)

// AmountBucket - фиксированный диапазон сумм. To == 0 означает открытый
// верх ("10000000+").
type AmountBucket struct {
	From float64
	To   float64
}

var FixedAmountRanges = []AmountBucket{
	{0, 500},
	{500, 1000},
	{1000, 5000},
	{5000, 10000},
	{10000, 50000},
	{50000, 100000},
	{100000, 500000},
	{1000000, 10000000},
	{10000000, 0},
}

// Возраст организаций-получателей отображается в порядке возрастания,
// а не по количеству документов - аугментер пересортировывает бакеты.
var AgeBandOrder = []string{
	"Under 1 year",
	"1-2 years",
	"2-5 years",
	"5-10 years",
	"10-25 years",
	"Over 25 years",
}

// Имена агрегаций нетерминовых фасетов
const (
	AggAmountFixed = "amountAwardedFixed"
	AggAwardYear   = "awardYear"
)
