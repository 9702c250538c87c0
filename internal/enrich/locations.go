package enrich

import (
	"encoding/json"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
)

// Источники географических записей в additional_data.locationLookup
const (
	sourceBeneficiary       = "beneficiaryLocation"
	sourceRecipientLocation = "recipientOrganizationLocation"
	sourceRecipientPostcode = "recipientOrganizationPostcode"
)

// LocationEntry - одна запись геопривязки из внешнего геосправочника
type LocationEntry struct {
	Source       string `json:"source"`
	DistrictCode string `json:"ladcd"`
	DistrictName string `json:"ladnm"`
	RegionName   string `json:"rgnnm"`
	CountryName  string `json:"ctrynm"`
	CountyName   string `json:"utlanm"`
	WardCode     string `json:"wdcd"`
	WardName     string `json:"wdnm"`
}

// Географические поля, получающие "Undetermined", если после уплощения
// так и не определились. Список фиксированный: фасеты и CSV-выгрузка
// рассчитывают на присутствие этих ключей в каждом гранте.
var undeterminedFields = []string{
	"recipientRegionName",
	"recipientDistrictName",
	"GNRecipientOrgRegionName",
	"GNRecipientOrgDistrictName",
	"GNBeneficiaryRegionName",
	"GNBeneficiaryDistrictName",
	"GNBestCountyName",
}

// flattenLocations уплощает список геозаписей в плоские поля
// additional_data. Для каждого поля выигрывает первое совпадение: более
// ранняя запись приоритетнее, уже записанное значение не перетирается.
// Региону без имени региона (домашние нации без регионального деления)
// подставляется имя страны.
func flattenLocations(grant *models.Grant) {
	entries := locationEntries(grant)
	if len(entries) == 0 {
		return
	}

	set := func(key, value string) {
		if value == "" {
			return
		}
		if _, exists := grant.AdditionalData[key]; exists {
			return
		}
		grant.AdditionalData[key] = value
	}

	var beneficiaryCounty, recipientCounty string

	for _, entry := range entries {
		region := entry.RegionName
		if region == "" {
			region = entry.CountryName
		}

		// Лучшие доступные поля получателя заполняются из любого
		// источника в порядке следования записей
		set("recipientRegionName", region)
		set("recipientDistrictName", entry.DistrictName)
		set("recipientDistrictGeoCode", entry.DistrictCode)
		set("recipientWardName", entry.WardName)
		set("recipientWardNameGeoCode", entry.WardCode)

		switch entry.Source {
		case sourceBeneficiary:
			set("GNBeneficiaryRegionName", region)
			set("GNBeneficiaryDistrictName", entry.DistrictName)
			set("GNBeneficiaryDistrictGeoCode", entry.DistrictCode)
			if beneficiaryCounty == "" {
				beneficiaryCounty = entry.CountyName
			}
		case sourceRecipientLocation, sourceRecipientPostcode:
			set("GNRecipientOrgRegionName", region)
			set("GNRecipientOrgDistrictName", entry.DistrictName)
			set("GNRecipientOrgDistrictGeoCode", entry.DistrictCode)
			if recipientCounty == "" {
				recipientCounty = entry.CountyName
			}
		}
	}

	// Лучшее графство: бенефициарное приоритетнее организации получателя
	if beneficiaryCounty != "" {
		set("GNBestCountyName", beneficiaryCounty)
	} else {
		set("GNBestCountyName", recipientCounty)
	}
}

// locationEntries декодирует additional_data.locationLookup; мешок
// additional_data нетипизирован, поэтому через повторную сериализацию
func locationEntries(grant *models.Grant) []LocationEntry {
	raw, ok := grant.AdditionalData["locationLookup"]
	if !ok {
		return nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var entries []LocationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// defaultUndetermined проставляет "Undetermined" в так и не определенные
// географические поля. Только после всех остальных шагов - иначе дефолт
// замаскирует настоящее значение.
func defaultUndetermined(grant *models.Grant) {
	for _, field := range undeterminedFields {
		if _, exists := grant.AdditionalData[field]; !exists {
			grant.AdditionalData[field] = "Undetermined"
		}
	}
}
