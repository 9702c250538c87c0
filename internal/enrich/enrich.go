// Package enrich превращает сырую запись гранта или организации в полностью
// обогащенный документ для индексации. Шаги чистые, применяются в строго
// фиксированном порядке: поздние шаги читают поля, которые пишут ранние.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/internal/orgs"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

// Ключи, которые обогащение пишет в additional_data
const (
	KeyCanonicalFundingOrgName   = "GNCanonicalFundingOrgName"
	KeyCanonicalFundingOrgId     = "GNCanonicalFundingOrgId"
	KeyCanonicalRecipientOrgName = "GNCanonicalRecipientOrgName"
	KeyCanonicalRecipientOrgId   = "GNCanonicalRecipientOrgId"
	KeyRecipientOrgAge           = "GNRecipientOrgAgeWhenAwarded"
)

type Pipeline struct {
	store  *orgs.ReferenceStore
	logger logger.Logger
}

func NewPipeline(store *orgs.ReferenceStore, logger logger.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logger,
	}
}

// EnrichGrant прогоняет грант через все шаги обогащения. Ошибки разбора
// и промахи справочника - штатные пути с задокументированными фолбеками,
// фатальна только недоступность самого справочника.
func (p *Pipeline) EnrichGrant(ctx context.Context, grant *models.Grant) error {
	grant.EnsureAdditionalData()

	recipientOrg, err := p.resolveCanonicalOrgs(ctx, grant)
	if err != nil {
		return err
	}

	concatTitleAndDescription(grant)
	copyProgrammeTitleKeyword(grant)
	addDateOnlyFields(grant)
	upperCaseCurrency(grant)
	classifyRegrant(grant)
	p.bandRecipientOrgAge(grant, recipientOrg)
	flattenLocations(grant)

	// Строго последним, чтобы не затереть настоящее значение
	defaultUndetermined(grant)

	return nil
}

// resolveCanonicalOrgs подставляет канонические имя и id организаций из
// справочника. Промах - не ошибка: берем имя и id с самого гранта.
// Возвращает каноническую запись получателя для шага с возрастом.
func (p *Pipeline) resolveCanonicalOrgs(ctx context.Context, grant *models.Grant) (*models.Organisation, error) {
	var recipientOrg *models.Organisation

	if len(grant.RecipientOrganization) > 0 && grant.RecipientOrganization[0] != nil {
		ref := grant.RecipientOrganization[0]
		org, found, err := p.store.Lookup(ctx, ref.Id, models.DataTypeRecipient)
		if err != nil {
			return nil, fmt.Errorf("recipient org lookup: %w", err)
		}
		name, id := ref.Name, ref.Id
		if found {
			recipientOrg = org
			name = org.OrderedNames()[0]
			id = org.AllOrgIDs()[0]
		}
		grant.AdditionalData[KeyCanonicalRecipientOrgName] = name
		grant.AdditionalData[KeyCanonicalRecipientOrgId] = id
		ref.IdAndName = compositeKey(name, id)
	}

	if len(grant.FundingOrganization) > 0 && grant.FundingOrganization[0] != nil {
		ref := grant.FundingOrganization[0]
		org, found, err := p.store.Lookup(ctx, ref.Id, models.DataTypeFunder)
		if err != nil {
			return nil, fmt.Errorf("funding org lookup: %w", err)
		}
		name, id := ref.Name, ref.Id
		if found {
			name = org.OrderedNames()[0]
			id = org.AllOrgIDs()[0]
		}
		grant.AdditionalData[KeyCanonicalFundingOrgName] = name
		grant.AdditionalData[KeyCanonicalFundingOrgId] = id
		ref.IdAndName = compositeKey(name, id)
	}

	return recipientOrg, nil
}

// concatTitleAndDescription пишет title_and_description; отсутствующие
// части - пустая строка, никаких "null" в поисковом тексте
func concatTitleAndDescription(grant *models.Grant) {
	description := ""
	if grant.Description != nil {
		description = *grant.Description
	}
	grant.TitleAndDescription = grant.Title + " " + description
}

// copyProgrammeTitleKeyword дублирует title программы в keyword-поле,
// чтобы работали и точные фасеты, и полнотекстовый поиск
func copyProgrammeTitleKeyword(grant *models.Grant) {
	for _, programme := range grant.GrantProgramme {
		if programme != nil && programme.Title != "" {
			programme.TitleKeyword = programme.Title
		}
	}
}

// addDateOnlyFields пишет рядом с каждой датой ее YYYY-MM-DD часть.
// Неразбираемое значение копируется как есть, а не выбрасывается -
// отображение обязано терпеть не-ISO значение в *DateOnly.
func addDateOnlyFields(grant *models.Grant) {
	grant.AwardDateDateOnly = dateOnly(grant.AwardDate)

	for _, period := range grant.PlannedDates {
		if period == nil {
			continue
		}
		period.StartDateDateOnly = dateOnly(period.StartDate)
		period.EndDateDateOnly = dateOnly(period.EndDate)
	}
	for _, period := range grant.ActualDates {
		if period == nil {
			continue
		}
		period.StartDateDateOnly = dateOnly(period.StartDate)
		period.EndDateDateOnly = dateOnly(period.EndDate)
	}
}

func upperCaseCurrency(grant *models.Grant) {
	grant.Currency = strings.ToUpper(grant.Currency)
}

func classifyRegrant(grant *models.Grant) {
	if grant.RegrantType != "" {
		grant.SimpleGrantType = "For regrant"
	} else {
		grant.SimpleGrantType = "Direct grant"
	}
}

// bandRecipientOrgAge пишет возрастную корзину организации-получателя на
// момент award. Источник даты регистрации: recipientOrgInfos из
// additional_data, иначе каноническая запись справочника. Нет данных -
// поле опускается, а не заполняется дефолтом.
func (p *Pipeline) bandRecipientOrgAge(grant *models.Grant, recipientOrg *models.Organisation) {
	awarded, ok := parseFlexibleDate(grant.AwardDate)
	if !ok {
		return
	}

	registered, ok := registrationDate(grant, recipientOrg)
	if !ok {
		return
	}

	band, ok := ageBand(awarded.Sub(registered))
	if !ok {
		return
	}
	grant.AdditionalData[KeyRecipientOrgAge] = band
}

func registrationDate(grant *models.Grant, recipientOrg *models.Organisation) (time.Time, bool) {
	if infos, found := grant.AdditionalData["recipientOrgInfos"].([]any); found {
		for _, item := range infos {
			info, isMap := item.(map[string]any)
			if !isMap {
				continue
			}
			if raw, isString := info["dateRegistered"].(string); isString {
				if parsed, valid := parseFlexibleDate(raw); valid {
					return parsed, true
				}
			}
		}
	}

	if recipientOrg != nil && recipientOrg.FTCData != nil {
		if parsed, valid := parseFlexibleDate(recipientOrg.FTCData.DateRegistered); valid {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// EnrichOrganisation дописывает в каноническую запись организации
// производные поля для поиска: список валют, склейку всех имен для
// полнотекстового поиска и полный список идентификаторов
func (p *Pipeline) EnrichOrganisation(org *models.Organisation) {
	if org.Aggregate != nil && len(org.Aggregate.Currencies) > 0 {
		currencies := make([]string, 0, len(org.Aggregate.Currencies))
		for currency := range org.Aggregate.Currencies {
			currencies = append(currencies, currency)
		}
		org.Currency = currencies
	}

	org.OrganizationName = strings.Join(org.OrderedNames(), " ")
	org.OrgIDs = org.AllOrgIDs()
}
