package export

// Column - одна колонка выгрузки: заголовок и точечный путь до значения
// в документе гранта
type Column struct {
	Title string
	Path  string
}

// GrantColumns - плоская схема CSV-выгрузки грантов. Порядок колонок -
// публичный контракт выгрузки, новые колонки добавляются в конец.
var GrantColumns = []Column{
	{"Identifier", "id"},
	{"Title", "title"},
	{"Description", "description"},
	{"Currency", "currency"},
	{"Amount Applied For", "amountAppliedFor"},
	{"Amount Awarded", "amountAwarded"},
	{"Amount Disbursed", "amountDisbursed"},
	{"Award Date", "awardDateDateOnly"},
	{"URL", "recipientOrganization.0.url"},

	{"Planned Dates:Start Date", "plannedDates.0.startDateDateOnly"},
	{"Planned Dates:End Date", "plannedDates.0.endDateDateOnly"},
	{"Planned Dates:Duration (months)", "plannedDates.0.duration"},
	{"Actual Dates:Start Date", "actualDates.0.startDateDateOnly"},
	{"Actual Dates:End Date", "actualDates.0.endDateDateOnly"},
	{"Actual Dates:Duration (months)", "actualDates.0.duration"},

	{"Recipient Org:Identifier", "recipientOrganization.0.id"},
	{"Recipient Org:Name", "recipientOrganization.0.name"},
	{"Recipient Org:Charity Number", "recipientOrganization.0.charityNumber"},
	{"Recipient Org:Company Number", "recipientOrganization.0.companyNumber"},
	{"Recipient Org:Postal Code", "recipientOrganization.0.postalCode"},

	{"Recipient Individual Id", "recipientIndividual.id"},
	{"Recipient Individual Details:Primary Grant Reason", "toIndividualsDetails.primaryGrantReason"},
	{"Recipient Individual Details:Secondary Grant Reason", "toIndividualsDetails.secondaryGrantReason"},
	{"Recipient Individual Details:Grant Purpose", "toIndividualsDetails.grantPurpose"},

	{"Funding Org:Identifier", "fundingOrganization.0.id"},
	{"Funding Org:Name", "fundingOrganization.0.name"},
	{"Funding Org:Postal Code", "fundingOrganization.0.postalCode"},
	{"Funding Org:Charity Number", "fundingOrganization.0.charityNumber"},
	{"Funding Org:Company Number", "fundingOrganization.0.companyNumber"},

	{"Grant Programme:Code", "grantProgramme.0.code"},
	{"Grant Programme:Title", "grantProgramme.0.title"},
	{"Grant Programme:URL", "grantProgramme.0.url"},

	{"Regrant Type", "regrantType"},
	{"Funding Type Title", "fundingType.0.title"},
	{"From An Open Call?", "fromOpenCall"},

	{"Best Available Recipient Region (additional data)", "additional_data.recipientRegionName"},
	{"Best Available Recipient District (additional data)", "additional_data.recipientDistrictName"},
	{"Best Available Recipient District Geographic Code (additional data)", "additional_data.recipientDistrictGeoCode"},
	{"Best Available Recipient Ward (additional data)", "additional_data.recipientWardName"},
	{"Best Available Recipient Ward Geographic Code (additional data)", "additional_data.recipientWardNameGeoCode"},

	{"Recipient Region (additional data)", "additional_data.GNRecipientOrgRegionName"},
	{"Recipient District (additional data)", "additional_data.GNRecipientOrgDistrictName"},
	{"Beneficiary Region (additional data)", "additional_data.GNBeneficiaryRegionName"},
	{"Beneficiary District (additional data)", "additional_data.GNBeneficiaryDistrictName"},
	{"Best County (additional data)", "additional_data.GNBestCountyName"},

	{"Funding Org: Org Type (additional data)", "additional_data.TSGFundingOrgType"},
	{"Funding Org: Canonical Org ID (additional data)", "additional_data.GNCanonicalFundingOrgId"},
	{"Funding Org: Canonical Name (additional data)", "additional_data.GNCanonicalFundingOrgName"},
	{"Type of Recipient", "additional_data.TSGRecipientType"},
	{"Recipient Org: Date Registered (additional data)", "additional_data.recipientOrgInfos.0.dateRegistered"},
	{"Recipient Org: Org Type (additional data)", "additional_data.recipientOrgInfos.0.organisationTypePrimary"},
	{"Recipient Org: Canonical Org ID (additional data)", "additional_data.GNCanonicalRecipientOrgId"},
	{"Recipient Org: Canonical Name (additional data)", "additional_data.GNCanonicalRecipientOrgName"},
	{"Recipient Org: Age When Awarded (additional data)", "additional_data.GNRecipientOrgAgeWhenAwarded"},

	{"Data Source", "filename"},
}
