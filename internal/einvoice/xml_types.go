package einvoice

import "encoding/xml"

// UBL 2.1 Invoice syntax, EN16931 / XRechnung billing profile.
// Element order inside each struct is schema-relevant — do not reorder.

type xmlInvoice struct {
	XMLName          xml.Name `xml:"Invoice"`
	Xmlns            string   `xml:"xmlns,attr"`
	Cac              string   `xml:"xmlns:cac,attr"`
	Cbc              string   `xml:"xmlns:cbc,attr"`
	CustomizationID  string   `xml:"cbc:CustomizationID"`
	ProfileID        string   `xml:"cbc:ProfileID"`
	ID               string   `xml:"cbc:ID"`
	IssueDate        string   `xml:"cbc:IssueDate"`
	DueDate          string   `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode  string   `xml:"cbc:InvoiceTypeCode"`
	Note             string   `xml:"cbc:Note,omitempty"`
	DocumentCurrency string   `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference   string   `xml:"cbc:BuyerReference,omitempty"`

	OrderReference *xmlOrderReference `xml:"cac:OrderReference,omitempty"`
	BillingReference *xmlBillingReference `xml:"cac:BillingReference,omitempty"`

	SupplierParty xmlSupplierParty `xml:"cac:AccountingSupplierParty"`
	CustomerParty xmlCustomerParty `xml:"cac:AccountingCustomerParty"`

	PaymentMeans xmlPaymentMeans `xml:"cac:PaymentMeans"`

	AllowanceCharge []xmlAllowanceCharge `xml:"cac:AllowanceCharge,omitempty"`

	TaxTotal           xmlTaxTotal      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal xmlMonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines       []xmlInvoiceLine `xml:"cac:InvoiceLine"`
}

type xmlOrderReference struct {
	ID string `xml:"cbc:ID"`
}

// xmlBillingReference links a cancellation document to the invoice it reverses.
type xmlBillingReference struct {
	InvoiceDocumentReference xmlDocumentReference `xml:"cac:InvoiceDocumentReference"`
}

type xmlDocumentReference struct {
	ID string `xml:"cbc:ID"`
}

type xmlSupplierParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlCustomerParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlParty struct {
	EndpointID     *xmlEndpointID    `xml:"cbc:EndpointID,omitempty"`
	PartyName      string            `xml:"cac:PartyName>cbc:Name"`
	PostalAddress  xmlPostalAddress  `xml:"cac:PostalAddress"`
	PartyTaxScheme *xmlPartyTaxScheme `xml:"cac:PartyTaxScheme,omitempty"`
	LegalEntity    xmlLegalEntity    `xml:"cac:PartyLegalEntity"`
	Contact        *xmlContact       `xml:"cac:Contact,omitempty"`
}

type xmlEndpointID struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type xmlPostalAddress struct {
	StreetName string     `xml:"cbc:StreetName,omitempty"`
	CityName   string     `xml:"cbc:CityName,omitempty"`
	PostalZone string     `xml:"cbc:PostalZone,omitempty"`
	Country    xmlCountry `xml:"cac:Country"`
}

type xmlCountry struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

type xmlPartyTaxScheme struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type xmlLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
}

type xmlContact struct {
	Name           string `xml:"cbc:Name,omitempty"`
	Telephone      string `xml:"cbc:Telephone,omitempty"`
	ElectronicMail string `xml:"cbc:ElectronicMail,omitempty"`
}

type xmlPaymentMeans struct {
	PaymentMeansCode      string              `xml:"cbc:PaymentMeansCode"`
	PayeeFinancialAccount xmlFinancialAccount `xml:"cac:PayeeFinancialAccount"`
}

type xmlFinancialAccount struct {
	ID                         string                         `xml:"cbc:ID"`
	FinancialInstitutionBranch *xmlFinancialInstitutionBranch `xml:"cac:FinancialInstitutionBranch,omitempty"`
}

type xmlFinancialInstitutionBranch struct {
	ID string `xml:"cbc:ID"`
}

type xmlAllowanceCharge struct {
	ChargeIndicator       bool           `xml:"cbc:ChargeIndicator"`
	AllowanceChargeReason string         `xml:"cbc:AllowanceChargeReason,omitempty"`
	Amount                xmlAmount      `xml:"cbc:Amount"`
	TaxCategory           xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlTaxTotal struct {
	TaxAmount   xmlAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []xmlTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type xmlTaxSubtotal struct {
	TaxableAmount xmlAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     xmlAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlTaxCategory struct {
	ID                  string       `xml:"cbc:ID"`
	Percent             string       `xml:"cbc:Percent"`
	TaxExemptionReason  string       `xml:"cbc:TaxExemptionReason,omitempty"`
	TaxScheme           xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlMonetaryTotal struct {
	LineExtensionAmount  xmlAmount  `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount   xmlAmount  `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount   xmlAmount  `xml:"cbc:TaxInclusiveAmount"`
	AllowanceTotalAmount *xmlAmount `xml:"cbc:AllowanceTotalAmount,omitempty"`
	PayableAmount        xmlAmount  `xml:"cbc:PayableAmount"`
}

type xmlAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

// Unit codes per UNECE Recommendation 20:
// https://docs.peppol.eu/poacc/billing/3.0/codelist/UNECERec20/
type xmlQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type xmlInvoiceLine struct {
	ID                  string      `xml:"cbc:ID"`
	InvoicedQuantity    xmlQuantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount xmlAmount   `xml:"cbc:LineExtensionAmount"`
	Item                xmlItem     `xml:"cac:Item"`
	Price               xmlPrice    `xml:"cac:Price"`
}

type xmlItem struct {
	Name        string         `xml:"cbc:Name"`
	TaxCategory xmlTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type xmlPrice struct {
	PriceAmount xmlAmount `xml:"cbc:PriceAmount"`
}
