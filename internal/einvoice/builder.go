// Package einvoice serializes invoices into EN16931-compliant UBL 2.1 XML
// (XRechnung profile). Totals are re-derived from the raw positions and
// discount via the billing package, never trusted from the caller, so the
// produced document is arithmetically self-consistent even if upstream
// data drifted.
package einvoice

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"faktura/internal/billing"
	"faktura/internal/model"
	"faktura/internal/money"
)

const (
	customizationID = "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0"
	profileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	typeCodeInvoice    = "380"
	typeCodeCorrection = "384" // cancellation (Storno) documents

	vatSchemeID = "VAT"
)

// Document is the serializer input assembled from an invoice record or a
// raw request payload.
type Document struct {
	Number         string
	IssueDate      time.Time
	Currency       string
	TaxRate        decimal.Decimal
	Positions      []model.LineItem
	Discount       model.Discount
	Note           string
	IsCancellation bool
	CancelsNumber  *string
}

// MissingFieldError names the first empty required supplier field. The
// serializer never produces a partial document.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Pflichtfeld der Rechnungsstellung fehlt: %s", e.Field)
}

// Build validates the supplier profile and serializes the document.
func Build(doc Document, supplier *model.BillingSettings, customer *model.Customer) ([]byte, error) {
	if err := checkSupplier(supplier); err != nil {
		return nil, err
	}

	currency := doc.Currency
	if currency == "" {
		currency = "EUR"
	}
	amt := func(d decimal.Decimal) xmlAmount {
		return xmlAmount{Value: money.Format(d), CurrencyID: currency}
	}

	// Each emitted line carries its individually rounded net, so the
	// document subtotal must be built the same way (BR-CO-10).
	totals := billing.ComputePerLine(doc.Positions, doc.Discount, doc.TaxRate)
	category := taxCategory(doc.TaxRate, supplier.SmallBusiness)

	typeCode := typeCodeInvoice
	if doc.IsCancellation {
		typeCode = typeCodeCorrection
	}

	inv := &xmlInvoice{
		Xmlns:            "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		Cac:              "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2",
		Cbc:              "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2",
		CustomizationID:  customizationID,
		ProfileID:        profileID,
		ID:               doc.Number,
		IssueDate:        doc.IssueDate.Format("2006-01-02"),
		InvoiceTypeCode:  typeCode,
		Note:             doc.Note,
		DocumentCurrency: currency,
		SupplierParty:    xmlSupplierParty{Party: supplierParty(supplier)},
		CustomerParty:    xmlCustomerParty{Party: customerParty(customer)},
		PaymentMeans: xmlPaymentMeans{
			PaymentMeansCode: "58", // SEPA credit transfer
			PayeeFinancialAccount: xmlFinancialAccount{
				ID: supplier.IBAN,
				FinancialInstitutionBranch: &xmlFinancialInstitutionBranch{
					ID: supplier.BIC,
				},
			},
		},
		TaxTotal: xmlTaxTotal{
			TaxAmount: amt(totals.TaxAmount),
			TaxSubtotal: []xmlTaxSubtotal{{
				TaxableAmount: amt(totals.NetAfterDiscount),
				TaxAmount:     amt(totals.TaxAmount),
				TaxCategory:   category,
			}},
		},
		LegalMonetaryTotal: xmlMonetaryTotal{
			LineExtensionAmount: amt(totals.NetSubtotal),
			TaxExclusiveAmount:  amt(totals.NetAfterDiscount),
			TaxInclusiveAmount:  amt(totals.GrossTotal),
			PayableAmount:       amt(totals.GrossTotal),
		},
	}

	if customer.BuyerReference != nil {
		inv.BuyerReference = *customer.BuyerReference
	}
	if customer.OrderReference != nil {
		inv.OrderReference = &xmlOrderReference{ID: *customer.OrderReference}
	}
	if doc.CancelsNumber != nil {
		inv.BillingReference = &xmlBillingReference{
			InvoiceDocumentReference: xmlDocumentReference{ID: *doc.CancelsNumber},
		}
	}

	// Document-level allowance only when the discount actually reduced the
	// total; BR-CO-13 then holds: LineExtension − Allowance = TaxExclusive.
	if !totals.DiscountAmount.IsZero() {
		reason := doc.Discount.Label
		if reason == "" {
			reason = "Rabatt"
		}
		inv.AllowanceCharge = []xmlAllowanceCharge{{
			ChargeIndicator:       false,
			AllowanceChargeReason: reason,
			Amount:                amt(totals.DiscountAmount),
			TaxCategory:           category,
		}}
		inv.LegalMonetaryTotal.AllowanceTotalAmount = &xmlAmount{
			Value:      money.Format(totals.DiscountAmount),
			CurrencyID: currency,
		}
	}

	lineNo := 0
	for _, pos := range doc.Positions {
		if !pos.Countable() {
			continue
		}
		lineNo++
		inv.InvoiceLines = append(inv.InvoiceLines, xmlInvoiceLine{
			ID: fmt.Sprintf("%d", lineNo),
			InvoicedQuantity: xmlQuantity{
				Value:    pos.Quantity.String(),
				UnitCode: unitCode(pos.Unit),
			},
			LineExtensionAmount: amt(money.Round(pos.Net())),
			Item: xmlItem{
				Name:        pos.Description,
				TaxCategory: category,
			},
			Price: xmlPrice{PriceAmount: amt(pos.UnitPrice)},
		})
	}

	out, err := xml.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("einvoice: marshal: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// checkSupplier fails on the first missing required field, naming it.
func checkSupplier(s *model.BillingSettings) error {
	required := []struct {
		field string
		value string
	}{
		{"company_name", s.CompanyName},
		{"street", s.Street},
		{"house_number", s.HouseNumber},
		{"postal_code", s.PostalCode},
		{"city", s.City},
		{"country_code", s.CountryCode},
		{"vat_id", s.VATID},
		{"iban", s.IBAN},
		{"bic", s.BIC},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	return nil
}

func supplierParty(s *model.BillingSettings) xmlParty {
	p := xmlParty{
		PartyName: s.CompanyName,
		PostalAddress: xmlPostalAddress{
			StreetName: s.Street + " " + s.HouseNumber,
			CityName:   s.City,
			PostalZone: s.PostalCode,
			Country:    xmlCountry{IdentificationCode: s.CountryCode},
		},
		PartyTaxScheme: &xmlPartyTaxScheme{
			CompanyID: s.VATID,
			TaxScheme: xmlTaxScheme{ID: vatSchemeID},
		},
		LegalEntity: xmlLegalEntity{RegistrationName: s.CompanyName},
	}
	if s.Email != "" || s.Phone != "" {
		p.Contact = &xmlContact{
			Name:           s.CompanyName,
			Telephone:      s.Phone,
			ElectronicMail: s.Email,
		}
	}
	return p
}

func customerParty(c *model.Customer) xmlParty {
	street := c.Street
	if c.HouseNumber != "" {
		street += " " + c.HouseNumber
	}
	p := xmlParty{
		PartyName: c.Name,
		PostalAddress: xmlPostalAddress{
			StreetName: street,
			CityName:   c.City,
			PostalZone: c.PostalCode,
			Country:    xmlCountry{IdentificationCode: c.CountryCode},
		},
		LegalEntity: xmlLegalEntity{RegistrationName: c.Name},
	}
	if c.VATID != nil && *c.VATID != "" {
		p.PartyTaxScheme = &xmlPartyTaxScheme{
			CompanyID: *c.VATID,
			TaxScheme: xmlTaxScheme{ID: vatSchemeID},
		}
	}
	if c.EndpointID != nil && *c.EndpointID != "" {
		scheme := "0204" // Leitweg-ID scheme
		if c.EndpointSchemeID != nil && *c.EndpointSchemeID != "" {
			scheme = *c.EndpointSchemeID
		}
		p.EndpointID = &xmlEndpointID{Value: *c.EndpointID, SchemeID: scheme}
	}
	return p
}

// taxCategory maps the rate to an EN16931 VAT category: S for a positive
// rate, E (exempt) for 0%. The exemption reason depends on why the rate
// is zero: the supplier's Kleinunternehmer flag selects the §19 UStG
// wording, any other zero-rated document gets the generic one.
func taxCategory(rate decimal.Decimal, smallBusiness bool) xmlTaxCategory {
	if rate.IsZero() {
		reason := "Steuerbefreite Leistung"
		if smallBusiness {
			reason = "Kein Ausweis von Umsatzsteuer gemäß §19 UStG"
		}
		return xmlTaxCategory{
			ID:                 "E",
			Percent:            "0.00",
			TaxExemptionReason: reason,
			TaxScheme:          xmlTaxScheme{ID: vatSchemeID},
		}
	}
	return xmlTaxCategory{
		ID:        "S",
		Percent:   rate.StringFixed(2),
		TaxScheme: xmlTaxScheme{ID: vatSchemeID},
	}
}

// unitCode maps the position's unit label to a UNECE Rec 20 code.
func unitCode(unit string) string {
	switch unit {
	case "h", "Std.", "Stunde", "Stunden":
		return "HUR"
	case "Tag", "Tage":
		return "DAY"
	case "kg":
		return "KGM"
	case "m":
		return "MTR"
	case "m²", "qm":
		return "MTK"
	case "km":
		return "KMT"
	case "l", "Liter":
		return "LTR"
	default:
		return "C62" // piece
	}
}
