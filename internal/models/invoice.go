package models

import (
	"fmt"
	"strings"
)

// InvoiceType distinguishes the two services billed through the portal.
type InvoiceType string

const (
	InvoiceTypeGas         InvoiceType = "gas"
	InvoiceTypeElectricity InvoiceType = "electricity"
)

// gasURLToken marks gas invoices in the portal's download links. The portal
// offers no other source for the invoice type.
const gasURLToken = "gaz"

// Invoice is the record extracted from one row of the portal's invoice
// listing. All monetary and consumption values keep the portal's own string
// formatting with unit/currency suffixes stripped; dates are DD.MM.YYYY as
// rendered.
type Invoice struct {
	InvoiceNumber     string      `json:"invoice_number" example:"10023456"`
	IssueDate         string      `json:"issue_date" example:"05.03.2024"`
	DueDate           string      `json:"due_date" example:"20.03.2024"`
	EnergyConsumption string      `json:"energy_consumption" example:"154"`
	Amount            string      `json:"amount" example:"245,31"`
	RemainingPayment  string      `json:"remaining_payment" example:"0,00"`
	Status            string      `json:"status" example:"Plătită"`
	DownloadURL       string      `json:"download_url,omitempty"`
	Type              InvoiceType `json:"type" example:"electricity"`
}

// InferInvoiceType derives the invoice type from the download link. A missing
// link defaults to electricity, matching the portal's historical behavior.
func InferInvoiceType(downloadURL string) InvoiceType {
	if strings.Contains(strings.ToLower(downloadURL), gasURLToken) {
		return InvoiceTypeGas
	}
	return InvoiceTypeElectricity
}

// HasCoreFields is the first validation pass: a candidate row only becomes an
// invoice when the identifying fields and the amount were all extracted.
func (i *Invoice) HasCoreFields() bool {
	return i.InvoiceNumber != "" && i.IssueDate != "" && i.DueDate != "" && i.Amount != ""
}

// Validate is the second, stricter pass applied before a record is handed
// off: every field must be present and the type must be one of the two known
// services.
func (i *Invoice) Validate() error {
	if !i.HasCoreFields() {
		return fmt.Errorf("invoice %q is missing core fields", i.InvoiceNumber)
	}
	if i.EnergyConsumption == "" {
		return fmt.Errorf("invoice %s has no energy consumption", i.InvoiceNumber)
	}
	if i.RemainingPayment == "" {
		return fmt.Errorf("invoice %s has no remaining payment", i.InvoiceNumber)
	}
	if i.Status == "" {
		return fmt.Errorf("invoice %s has no status", i.InvoiceNumber)
	}
	if i.Type != InvoiceTypeGas && i.Type != InvoiceTypeElectricity {
		return fmt.Errorf("invoice %s has unknown type %q", i.InvoiceNumber, i.Type)
	}
	return nil
}
