package domain

import "fmt"

// Invoice is the numbered record produced once per dispatched order.
type Invoice struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	ReferenceNumber int64  `json:"reference_number"`
	DocumentRef     string `json:"document_ref,omitempty"`
	Audit
}

// FormattedReference renders the reference number zero-padded to six digits.
func (i Invoice) FormattedReference() string {
	return fmt.Sprintf("%06d", i.ReferenceNumber)
}

// HasDocument reports whether a rendered document is already attached.
func (i Invoice) HasDocument() bool {
	return i.DocumentRef != ""
}
