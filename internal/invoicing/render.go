package invoicing

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navi/orderflow/internal/orders/domain"
)

// Document is a rendered invoice ready for storage.
type Document struct {
	Name        string
	ContentType string
	Body        []byte
}

// Renderer turns an invoice and its order into a document.
type Renderer interface {
	Render(ctx context.Context, invoice domain.Invoice, order domain.Order) (Document, error)
}

const invoiceTemplate = `INVOICE {{ .Reference }}
Order:    {{ .Order.ID }}
Issued:   {{ .Issued }}
Customer: {{ .Order.UserID }}
{{ with .Destination }}Sent to:  {{ . }}
{{ end }}
{{ range .Lines -}}
{{ printf "%3d x %-36s %12s" .Quantity .Label .Total }}
{{ range .Extras -}}
{{ printf "    + %3d x %-30s %12s" .Quantity .Label .Total }}
{{ end -}}
{{ end }}
{{ printf "%-42s %12s" "TOTAL" .Total }} {{ .Currency }}
`

type invoiceLine struct {
	Quantity int
	Label    string
	Total    string
	Extras   []invoiceLine
}

// TextRenderer renders a fixed-width plain-text invoice.
type TextRenderer struct {
	tmpl *template.Template
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{tmpl: template.Must(template.New("invoice").Parse(invoiceTemplate))}
}

func (r *TextRenderer) Render(_ context.Context, invoice domain.Invoice, order domain.Order) (Document, error) {
	lines := make([]invoiceLine, 0, len(order.Items))
	for _, item := range order.Items {
		line := invoiceLine{
			Quantity: item.Quantity,
			Label:    fmt.Sprintf("%s @ %s", item.CatalogItemID, amount(item.UnitPriceCents)),
			Total:    amount(item.UnitPriceCents * int64(item.Quantity)),
		}
		for _, c := range item.Customizations {
			line.Extras = append(line.Extras, invoiceLine{
				Quantity: c.Quantity,
				Label:    fmt.Sprintf("%s @ %s", c.CatalogCustomizationID, amount(c.UnitPriceCents)),
				Total:    amount(c.PriceCents()),
			})
		}
		lines = append(lines, line)
	}

	currency := domain.DefaultCurrency
	if order.Payment != nil && order.Payment.Currency != "" {
		currency = order.Payment.Currency
	}

	var destination string
	if order.DestinationID != nil {
		destination = *order.DestinationID
	}

	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, map[string]any{
		"Reference":   invoice.FormattedReference(),
		"Order":       order,
		"Issued":      invoice.CreatedAt.Format(time.DateOnly),
		"Destination": destination,
		"Lines":       lines,
		"Total":       amount(order.PriceCents()),
		"Currency":    currency,
	})
	if err != nil {
		return Document{}, fmt.Errorf("render invoice %s: %w", invoice.FormattedReference(), err)
	}

	return Document{
		Name:        fmt.Sprintf("invoices/invoice-%s.txt", invoice.FormattedReference()),
		ContentType: "text/plain; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func amount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
