package platform

import (
	"github.com/navi/orderflow/internal/orders/adapters/memory"
	"github.com/navi/orderflow/internal/orders/ports"
)

const (
	devOperatorToken = "dev-operator-token"
	devCustomerToken = "dev-customer-token"
)

// SeedDevData loads a small menu, two API tokens and one dispatch destination
// into the in-memory backend.
func SeedDevData(catalog *memory.Catalog, directory *memory.Directory) {
	catalog.PutItem(ports.CatalogEntry{ID: "11111111-1111-4111-8111-111111111111", Name: "Burger", PriceCents: 850, Active: true})
	catalog.PutItem(ports.CatalogEntry{ID: "22222222-2222-4222-8222-222222222222", Name: "Fries", PriceCents: 300, Active: true})
	catalog.PutCustomization(ports.CatalogEntry{ID: "33333333-3333-4333-8333-333333333333", Name: "Extra cheese", PriceCents: 100, Active: true})
	catalog.PutCustomization(ports.CatalogEntry{ID: "44444444-4444-4444-8444-444444444444", Name: "Bacon", PriceCents: 150, Active: true})

	directory.AddToken(devOperatorToken, ports.Caller{
		ID:         "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa",
		Email:      "operator@orderflow.local",
		IsOperator: true,
	})
	directory.AddToken(devCustomerToken, ports.Caller{
		ID:    "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb",
		Email: "customer@orderflow.local",
	})
	directory.AddDestination("cccccccc-cccc-4ccc-8ccc-cccccccccccc")
}
