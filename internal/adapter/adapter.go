// Package adapter defines the interface for the upstream commerce platform.
// The concrete implementation translates these operations to the platform's
// administrative webservice; tests substitute the Mock.
package adapter

import (
	"context"

	"storefront-bridge/internal/model"
)

// Adapter abstracts the upstream platform's administrative API.
//
// Every method re-authenticates as needed; no token survives across inbound
// requests. Errors cross the boundary as *model.APIError so upstream status
// codes are preserved for the caller.
type Adapter interface {
	// ResolveCustomer looks up a customer identifier by email address.
	ResolveCustomer(ctx context.Context, email string) (string, error)

	// GetAddressBook fetches a fresh snapshot of the customer's saved
	// addresses: the designated default plus all additional entries.
	// Callers must re-fetch after any mutation; the platform assigns
	// identifiers server-side and never returns them on creation.
	GetAddressBook(ctx context.Context, customerID string) (*model.AddressBook, error)

	// CreateAddress submits a new address-book entry.
	// The platform responds 201 with no identifier; resolve the assigned ID
	// by re-fetching the book and matching on the identity key.
	CreateAddress(ctx context.Context, customerID string, addr *model.Address) error

	// UpdateAddress rewrites an existing entry identified by addr.ID.
	// Optional fields left empty are omitted from the payload so the
	// platform preserves whatever it already holds.
	UpdateAddress(ctx context.Context, customerID string, addr *model.Address) error

	// ResolveProduct looks up a product identifier by its URL slug.
	ResolveProduct(ctx context.Context, slug string) (string, error)

	// GetCart returns the customer's active cart identifier, creating a
	// cart upstream if none exists.
	GetCart(ctx context.Context, customerID string) (string, error)

	// AddCartItem appends one line item to the cart: a product shipped to
	// one saved address with the given quantity and pricing options.
	AddCartItem(ctx context.Context, cartID string, item *CartItemInsert) error
}

// CartItemInsert is one upstream cart line: product and ship-to address are
// already resolved to platform identifiers.
type CartItemInsert struct {
	ProductID      string         `json:"productId"`
	AddressID      string         `json:"addressId"`
	Quantity       int            `json:"quantity"`
	ShippingMethod string         `json:"shippingMethod,omitempty"`
	PricingOptions map[string]int `json:"pricingOptions,omitempty"`
}
