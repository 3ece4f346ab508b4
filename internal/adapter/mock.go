package adapter

import (
	"context"

	"storefront-bridge/internal/model"
)

// Mock implements Adapter for testing.
// Each method can be configured via function fields.
type Mock struct {
	ResolveCustomerFunc func(ctx context.Context, email string) (string, error)
	GetAddressBookFunc  func(ctx context.Context, customerID string) (*model.AddressBook, error)
	CreateAddressFunc   func(ctx context.Context, customerID string, addr *model.Address) error
	UpdateAddressFunc   func(ctx context.Context, customerID string, addr *model.Address) error
	ResolveProductFunc  func(ctx context.Context, slug string) (string, error)
	GetCartFunc         func(ctx context.Context, customerID string) (string, error)
	AddCartItemFunc     func(ctx context.Context, cartID string, item *CartItemInsert) error
}

// ResolveCustomer calls the configured ResolveCustomerFunc or returns a fixed ID.
func (m *Mock) ResolveCustomer(ctx context.Context, email string) (string, error) {
	if m.ResolveCustomerFunc != nil {
		return m.ResolveCustomerFunc(ctx, email)
	}
	return "1", nil
}

// GetAddressBook calls the configured GetAddressBookFunc or returns an empty book.
func (m *Mock) GetAddressBook(ctx context.Context, customerID string) (*model.AddressBook, error) {
	if m.GetAddressBookFunc != nil {
		return m.GetAddressBookFunc(ctx, customerID)
	}
	return &model.AddressBook{}, nil
}

// CreateAddress calls the configured CreateAddressFunc or succeeds silently.
func (m *Mock) CreateAddress(ctx context.Context, customerID string, addr *model.Address) error {
	if m.CreateAddressFunc != nil {
		return m.CreateAddressFunc(ctx, customerID, addr)
	}
	return nil
}

// UpdateAddress calls the configured UpdateAddressFunc or succeeds silently.
func (m *Mock) UpdateAddress(ctx context.Context, customerID string, addr *model.Address) error {
	if m.UpdateAddressFunc != nil {
		return m.UpdateAddressFunc(ctx, customerID, addr)
	}
	return nil
}

// ResolveProduct calls the configured ResolveProductFunc or returns an error.
func (m *Mock) ResolveProduct(ctx context.Context, slug string) (string, error) {
	if m.ResolveProductFunc != nil {
		return m.ResolveProductFunc(ctx, slug)
	}
	return "", model.NewNotFoundError("product")
}

// GetCart calls the configured GetCartFunc or returns a fixed ID.
func (m *Mock) GetCart(ctx context.Context, customerID string) (string, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, customerID)
	}
	return "1", nil
}

// AddCartItem calls the configured AddCartItemFunc or succeeds silently.
func (m *Mock) AddCartItem(ctx context.Context, cartID string, item *CartItemInsert) error {
	if m.AddCartItemFunc != nil {
		return m.AddCartItemFunc(ctx, cartID, item)
	}
	return nil
}

// Verify Mock implements Adapter interface at compile time.
var _ Adapter = (*Mock)(nil)
