package prestashop

import "storefront-bridge/internal/model"

// Translation between wire addresses and the domain model. Field mapping
// only; defaulting and identity decisions stay out of this layer.

// toModel translates a wire address to the domain model.
func (a *psAddress) toModel() model.Address {
	return model.Address{
		ID:           a.ID,
		Organization: a.Company,
		FirstName:    a.Firstname,
		LastName:     a.Lastname,
		Title:        a.Title,
		Street1:      a.Address1,
		Street2:      a.Address2,
		Street3:      a.Address3,
		City:         a.City,
		State:        a.State,
		Postal:       a.Postcode,
		Country:      a.Country,
		Phone:        a.Phone,
		Email:        a.Email,
	}
}

// fromModel translates a domain address to the wire representation.
func fromModel(addr *model.Address) psAddress {
	return psAddress{
		ID:        addr.ID,
		Company:   addr.Organization,
		Firstname: addr.FirstName,
		Lastname:  addr.LastName,
		Title:     addr.Title,
		Address1:  addr.Street1,
		Address2:  addr.Street2,
		Address3:  addr.Street3,
		City:      addr.City,
		State:     addr.State,
		Postcode:  addr.Postal,
		Country:   addr.Country,
		Phone:     addr.Phone,
		Email:     addr.Email,
	}
}
