package prestashop

// Wire types for the platform's administrative webservice. Field names track
// the upstream JSON exactly; translation to the domain model happens in
// transform.go so the rest of the codebase never sees upstream spellings.

// loginRequest authenticates a webservice session.
type loginRequest struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// loginResponse carries the short-lived session token and the webservice
// version, checked against the configured minimum before any other call.
type loginResponse struct {
	Token   string `json:"token"`
	Version string `json:"version"`
}

// psAddress is one address record as the webservice represents it.
// Optional fields carry omitempty so an empty value is dropped from update
// payloads and the platform keeps what it already holds.
type psAddress struct {
	ID        string `json:"id,omitempty"`
	Company   string `json:"company,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Title     string `json:"title,omitempty"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	Address3  string `json:"address3,omitempty"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// psAddressBook is the response of GET /customers/{id}/addresses.
type psAddressBook struct {
	Default   *psAddress  `json:"default"`
	Addresses []psAddress `json:"addresses"`
}

// psCustomerList is the response of a filtered customer lookup.
type psCustomerList struct {
	Customers []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"customers"`
}

// psProductList is the response of a filtered product lookup.
type psProductList struct {
	Products []struct {
		ID   string `json:"id"`
		Slug string `json:"link_rewrite"`
	} `json:"products"`
}

// psCart is the response of GET /customers/{id}/cart. The platform creates
// an empty cart on demand, so the identifier is always present on success.
type psCart struct {
	Cart struct {
		ID string `json:"id"`
	} `json:"cart"`
}

// psCartItem is the payload of POST /carts/{id}/items.
type psCartItem struct {
	ProductID      string         `json:"id_product"`
	AddressID      string         `json:"id_address_delivery"`
	Quantity       int            `json:"quantity"`
	Carrier        string         `json:"carrier,omitempty"`
	Customizations map[string]int `json:"customizations,omitempty"`
}

// psError is the webservice error envelope: a list of coded messages.
type psError struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// message flattens the first upstream error message, empty when none parsed.
func (e *psError) message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}
