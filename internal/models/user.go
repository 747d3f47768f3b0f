package models

// User is the minimal user representation the exchange core needs for
// display decoration. The user-account collaborator owns the full record.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ShippingAddress is the snapshot revealed to the proposer once the
// recipient accepts. It is sensitive and never appears on a Proposal.
type ShippingAddress struct {
	Country    string `json:"country"`
	City       string `json:"city"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}
