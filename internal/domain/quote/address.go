package quote

import "strings"

// Address is the customer shipping destination.
type Address struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Company   string `json:"company" yaml:"company"`
	Address1  string `json:"address_1" yaml:"address_1"`
	Address2  string `json:"address_2" yaml:"address_2"`
	City      string `json:"city" yaml:"city"`
	State     string `json:"state" yaml:"state"`
	Postcode  string `json:"postcode" yaml:"postcode"`
	Country   string `json:"country" yaml:"country"`
}

// CountryCode is the upper-cased ISO country, empty when unknown.
func (a Address) CountryCode() string {
	return strings.ToUpper(strings.TrimSpace(a.Country))
}
