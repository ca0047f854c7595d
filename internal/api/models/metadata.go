package models

// CountryList is the picklist of supported countries for scoping
// free-text place searches.
type CountryList struct {
	Countries []string `json:"countries"`
}
