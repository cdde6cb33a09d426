package models

// Address is a resolved address snapshot. Query keeps the raw string the
// snapshot was resolved from. Unresolved holds a marker when the query
// could not be resolved; the other fields are then empty.
type Address struct {
	Street      string  `json:"street,omitempty" bson:"street,omitempty"`
	City        string  `json:"city" bson:"city"`
	Country     string  `json:"country" bson:"country"`
	CountryCode string  `json:"countryCode" bson:"countryCode"`
	Lat         float64 `json:"lat" bson:"lat"`
	Lng         float64 `json:"lng" bson:"lng"`
	Query       string  `json:"query" bson:"query"`
	Unresolved  string  `json:"unresolved,omitempty" bson:"unresolved,omitempty"`
}

func (a Address) Resolved() bool {
	return a.Unresolved == ""
}
