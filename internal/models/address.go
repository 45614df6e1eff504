package models

type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// IsComplete vérifie les champs exigés pour la livraison
func (a Address) IsComplete() bool {
	return a.FirstName != "" && a.Street != "" && a.City != "" &&
		a.Zipcode != "" && a.Country != "" && a.Phone != ""
}
