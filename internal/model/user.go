package model

// Genders offered by the user screen.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Address is a shipping address of one user. At most one address of a user
// is the default.
type Address struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	FullName  string `json:"full_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Ward      string `json:"ward" validate:"required"`
	District  string `json:"district" validate:"required"`
	City      string `json:"city" validate:"required"`
	IsDefault bool   `json:"is_default"`
}

func (a *Address) ItemID() string { return a.ID }

func (a *Address) SetItemID(id string) { a.ID = id }

func (a *Address) IsDefaultRecord() bool { return a.IsDefault }

func (a *Address) SetDefaultRecord(v bool) { a.IsDefault = v }

// FromFields populates a from a stored or submitted record. Addresses have
// no numeric fields, so nothing can fail to coerce.
func (a *Address) FromFields(f Fields) []FieldError {
	a.ID = f.String("id")
	a.UserID = f.String("user_id")
	a.FullName = f.String("full_name")
	a.Phone = f.String("phone")
	a.Address = f.String("address")
	a.Ward = f.String("ward")
	a.District = f.String("district")
	a.City = f.String("city")
	a.IsDefault = f.Bool("is_default")
	return nil
}

// ToFields renders the submit shape of a, without its id.
func (a *Address) ToFields() Fields {
	return Fields{
		"full_name":  a.FullName,
		"phone":      a.Phone,
		"address":    a.Address,
		"ward":       a.Ward,
		"district":   a.District,
		"city":       a.City,
		"is_default": a.IsDefault,
	}
}
