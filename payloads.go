package pileapi

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginRequest is the login body. Fields can also arrive as form values or
// query parameters.
type LoginRequest struct {
	Email    string `json:"Email" form:"Email" query:"Email"`
	Password string `json:"Password" form:"Password" query:"Password"`
}

// Validate only checks presence. Format errors would reveal nothing useful
// and are reported as a failed login.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RegistrationCreatePayload is the account registration body
type RegistrationCreatePayload struct {
	FirstName string `json:"FirstName" form:"FirstName"`
	LastName  string `json:"LastName" form:"LastName"`
	Company   string `json:"Company" form:"Company"`
	Email     string `json:"Email" form:"Email"`
	Phone     string `json:"Phone" form:"Phone"`
	Password  string `json:"Password" form:"Password"`
}

func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200), ValidName),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200), ValidName),
		validation.Field(&r.Company, validation.Required, validation.Length(1, 200), ValidName),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhone(DefaultPhoneRegion))),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// Normalize trims whitespace. Email case is preserved as entered.
func (r *RegistrationCreatePayload) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Company = strings.TrimSpace(r.Company)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

// UserUpdatePayload is a partial profile update. Nil fields are left alone.
type UserUpdatePayload struct {
	FirstName *string `json:"FirstName"`
	LastName  *string `json:"LastName"`
	Company   *string `json:"Company"`
	Email     *string `json:"Email"`
	Phone     *string `json:"Phone"`
	Password  *string `json:"Password"`
}

func (r UserUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, 200), ValidName),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, 200), ValidName),
		validation.Field(&r.Company, validation.NilOrNotEmpty, validation.Length(1, 200), ValidName),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.Phone, validation.By(func(value interface{}) error {
			if p, ok := value.(*string); ok && p != nil {
				return ValidatePhone(DefaultPhoneRegion)(*p)
			}
			return nil
		})),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(8, 100)),
	)
}

// ProjectPayload is the create and replace body for projects
type ProjectPayload struct {
	Meta              ProjectMeta       `json:"Meta"`
	SoilProfile       SoilProfile       `json:"SoilProfile"`
	FoundationDetails FoundationDetails `json:"FoundationDetails"`
}

func (r ProjectPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Meta),
		validation.Field(&r.SoilProfile),
		validation.Field(&r.FoundationDetails),
	)
}

// Apply copies the payload onto p
func (r ProjectPayload) Apply(p *Project) {
	p.Meta = r.Meta
	p.SoilProfile = r.SoilProfile
	p.FoundationDetails = r.FoundationDetails
}
