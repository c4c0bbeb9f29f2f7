package auth

import (
	"strings"

	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
)

// RegisterDTO is the JSON body of the self-registration endpoint.
type RegisterDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *RegisterDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
}

func (d RegisterDTO) Validate() error {
	if err := validation.ValidateCredentials(d.Username, d.Password); err != nil {
		return err
	}
	return nil
}

// LoginDTO is read from the form-encoded password grant.
type LoginDTO struct {
	Username string
	Password string
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
