package user

import (
	"strings"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
)

// CreateUserDTO is the admin create body. IsActive defaults to true.
type CreateUserDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive *bool  `json:"is_active"`
}

func (d *CreateUserDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
}

func (d CreateUserDTO) Validate() error {
	if err := validation.ValidateCredentials(d.Username, d.Password); err != nil {
		return err
	}
	return nil
}

func (d CreateUserDTO) Active() bool {
	return d.IsActive == nil || *d.IsActive
}

// UpdateUserDTO is a partial update; nil fields are left unchanged.
type UpdateUserDTO struct {
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
	Password *string `json:"password"`
}

func (d UpdateUserDTO) Validate() error {
	if d.IsActive == nil && d.IsAdmin == nil && d.Password == nil {
		return errors.NewValidationError("no fields to update", errors.ErrCodeValidationFailed)
	}
	if d.Password != nil {
		if err := validation.ValidatePassword(*d.Password); err != nil {
			return err
		}
	}
	return nil
}

// demotesSelf reports whether applying d to the caller's own account would
// lock them out of the admin surface.
func (d UpdateUserDTO) demotesSelf() bool {
	return (d.IsActive != nil && !*d.IsActive) || (d.IsAdmin != nil && !*d.IsAdmin)
}
