package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
)

// User is an account as seen by administrators. The password hash never
// leaves the repository layer.
type User struct {
	ID        int64
	Username  string
	IsActive  bool
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Response struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() Response {
	return Response{
		ID:        u.ID,
		Username:  u.Username,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func ToResponses(users []*User) []Response {
	out := make([]Response, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}
	return out
}

func FromDataModel(dm *userDatamodel.User) *User {
	return &User{
		ID:        dm.ID,
		Username:  dm.Username,
		IsActive:  dm.IsActive,
		IsAdmin:   dm.IsAdmin,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*userDatamodel.User) []*User {
	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
