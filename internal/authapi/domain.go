// Package authapi is the JSON client for the upstream Shohoj-Krishi
// identity API. Every call returns typed results; upstream failures are
// decoded into *APIError so no raw transport error crosses into the
// session layer untyped.
package authapi

import (
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
)

// Principal is the authenticated user's identity and profile as returned
// by the identity API. Once authenticated it is owned by the session
// state; updates replace it wholesale.
type Principal struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	FullName string     `json:"fullName"`
	Role     roles.Role `json:"role"`

	Division string `json:"division,omitempty"`
	District string `json:"district,omitempty"`
	Upazila  string `json:"upazila,omitempty"`
	Union    string `json:"union,omitempty"`
	Address  string `json:"address,omitempty"`
	NID      string `json:"nidNumber,omitempty"`

	// Farmer profile.
	FarmSizeAc float64 `json:"farmSizeAc,omitempty"`
	FarmType   string  `json:"farmType,omitempty"`

	// Buyer profile.
	Organisation string `json:"organisation,omitempty"`

	// Authority profile.
	Designation        string `json:"designation,omitempty"`
	EmployeeID         string `json:"employeeId,omitempty"`
	EmployeeIDImageURL string `json:"employeeIdImageUrl,omitempty"`
	OfficeDivision     string `json:"officeDivision,omitempty"`
	OfficeDistrict     string `json:"officeDistrict,omitempty"`
	OfficeUpazila      string `json:"officeUpazila,omitempty"`
	OfficeUnion        string `json:"officeUnion,omitempty"`
}

// Credentials carries a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginGrant is the successful login response.
type LoginGrant struct {
	Token string     `json:"token"`
	User  *Principal `json:"user"`
}

// RegisterRequest is the flat wire payload for registration. The
// registration package builds it from a validated, role-specific form;
// password is present only for farmer and buyer signups.
type RegisterRequest struct {
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	Role     roles.Role `json:"role"`
	FullName string     `json:"fullName"`
	Division string     `json:"division"`
	District string     `json:"district"`
	Upazila  string     `json:"upazila"`
	Union    string     `json:"union"`
	Address  string     `json:"address"`
	NID      string     `json:"nidNumber"`

	Password string `json:"password,omitempty"`

	FarmSizeAc float64 `json:"farmSizeAc,omitempty"`
	FarmType   string  `json:"farmType,omitempty"`

	Organisation string `json:"organisation,omitempty"`

	Designation        string `json:"designation,omitempty"`
	EmployeeID         string `json:"employeeId,omitempty"`
	EmployeeIDImageURL string `json:"employeeIdImageUrl,omitempty"`
	OfficeDivision     string `json:"officeDivision,omitempty"`
	OfficeDistrict     string `json:"officeDistrict,omitempty"`
	OfficeUpazila      string `json:"officeUpazila,omitempty"`
	OfficeUnion        string `json:"officeUnion,omitempty"`
}

// RegisterReceipt is the successful registration response. Registration
// never authenticates directly; the account stays pending until OTP
// verification (and, for authorities, admin approval).
type RegisterReceipt struct {
	UserID int64      `json:"userId"`
	Email  string     `json:"email"`
	Role   roles.Role `json:"role"`
}

// ProfileUpdate carries a partial profile change. Fields left nil are not
// sent upstream.
type ProfileUpdate map[string]any

// PendingAuthority is one authority account awaiting admin approval.
type PendingAuthority struct {
	UserID             int64  `json:"userId"`
	Email              string `json:"email"`
	FullName           string `json:"fullName"`
	Designation        string `json:"designation"`
	EmployeeID         string `json:"employeeId"`
	EmployeeIDImageURL string `json:"employeeIdImageUrl"`
	OfficeDivision     string `json:"officeDivision"`
	OfficeDistrict     string `json:"officeDistrict"`
}
