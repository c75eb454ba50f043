// Package registration validates signups before they reach the identity
// API. Each role has its own form variant, so "password required only for
// farmer and buyer" is a structural fact rather than a runtime branch:
// the authority variant has no password field at all.
package registration

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
)

// Applicant carries the fields common to every signup.
type Applicant struct {
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=10,max=15,bdphone"`
	Role     string `json:"role" validate:"required,oneof=FARMER BUYER AUTHORITY"`
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Division string `json:"division"`
	District string `json:"district"`
	Upazila  string `json:"upazila"`
	Union    string `json:"union"`
	Address  string `json:"address"`
	NID      string `json:"nidNumber"`
}

// password groups the credential pair required for farmer and buyer
// signups. Authorities receive credentials through the approval workflow
// and so never carry this.
type password struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// FarmerForm is a farmer signup.
type FarmerForm struct {
	Applicant
	password
	FarmSizeAc float64 `json:"farmSizeAc" validate:"omitempty,gt=0"`
	FarmType   string  `json:"farmType"`
}

// BuyerForm is a buyer signup.
type BuyerForm struct {
	Applicant
	password
	Organisation string `json:"organisation"`
}

// AuthorityForm is a Krishi Odhidoptor official's signup. Identity proof
// is required up front; credentials arrive later via admin approval.
type AuthorityForm struct {
	Applicant
	Designation        string `json:"designation" validate:"required"`
	EmployeeID         string `json:"employeeId" validate:"required"`
	EmployeeIDImageURL string `json:"employeeIdImageUrl" validate:"required,url"`
	OfficeDivision     string `json:"officeDivision" validate:"required"`
	OfficeDistrict     string `json:"officeDistrict" validate:"required"`
	OfficeUpazila      string `json:"officeUpazila"`
	OfficeUnion        string `json:"officeUnion"`
}

// Form is one validated signup variant.
type Form interface {
	applicant() *Applicant
	// Request builds the flat wire payload sent upstream.
	Request() authapi.RegisterRequest
}

func (f *FarmerForm) applicant() *Applicant    { return &f.Applicant }
func (f *BuyerForm) applicant() *Applicant     { return &f.Applicant }
func (f *AuthorityForm) applicant() *Applicant { return &f.Applicant }

// Request builds the farmer wire payload, password included.
func (f *FarmerForm) Request() authapi.RegisterRequest {
	req := f.Applicant.request(roles.RoleFarmer)
	req.Password = f.Password
	req.FarmSizeAc = f.FarmSizeAc
	req.FarmType = f.FarmType
	return req
}

// Request builds the buyer wire payload, password included.
func (f *BuyerForm) Request() authapi.RegisterRequest {
	req := f.Applicant.request(roles.RoleBuyer)
	req.Password = f.Password
	req.Organisation = f.Organisation
	return req
}

// Request builds the authority wire payload. No password field exists to
// leak into it.
func (f *AuthorityForm) Request() authapi.RegisterRequest {
	req := f.Applicant.request(roles.RoleAuthority)
	req.Designation = f.Designation
	req.EmployeeID = f.EmployeeID
	req.EmployeeIDImageURL = f.EmployeeIDImageURL
	req.OfficeDivision = f.OfficeDivision
	req.OfficeDistrict = f.OfficeDistrict
	req.OfficeUpazila = f.OfficeUpazila
	req.OfficeUnion = f.OfficeUnion
	return req
}

func (a Applicant) request(role roles.Role) authapi.RegisterRequest {
	return authapi.RegisterRequest{
		Email:    a.Email,
		Phone:    a.Phone,
		Role:     role,
		FullName: a.FullName,
		Division: a.Division,
		District: a.District,
		Upazila:  a.Upazila,
		Union:    a.Union,
		Address:  a.Address,
		NID:      a.NID,
	}
}

// Parse decodes a signup body into the variant named by its role tag.
// Every parse starts from a zero variant, so values and errors entered
// under a previously selected role cannot survive a role switch.
func Parse(body []byte) (Form, error) {
	var probe struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("registration: decode: %w", err)
	}

	role, ok := roles.ParseRole(probe.Role)
	if !ok {
		return nil, fmt.Errorf("registration: unknown role %q", probe.Role)
	}

	var form Form
	switch role {
	case roles.RoleFarmer:
		form = &FarmerForm{}
	case roles.RoleBuyer:
		form = &BuyerForm{}
	case roles.RoleAuthority:
		form = &AuthorityForm{}
	default:
		return nil, fmt.Errorf("registration: role %s cannot self-register", role)
	}
	if err := json.Unmarshal(body, form); err != nil {
		return nil, fmt.Errorf("registration: decode %s form: %w", role, err)
	}

	// Bangla names arrive in mixed normalization from different keyboards;
	// store NFC so comparisons and length checks behave.
	app := form.applicant()
	app.FullName = norm.NFC.String(app.FullName)
	app.Role = string(role)
	return form, nil
}
