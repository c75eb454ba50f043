package registration_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shohoj-krishi/shohoj-krishi/internal/registration"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	_ "github.com/shohoj-krishi/shohoj-krishi/testing"
)

const farmerBody = `{
	"role": "FARMER",
	"email": "rahim@test.local",
	"phone": "+8801712345678",
	"fullName": "Rahim Uddin",
	"password": "secret123",
	"confirmPassword": "secret123",
	"farmSizeAc": 2.5,
	"farmType": "paddy"
}`

const authorityBody = `{
	"role": "AUTHORITY",
	"email": "officer@dae.gov.bd",
	"phone": "+8801912345678",
	"fullName": "Karim Chowdhury",
	"designation": "Upazila Agriculture Officer",
	"employeeId": "DAE-4417",
	"employeeIdImageUrl": "https://files.test.local/id/4417.jpg",
	"officeDivision": "Dhaka",
	"officeDistrict": "Tangail"
}`

func TestParseFarmerForm(t *testing.T) {
	form, err := registration.Parse([]byte(farmerBody))
	require.NoError(t, err)

	farmer, ok := form.(*registration.FarmerForm)
	require.True(t, ok)
	require.Equal(t, "rahim@test.local", farmer.Email)
	require.Equal(t, 2.5, farmer.FarmSizeAc)

	req := form.Request()
	require.Equal(t, roles.RoleFarmer, req.Role)
	require.Equal(t, "secret123", req.Password)
}

func TestParseAuthorityFormCarriesNoPassword(t *testing.T) {
	form, err := registration.Parse([]byte(authorityBody))
	require.NoError(t, err)

	_, ok := form.(*registration.AuthorityForm)
	require.True(t, ok)

	req := form.Request()
	require.Equal(t, roles.RoleAuthority, req.Role)
	require.Empty(t, req.Password)
	require.Equal(t, "DAE-4417", req.EmployeeID)
}

func TestParseLegacyRoleVocabulary(t *testing.T) {
	form, err := registration.Parse([]byte(`{"role":"farmer","email":"a@b.c"}`))
	require.NoError(t, err)
	require.IsType(t, &registration.FarmerForm{}, form)

	// The legacy admin alias names the authority role.
	form, err = registration.Parse([]byte(`{"role":"admin","email":"a@b.c"}`))
	require.NoError(t, err)
	require.IsType(t, &registration.AuthorityForm{}, form)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	_, err := registration.Parse([]byte(`{"role":"moderator"}`))
	require.Error(t, err)

	_, err = registration.Parse([]byte(`{`))
	require.Error(t, err)
}

func TestParseRejectsAdminSelfRegistration(t *testing.T) {
	_, err := registration.Parse([]byte(`{"role":"ADMIN","email":"root@test.local"}`))
	require.Error(t, err)
}

func TestParseStartsFromZeroVariant(t *testing.T) {
	// A payload that switched role to authority but still carries the
	// farmer's leftover values: the authority variant has no password
	// field, so the stale credential simply cannot land anywhere.
	body := `{
		"role": "AUTHORITY",
		"email": "officer@dae.gov.bd",
		"phone": "+8801912345678",
		"fullName": "Karim Chowdhury",
		"password": "leftover-secret",
		"farmSizeAc": 2.5,
		"designation": "Officer",
		"employeeId": "DAE-1",
		"employeeIdImageUrl": "https://files.test.local/id/1.jpg",
		"officeDivision": "Dhaka",
		"officeDistrict": "Tangail"
	}`
	form, err := registration.Parse([]byte(body))
	require.NoError(t, err)

	req := form.Request()
	require.Empty(t, req.Password)
	require.Zero(t, req.FarmSizeAc)
}

func TestParseNormalizesFullName(t *testing.T) {
	// NFD input (e with combining acute) comes out NFC.
	body := `{"role":"BUYER","fullName":"Réza Khan","email":"reza@test.local"}`
	form, err := registration.Parse([]byte(body))
	require.NoError(t, err)
	require.Equal(t, "Réza Khan", form.(*registration.BuyerForm).FullName)
}
