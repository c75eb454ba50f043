package registration

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)

// Validator runs client-side-equivalent schema validation. It fails
// closed: a form with field errors never reaches the network.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs a Validator with the platform's custom rules.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Loose phone shape shared with the web client; country specifics are
	// the identity API's concern.
	_ = v.RegisterValidation("bdphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Check validates the form and returns per-field messages keyed by JSON
// field name. An empty map means the form may be submitted.
func (v *Validator) Check(form Form) map[string]string {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": "Registration failed. Please check your inputs."}
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

// message keeps the wording the web client shows next to each field.
func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "email":
		if fe.Tag() == "required" {
			return "Email is required"
		}
		return "Please enter a valid email address"
	case "phone":
		switch fe.Tag() {
		case "required":
			return "Phone number is required"
		case "min":
			return "Phone number must be at least 10 digits"
		case "max":
			return "Phone number must not exceed 15 digits"
		}
		return "Please enter a valid phone number"
	case "role":
		if fe.Tag() == "required" {
			return "Role is required"
		}
		return "Please select a valid role"
	case "fullName":
		switch fe.Tag() {
		case "required":
			return "Full name is required"
		case "min":
			return "Full name must be at least 2 characters"
		case "max":
			return "Full name must not exceed 100 characters"
		}
	case "password":
		if fe.Tag() == "required" {
			return "Password is required"
		}
		return "Password must be at least 8 characters"
	case "confirmPassword":
		if fe.Tag() == "required" {
			return "Please confirm your password"
		}
		return "Passwords must match"
	case "farmSizeAc":
		return "Farm size must be positive"
	case "employeeIdImageUrl":
		if fe.Tag() == "url" {
			return "Please enter a valid URL"
		}
	}
	if fe.Tag() == "required" {
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
