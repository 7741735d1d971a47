package validation

import "github.com/go-playground/validator/v10"

var fieldLabels = map[string]string{
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Password confirmation",
	"fullName":        "Full name",
	"role":            "Role",
	"nic":             "NIC",
	"contactNo":       "Contact number",
	"batch":           "Batch",
	"stream":          "Stream",
	"agreeToTerms":    "Terms agreement",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		switch field {
		case "role":
			return "Please select a role"
		case "agreeToTerms":
			return "You must agree to the terms and conditions"
		case "confirmPassword":
			return "Please confirm your password"
		}
		return label(field) + " is required"
	case "notblank_if":
		return label(field) + " is required for students"
	case "simple_email":
		return "Please enter a valid email address"
	case "min", "trimmed_min":
		return label(field) + " must be at least " + fe.Param() + " characters"
	case "strong_password":
		return "Password must contain uppercase, lowercase, and number"
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return "Please select a valid role"
	case "digits":
		return label(field) + " must contain only digits"
	}
	return label(field) + " is invalid"
}
