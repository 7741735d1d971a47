// Package validation checks submitted forms and reports one message per invalid field.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"educonnect/models"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field (by its JSON name) to the message shown beside it.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)

	engineOnce sync.Once
	engine     *validator.Validate
)

func getEngine() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "simple_email", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
			return digitsPattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		mustRegister(v, "strong_password", func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
		mustRegister(v, "notblank_if", notBlankIf)
		mustRegister(v, "trimmed_min", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len([]rune(strings.TrimSpace(fl.Field().String()))) >= n
		})
		engine = v
	})
	return engine
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("validation: registering " + tag + ": " + err.Error())
	}
}

// notBlankIf requires a non-blank value when the sibling field named in
// the param ("Field value") holds that value.
func notBlankIf(fl validator.FieldLevel) bool {
	params := strings.Fields(fl.Param())
	if len(params) != 2 {
		return false
	}
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	other := parent.FieldByName(params[0])
	if !other.IsValid() || other.Kind() != reflect.String || other.String() != params[1] {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

// IsStrongPassword reports whether pw has a lowercase letter, an uppercase letter and a digit.
func IsStrongPassword(pw string) bool {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// IsValidEmail applies the same pattern the forms use.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateLogin checks the login form.
func ValidateLogin(form models.LoginForm) Errors {
	return validateStruct(form)
}

// ValidateRegistration checks the registration form, including password strength and terms.
func ValidateRegistration(form models.RegistrationForm) Errors {
	return validateStruct(form)
}

// ValidateProfileCompletion checks the profile-completion form. Batch and stream are
// only required for students.
func ValidateProfileCompletion(form models.ProfileCompletionForm) Errors {
	return validateStruct(form)
}

func validateStruct(form interface{}) Errors {
	errs := Errors{}
	err := getEngine().Struct(form)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["form"] = "Invalid form submission"
		return errs
	}
	for _, fe := range fieldErrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe)
	}
	return errs
}
