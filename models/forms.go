package models

import "strings"

// LoginForm is the password login form.
type LoginForm struct {
	Email      string `json:"email" validate:"notblank,simple_email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// RegistrationForm is the account creation form.
type RegistrationForm struct {
	FullName        string `json:"fullName" validate:"notblank,trimmed_min=3"`
	Email           string `json:"email" validate:"notblank,simple_email"`
	Password        string `json:"password" validate:"required,min=6,strong_password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=student teacher"`
	AgreeToTerms    bool   `json:"agreeToTerms" validate:"required"`
}

// ProfileCompletionForm is submitted after a provider sign-in with no stored profile.
type ProfileCompletionForm struct {
	FullName  string `json:"fullName" validate:"notblank"`
	Email     string `json:"email" validate:"notblank,simple_email"`
	Role      string `json:"role" validate:"required,oneof=student teacher"`
	NIC       string `json:"nic" validate:"notblank"`
	ContactNo string `json:"contactNo" validate:"notblank,digits"`
	Batch     string `json:"batch" validate:"notblank_if=Role student"`
	Stream    string `json:"stream" validate:"notblank_if=Role student"`
}

// Patch converts the form into a profile patch. Batch and stream are only
// carried for students.
func (f ProfileCompletionForm) Patch() ProfilePatch {
	role := Role(f.Role)
	patch := ProfilePatch{
		FullName:  String(strings.TrimSpace(f.FullName)),
		Email:     String(strings.TrimSpace(f.Email)),
		Role:      &role,
		NIC:       String(strings.TrimSpace(f.NIC)),
		ContactNo: String(strings.TrimSpace(f.ContactNo)),
	}
	if role == RoleStudent {
		patch.Batch = String(strings.TrimSpace(f.Batch))
		patch.Stream = String(strings.TrimSpace(f.Stream))
	}
	return patch
}

// FieldOption is one entry of a select control.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormField describes a labeled input or select control with its inline error.
type FormField struct {
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Type        string        `json:"type"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required"`
	Options     []FieldOption `json:"options,omitempty"`
	// RequiredWhen names a field=value condition for conditionally required fields.
	RequiredWhen string `json:"requiredWhen,omitempty"`
	Value        string `json:"value,omitempty"`
	Error        string `json:"error,omitempty"`
}

// FormDescriptor is a renderable form: fields plus the submit label.
type FormDescriptor struct {
	Name   string      `json:"name"`
	Title  string      `json:"title"`
	Submit string      `json:"submit"`
	Fields []FormField `json:"fields"`
}

// WithErrors returns a copy with each field's inline error filled from errs.
func (d FormDescriptor) WithErrors(errs map[string]string) FormDescriptor {
	out := d
	out.Fields = make([]FormField, len(d.Fields))
	for i, f := range d.Fields {
		f.Error = errs[f.Name]
		out.Fields[i] = f
	}
	return out
}

// WithValues returns a copy with field values prefilled.
func (d FormDescriptor) WithValues(values map[string]string) FormDescriptor {
	out := d
	out.Fields = make([]FormField, len(d.Fields))
	for i, f := range d.Fields {
		if v, ok := values[f.Name]; ok {
			f.Value = v
		}
		out.Fields[i] = f
	}
	return out
}

// RoleOptions are the select options for the role control.
var RoleOptions = []FieldOption{
	{Value: string(RoleStudent), Label: "🎓 Student"},
	{Value: string(RoleTeacher), Label: "👨‍🏫 Teacher"},
}

var LoginFormDescriptor = FormDescriptor{
	Name:   "login",
	Title:  "Welcome Back!",
	Submit: "Sign In",
	Fields: []FormField{
		{Name: "email", Label: "Email Address", Type: "email", Placeholder: "john@example.com", Required: true},
		{Name: "password", Label: "Password", Type: "password", Required: true},
		{Name: "rememberMe", Label: "Remember me", Type: "checkbox"},
	},
}

var RegistrationFormDescriptor = FormDescriptor{
	Name:   "register",
	Title:  "Create Your Account",
	Submit: "Create Account",
	Fields: []FormField{
		{Name: "fullName", Label: "Full Name", Type: "text", Placeholder: "John Doe", Required: true},
		{Name: "email", Label: "Email Address", Type: "email", Placeholder: "john@example.com", Required: true},
		{Name: "role", Label: "I am a", Type: "select", Required: true, Options: RoleOptions},
		{Name: "password", Label: "Password", Type: "password", Required: true},
		{Name: "confirmPassword", Label: "Confirm Password", Type: "password", Required: true},
		{Name: "agreeToTerms", Label: "I agree to the Terms and Conditions", Type: "checkbox", Required: true},
	},
}

var ProfileCompletionFormDescriptor = FormDescriptor{
	Name:   "complete-profile",
	Title:  "Complete Your Profile",
	Submit: "Save Profile",
	Fields: []FormField{
		{Name: "fullName", Label: "Full Name", Type: "text", Required: true},
		{Name: "email", Label: "Email Address", Type: "email", Required: true},
		{Name: "role", Label: "I am a", Type: "select", Required: true, Options: RoleOptions},
		{Name: "nic", Label: "NIC", Type: "text", Required: true},
		{Name: "contactNo", Label: "Contact Number", Type: "tel", Placeholder: "0771234567", Required: true},
		{Name: "batch", Label: "Batch", Type: "text", RequiredWhen: "role=student"},
		{Name: "stream", Label: "Stream", Type: "text", RequiredWhen: "role=student"},
	},
}

// FormDescriptors indexes the descriptors by name.
var FormDescriptors = map[string]FormDescriptor{
	LoginFormDescriptor.Name:             LoginFormDescriptor,
	RegistrationFormDescriptor.Name:      RegistrationFormDescriptor,
	ProfileCompletionFormDescriptor.Name: ProfileCompletionFormDescriptor,
}
