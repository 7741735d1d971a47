package models

// AlertType is the banner flavour.
type AlertType string

const (
	AlertInfo    AlertType = "info"
	AlertSuccess AlertType = "success"
	AlertError   AlertType = "error"
)

// Alert is a transient, dismissible status banner.
type Alert struct {
	Type    AlertType `json:"type,omitempty"`
	Message string    `json:"message,omitempty"`
}

func InfoAlert(msg string) Alert    { return Alert{Type: AlertInfo, Message: msg} }
func SuccessAlert(msg string) Alert { return Alert{Type: AlertSuccess, Message: msg} }
func ErrorAlert(msg string) Alert   { return Alert{Type: AlertError, Message: msg} }

// Empty reports whether nothing should be shown.
func (a Alert) Empty() bool { return a.Message == "" }

// Dismiss clears the banner.
func (a *Alert) Dismiss() { *a = Alert{} }
