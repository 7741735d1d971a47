package models

// Identity is an authenticated account as reported by the identity service.
type Identity struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	ProviderID   string `json:"providerId,omitempty"`
	IsNewUser    bool   `json:"isNewUser,omitempty"`
	IDToken      string `json:"-"`
	RefreshToken string `json:"-"`
}

// ProviderCredential carries what the client obtained from the third-party consent popup.
type ProviderCredential struct {
	ProviderID  string `json:"providerId"`
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken,omitempty"`
	RequestURI  string `json:"requestUri,omitempty"`
}

// ProfilePrefill is what the profile-completion form starts with.
type ProfilePrefill struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}
