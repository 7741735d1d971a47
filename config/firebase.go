package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServiceAccount holds essential fields from your JSON key
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
}

// Store backends accepted by PROFILE_STORE.
const (
	ProfileStoreFirestore = "firestore"
	ProfileStoreMongo     = "mongo"
)

// UsesMongo reports whether profiles are kept in MongoDB instead of Firestore.
func UsesMongo() bool {
	return AppConfig.ProfileStore == ProfileStoreMongo
}

// LoadServiceAccount reads the Firebase service account key at path.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account: %w", err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}
	return &sa, nil
}

// FirebaseProjectID returns FIREBASE_PROJECT_ID, falling back to the project
// named in the credentials file. Empty means let the SDK detect it.
func FirebaseProjectID() string {
	if AppConfig.FirebaseProjectID != "" {
		return AppConfig.FirebaseProjectID
	}
	if AppConfig.FirebaseCredentialsFile == "" {
		return ""
	}
	sa, err := LoadServiceAccount(AppConfig.FirebaseCredentialsFile)
	if err != nil {
		return ""
	}
	return sa.ProjectID
}
