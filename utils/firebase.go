// utils/firebase.go
package utils

import (
	"context"
	"log"

	"educonnect/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var (
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	FirestoreClient *firestore.Client
)

// FirebaseOptions returns the client options shared by every Google API client.
func FirebaseOptions() []option.ClientOption {
	if config.AppConfig.FirebaseCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(config.AppConfig.FirebaseCredentialsFile)}
}

// FirebaseInit initializes the Firebase App and its Auth client. The Firestore
// client is only opened when profiles are stored in Firestore.
func FirebaseInit() {
	ctx := context.Background()

	var fbConfig *firebase.Config
	if projectID := config.FirebaseProjectID(); projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, FirebaseOptions()...)
	if err != nil {
		log.Fatalf("firebase: error initializing app: %v", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("firebase: error getting Auth client: %v", err)
	}

	if !config.UsesMongo() {
		fsClient, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("firebase: error getting Firestore client: %v", err)
		}
		FirestoreClient = fsClient
	}

	FirebaseApp = app
	AuthClient = authClient
}

// FirebaseClose releases the Firestore connection if one was opened.
func FirebaseClose() {
	if FirestoreClient != nil {
		_ = FirestoreClient.Close()
	}
}
