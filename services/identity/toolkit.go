package identity

import (
	"context"
	"fmt"

	"educonnect/models"

	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

type firebaseToolkit struct {
	svc *identitytoolkit.Service
}

// NewToolkit opens the Identity Toolkit relying-party API with the project's web API key.
func NewToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (Toolkit, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: FIREBASE_API_KEY is empty", ErrNotConfigured)
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating identity toolkit service: %w", err)
	}
	return &firebaseToolkit{svc: svc}, nil
}

func (t *firebaseToolkit) VerifyPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &models.Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (t *firebaseToolkit) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	resp, err := t.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &models.Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (t *firebaseToolkit) VerifyAssertion(ctx context.Context, postBody, requestURI string) (*Assertion, error) {
	resp, err := t.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          postBody,
		RequestUri:        requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	name := resp.DisplayName
	if name == "" {
		name = resp.FullName
	}
	return &Assertion{
		Identity: models.Identity{
			UID:          resp.LocalId,
			Email:        resp.Email,
			DisplayName:  name,
			ProviderID:   resp.ProviderId,
			IsNewUser:    resp.IsNewUser,
			IDToken:      resp.IdToken,
			RefreshToken: resp.RefreshToken,
		},
		ErrorMessage: resp.ErrorMessage,
	}, nil
}
