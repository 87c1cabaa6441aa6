package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	RoleDonor     = "donor"
	RoleRequester = "requester"
	RoleAdmin     = "admin"
)

// Identity is the authenticated caller, taken from a verified access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// JWKSVerifier validates Cognito access tokens against the pool's published
// key set.
type JWKSVerifier struct {
	cache     *jwk.Cache
	jwksURL   string
	roleClaim string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL, roleClaim string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, jwksURL: jwksURL, roleClaim: roleClaim}
}

func (v *JWKSVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(accessToken), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	return identityFromToken(token, v.roleClaim)
}

func identityFromToken(token jwt.Token, roleClaim string) (*Identity, error) {
	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, errors.New("no user ID in JWT subject claim")
	}

	identity := &Identity{UserID: userID}

	// both are optional; Cognito access tokens omit email
	_ = token.Get("email", &identity.Email)
	if roleClaim != "" {
		_ = token.Get(roleClaim, &identity.Role)
	}

	return identity, nil
}

type loginInput struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid login payload")
		return
	}

	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	resp, err := s.cognitoClient.InitiateAuth(r.Context(), &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": strings.TrimSpace(input.Email),
			"PASSWORD": input.Password,
		},
	})
	if err != nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		s.logger.WithError(err).Info("login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		writeError(w, http.StatusUnauthorized, "Login failed")
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)

	encryptedToken, err := s.cookie.Encode(s.config.CookieName, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	maxAge := int(resp.AuthenticationResult.ExpiresIn)
	if maxAge <= 0 || maxAge > s.config.SessionMaxAgeSec {
		maxAge = s.config.SessionMaxAgeSec
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Logged in",
		"accessToken": accessToken,
		"expiresIn":   resp.AuthenticationResult.ExpiresIn,
	})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}
