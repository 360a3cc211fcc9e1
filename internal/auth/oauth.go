package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/VerbClub/VC-Backend/internal/people"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

// oauthProvider bundles the code-exchange config with a provider-specific
// identity fetch.
type oauthProvider struct {
	name          string
	config        *oauth2.Config
	fetchIdentity func(ctx context.Context, tok *oauth2.Token) (providerUserID, email, name string, err error)
}

// providers holds the OAuth providers enabled via environment configuration.
var providers = map[string]*oauthProvider{}

func initOAuthProviders() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	if id, secret := os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"); id != "" && secret != "" {
		providers["google"] = &oauthProvider{
			name: "google",
			config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: secret,
				RedirectURL:  baseURL + "/auth/google/callback",
				Scopes:       []string{"profile", "email"},
				Endpoint:     google.Endpoint,
			},
			fetchIdentity: fetchGoogleIdentity,
		}
		log.Println("[OAuth] google provider enabled")
	}

	if id, secret := os.Getenv("FACEBOOK_CLIENT_ID"), os.Getenv("FACEBOOK_CLIENT_SECRET"); id != "" && secret != "" {
		providers["facebook"] = &oauthProvider{
			name: "facebook",
			config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: secret,
				RedirectURL:  baseURL + "/auth/facebook/callback",
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			fetchIdentity: fetchFacebookIdentity,
		}
		log.Println("[OAuth] facebook provider enabled")
	}

	if id, team, key := os.Getenv("APPLE_CLIENT_ID"), os.Getenv("APPLE_TEAM_ID"), os.Getenv("APPLE_KEY_ID"); id != "" && team != "" && key != "" {
		secret, err := generateAppleClientSecret()
		if err != nil {
			log.Printf("[OAuth] WARNING: apple provider disabled: %v", err)
		} else {
			providers["apple"] = &oauthProvider{
				name: "apple",
				config: &oauth2.Config{
					ClientID:     id,
					ClientSecret: secret,
					RedirectURL:  baseURL + "/auth/apple/callback",
					Scopes:       []string{"name", "email"},
					Endpoint: oauth2.Endpoint{
						AuthURL:  "https://appleid.apple.com/auth/authorize",
						TokenURL: "https://appleid.apple.com/auth/token",
					},
				},
				fetchIdentity: fetchAppleIdentity,
			}
			log.Println("[OAuth] apple provider enabled")
		}
	}
}

// generateAppleClientSecret builds the ES256-signed JWT Apple requires in
// place of a static client secret. Valid for 6 months, generated at startup.
func generateAppleClientSecret() (string, error) {
	pemData := os.Getenv("APPLE_PRIVATE_KEY")
	if pemData == "" {
		path := os.Getenv("APPLE_PRIVATE_KEY_PATH")
		if path == "" {
			return "", errors.New("apple private key not configured")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read apple private key: %w", err)
		}
		pemData = string(raw)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return "", fmt.Errorf("parse apple private key: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": os.Getenv("APPLE_TEAM_ID"),
		"iat": now.Unix(),
		"exp": now.Add(180 * 24 * time.Hour).Unix(),
		"aud": "https://appleid.apple.com",
		"sub": os.Getenv("APPLE_CLIENT_ID"),
	})
	token.Header["kid"] = os.Getenv("APPLE_KEY_ID")

	return token.SignedString(key)
}

func fetchGoogleIdentity(ctx context.Context, tok *oauth2.Token) (string, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", "", "", err
	}
	return info.ID, info.Email, info.Name, nil
}

func fetchFacebookIdentity(ctx context.Context, tok *oauth2.Token) (string, string, string, error) {
	u := "https://graph.facebook.com/me?fields=id,name,email&access_token=" + url.QueryEscape(tok.AccessToken)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", "", "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("facebook userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("facebook userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", "", "", err
	}
	return info.ID, info.Email, info.Name, nil
}

// fetchAppleIdentity decodes the id_token from the token response. The claims
// are read without signature verification; the token was just obtained over
// TLS directly from Apple's token endpoint.
func fetchAppleIdentity(_ context.Context, tok *oauth2.Token) (string, string, string, error) {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", "", "", errors.New("apple token response missing id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", "", "", fmt.Errorf("decode apple id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return "", "", "", errors.New("apple id_token missing sub")
	}

	name := ""
	if email != "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if name == "" {
		name = "Apple User"
	}
	return sub, email, name, nil
}

// findOrCreateOAuthUser resolves an external identity to a local user: an
// existing oauth_providers row wins, then an email match links the identity to
// an existing account, otherwise a fresh user and person are created.
func findOrCreateOAuthUser(tx *gorm.DB, provider, providerUserID, email, name string) (string, error) {
	var existing OAuthProvider
	err := tx.First(&existing, "provider = ? AND provider_user_id = ?", provider, providerUserID).Error
	if err == nil {
		return existing.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var userID string
	if email != "" {
		var user User
		err := tx.First(&user, "email = ?", email).Error
		if err == nil {
			userID = user.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}

	if userID == "" {
		username := generateOAuthUsername(provider, providerUserID, email)
		uniqueUsername := username
		for counter := 1; ; counter++ {
			var count int64
			if err := tx.Model(&User{}).Where("username = ?", uniqueUsername).Count(&count).Error; err != nil {
				return "", err
			}
			if count == 0 {
				break
			}
			uniqueUsername = fmt.Sprintf("%s_%d", username, counter)
		}

		user := User{
			ID:       uuid.NewString(),
			Username: uniqueUsername,
		}
		if email != "" {
			user.Email = &email
		}
		if err := tx.Create(&user).Error; err != nil {
			return "", err
		}
		userID = user.ID

		displayName := name
		if displayName == "" {
			displayName = uniqueUsername
		}
		if _, err := people.LinkPersonToUser(tx, "", userID, displayName); err != nil {
			return "", err
		}
	}

	link := OAuthProvider{
		ID:             uuid.NewString(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          email,
	}
	if err := tx.Create(&link).Error; err != nil {
		return "", err
	}

	return userID, nil
}

func generateOAuthUsername(provider, providerUserID, email string) string {
	if email != "" {
		local := strings.SplitN(email, "@", 2)[0]
		return fmt.Sprintf("%s_%s", local, randomSuffix(5))
	}
	return fmt.Sprintf("%s_%s", provider, providerUserID)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// BeginOAuthHandler redirects to the provider's consent screen. The state
// parameter is pinned in a short-lived cookie and checked on callback.
func BeginOAuthHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := providers[chi.URLParam(r, "provider")]
	if !ok {
		http.Error(w, "Unknown OAuth provider", http.StatusNotFound)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/auth",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallbackHandler exchanges the authorization code, resolves the external
// identity to a user, and redirects to the frontend with a JWT.
func OAuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := providers[chi.URLParam(r, "provider")]
	if !ok {
		http.Error(w, "Unknown OAuth provider", http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	tok, err := p.config.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("[OAuth] %s exchange: %v", p.name, err)
		http.Error(w, "OAuth exchange failed", http.StatusBadGateway)
		return
	}

	providerUserID, email, name, err := p.fetchIdentity(r.Context(), tok)
	if err != nil {
		log.Printf("[OAuth] %s identity: %v", p.name, err)
		http.Error(w, "Failed to fetch user info", http.StatusBadGateway)
		return
	}

	var userID string
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		userID, err = findOrCreateOAuthUser(tx, p.name, providerUserID, email, name)
		return err
	})
	if err != nil {
		log.Printf("[OAuth] %s find-or-create: %v", p.name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jwtToken, err := Tokens.Sign(userID)
	if err != nil {
		log.Printf("[OAuth] sign token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	http.Redirect(w, r, frontendURL+"/auth/callback?token="+url.QueryEscape(jwtToken), http.StatusTemporaryRedirect)
}
