package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleTokenURL is Google's OAuth2 token endpoint.
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

// GoogleToken is the token endpoint response passed back to callers.
type GoogleToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// GoogleClient proxies authorization-code exchange and token refresh to
// Google so the client secret never leaves the server.
type GoogleClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
}

// NewGoogleClient creates a Google OAuth client.
func NewGoogleClient(clientID, clientSecret string) *GoogleClient {
	return &GoogleClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     GoogleTokenURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Exchange trades an authorization code for tokens.
func (g *GoogleClient) Exchange(ctx context.Context, code, redirectURI string) (*GoogleToken, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}
	return g.post(ctx, form)
}

// Refresh trades a refresh token for a fresh access token.
func (g *GoogleClient) Refresh(ctx context.Context, refreshToken string) (*GoogleToken, error) {
	form := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"grant_type":    {"refresh_token"},
	}
	return g.post(ctx, form)
}

func (g *GoogleClient) post(ctx context.Context, form url.Values) (*GoogleToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("google token endpoint: %s (%s)", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("google token endpoint returned %d", resp.StatusCode)
	}

	var token GoogleToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	return &token, nil
}
