package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// GoogleTokenRequest is the request body for the code exchange.
type GoogleTokenRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// GoogleTokenEndpoint handles POST /api/auth/google/token. It trades an
// OAuth authorization code for tokens so the client secret stays on the
// server.
type GoogleTokenEndpoint struct{}

func (e *GoogleTokenEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/google/token", e.handler
}

func (e *GoogleTokenEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Exchange a Google authorization code
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GoogleTokenRequest	true	"Authorization code"
//	@Success		200		{object}	auth.GoogleToken
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/google/token [post]
func (e *GoogleTokenEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GoogleTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.RedirectURI == "" {
		writeError(w, http.StatusBadRequest, "code and redirect_uri are required")
		return
	}

	google := svcctx.GoogleFrom(r.Context())
	if google == nil {
		writeError(w, http.StatusServiceUnavailable, "google auth not configured")
		return
	}

	token, err := google.Exchange(r.Context(), req.Code, req.RedirectURI)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (e *GoogleTokenEndpoint) Command(getServerURL func() string) *cobra.Command {
	var code, redirectURI string
	cmd := &cobra.Command{
		Use:   "google-token",
		Short: "Exchange a Google authorization code for tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" || redirectURI == "" {
				return fmt.Errorf("--code and --redirect-uri are required")
			}
			client := api.NewClient(getServerURL())
			var resp auth.GoogleToken
			req := GoogleTokenRequest{Code: code, RedirectURI: redirectURI}
			if err := client.Post(cmd.Context(), "/api/auth/google/token", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI used in the auth flow")
	return cmd
}

// GoogleRefreshRequest is the request body for refreshing a token.
type GoogleRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// GoogleRefreshEndpoint handles POST /api/auth/google/refresh.
type GoogleRefreshEndpoint struct{}

func (e *GoogleRefreshEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/google/refresh", e.handler
}

func (e *GoogleRefreshEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Refresh a Google access token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GoogleRefreshRequest	true	"Refresh token"
//	@Success		200		{object}	auth.GoogleToken
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/google/refresh [post]
func (e *GoogleRefreshEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GoogleRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	google := svcctx.GoogleFrom(r.Context())
	if google == nil {
		writeError(w, http.StatusServiceUnavailable, "google auth not configured")
		return
	}

	token, err := google.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (e *GoogleRefreshEndpoint) Command(getServerURL func() string) *cobra.Command {
	var refreshToken string
	cmd := &cobra.Command{
		Use:   "google-refresh",
		Short: "Refresh a Google access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshToken == "" {
				return fmt.Errorf("--refresh-token is required")
			}
			client := api.NewClient(getServerURL())
			var resp auth.GoogleToken
			req := GoogleRefreshRequest{RefreshToken: refreshToken}
			if err := client.Post(cmd.Context(), "/api/auth/google/refresh", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	return cmd
}
