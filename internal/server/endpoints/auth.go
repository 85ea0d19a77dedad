package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginEndpoint handles POST /api/auth/login.
type LoginEndpoint struct{}

func (e *LoginEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/login", e.handler
}

func (e *LoginEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Log in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/api/auth/login [post]
func (e *LoginEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := svcctx.AuthFrom(r.Context()).Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		Username:  session.Username,
		Role:      string(session.Role),
		ExpiresAt: session.ExpiresAt,
	})
}

func (e *LoginEndpoint) Command(getServerURL func() string) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			client := api.NewClient(getServerURL())
			var resp LoginResponse
			req := LoginRequest{Username: username, Password: password}
			if err := client.Post(cmd.Context(), "/api/auth/login", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

// LogoutEndpoint handles POST /api/auth/logout.
type LogoutEndpoint struct{}

func (e *LogoutEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/logout", e.handler
}

func (e *LogoutEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Log out
//	@Tags			auth
//	@Success		204
//	@Router			/api/auth/logout [post]
func (e *LogoutEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svcctx.AuthFrom(r.Context()).Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (e *LogoutEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the current session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/auth/logout", nil, nil); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	Role           string `json:"role"`
	CanGeneratePDF bool   `json:"can_generate_pdf"`
}

// MeEndpoint handles GET /api/auth/me.
type MeEndpoint struct{}

func (e *MeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/auth/me", e.handler
}

func (e *MeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get the authenticated user
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	MeResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/auth/me [get]
func (e *MeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if requireSession(w, r) == nil {
		return
	}

	user, err := svcctx.AuthFrom(r.Context()).UserFor(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		Username:       user.Username,
		Email:          user.Email,
		FullName:       user.FullName,
		Role:           string(user.Role),
		CanGeneratePDF: user.Settings.CanGeneratePDF,
	})
}

func (e *MeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MeResponse
			if err := client.Get(cmd.Context(), "/api/auth/me", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
