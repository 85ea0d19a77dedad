package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/svcctx"
	"github.com/yosihaf/wikibook/internal/users"
)

// SettingsView is the per-user settings payload. The API key is write-
// only; reads report only whether one is set.
type SettingsView struct {
	CanGeneratePDF bool   `json:"can_generate_pdf"`
	WikiAPIURL     string `json:"wiki_api_url,omitempty"`
	HasAPIKey      bool   `json:"has_api_key"`
}

// GetSettingsEndpoint handles GET /api/settings.
type GetSettingsEndpoint struct{}

func (e *GetSettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings", e.handler
}

func (e *GetSettingsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get per-user settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsView
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/settings [get]
func (e *GetSettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if requireSession(w, r) == nil {
		return
	}

	user, err := svcctx.AuthFrom(r.Context()).UserFor(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, SettingsView{
		CanGeneratePDF: user.Settings.CanGeneratePDF,
		WikiAPIURL:     user.Settings.WikiAPIURL,
		HasAPIKey:      user.Settings.WikiAPIKey != "",
	})
}

func (e *GetSettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show your settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SettingsView
			if err := client.Get(cmd.Context(), "/api/settings", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateSettingsRequest is the request body for updating settings.
// Omitted fields keep their current value; permission changes are
// ignored unless the caller is an admin.
type UpdateSettingsRequest struct {
	WikiAPIURL     *string `json:"wiki_api_url"`
	WikiAPIKey     *string `json:"wiki_api_key"`
	CanGeneratePDF *bool   `json:"can_generate_pdf"`
	// Username targets another account (admin only).
	Username string `json:"username,omitempty"`
}

// UpdateSettingsEndpoint handles PUT /api/settings.
type UpdateSettingsEndpoint struct{}

func (e *UpdateSettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/settings", e.handler
}

func (e *UpdateSettingsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update per-user settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpdateSettingsRequest	true	"Settings to change"
//	@Success		200		{object}	SettingsView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Router			/api/settings [put]
func (e *UpdateSettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := svcctx.ServicesFrom(r.Context())

	var target *users.User
	var err error
	if req.Username != "" && req.Username != session.Username {
		if !session.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required to change other accounts")
			return
		}
		target, err = s.Users.FindByUsername(r.Context(), req.Username)
	} else {
		target, err = s.Auth.UserFor(r.Context(), bearerToken(r))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "account not found")
		return
	}

	settings := target.Settings
	if req.WikiAPIURL != nil {
		settings.WikiAPIURL = *req.WikiAPIURL
	}
	if req.WikiAPIKey != nil {
		settings.WikiAPIKey = *req.WikiAPIKey
	}
	if req.CanGeneratePDF != nil {
		if !session.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required to change generation permission")
			return
		}
		settings.CanGeneratePDF = *req.CanGeneratePDF
	}

	if err := s.Users.UpdateSettings(r.Context(), target.ID, settings); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SettingsView{
		CanGeneratePDF: settings.CanGeneratePDF,
		WikiAPIURL:     settings.WikiAPIURL,
		HasAPIKey:      settings.WikiAPIKey != "",
	})
}

func (e *UpdateSettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var apiURL, apiKey, username string
	var allowGenerate bool
	cmd := &cobra.Command{
		Use:   "settings-set",
		Short: "Update your settings (or another account's, as admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := UpdateSettingsRequest{Username: username}
			if cmd.Flags().Changed("api-url") {
				req.WikiAPIURL = &apiURL
			}
			if cmd.Flags().Changed("api-key") {
				req.WikiAPIKey = &apiKey
			}
			if cmd.Flags().Changed("allow-generate") {
				req.CanGeneratePDF = &allowGenerate
			}

			client := api.NewClient(getServerURL())
			var resp SettingsView
			if err := client.Put(cmd.Context(), "/api/settings", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Per-user PDF service base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Per-user PDF service API key")
	cmd.Flags().StringVar(&username, "user", "", "Target account (admin only)")
	cmd.Flags().BoolVar(&allowGenerate, "allow-generate", false, "Allow PDF generation (admin only)")
	return cmd
}
