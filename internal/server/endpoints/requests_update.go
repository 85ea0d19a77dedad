package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// UpdateRequestBody is the request body for updating a request record.
// Only visibility is caller-mutable; everything else belongs to the
// lifecycle machinery.
type UpdateRequestBody struct {
	IsPublic *bool `json:"is_public"`
}

// UpdateRequestEndpoint handles PATCH /api/requests/{id}.
type UpdateRequestEndpoint struct{}

func (e *UpdateRequestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/requests/{id}", e.handler
}

func (e *UpdateRequestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update a book request
//	@Description	Change request visibility (owner or admin only)
//	@Tags			requests
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Record ID"
//	@Param			request	body		UpdateRequestBody	true	"Fields to update"
//	@Success		200		{object}	requests.Record
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/requests/{id} [patch]
func (e *UpdateRequestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var body UpdateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "is_public is required")
		return
	}

	rm := svcctx.RequestsFrom(r.Context())
	rec, err := rm.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, requests.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A record the caller cannot see must not leak through the error code.
	if !rec.VisibleTo(session.Username, session.IsAdmin()) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if rec.Owner != session.Username && !session.IsAdmin() {
		writeError(w, http.StatusForbidden, "only the owner may change visibility")
		return
	}

	if err := rm.SetVisibility(r.Context(), rec.ID, *body.IsPublic); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rec.IsPublic = *body.IsPublic

	writeJSON(w, http.StatusOK, rec)
}

func (e *UpdateRequestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change request visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("public") {
				return fmt.Errorf("--public is required")
			}
			client := api.NewClient(getServerURL())
			var resp requests.Record
			body := UpdateRequestBody{IsPublic: &public}
			if err := client.Patch(cmd.Context(), "/api/requests/"+args[0], body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Whether the book is publicly visible")
	return cmd
}
