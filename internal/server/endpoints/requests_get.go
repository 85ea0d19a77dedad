package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// GetRequestEndpoint handles GET /api/requests/{id}.
type GetRequestEndpoint struct{}

func (e *GetRequestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/requests/{id}", e.handler
}

func (e *GetRequestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a book request
//	@Tags			requests
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	requests.Record
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/requests/{id} [get]
func (e *GetRequestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	rec, err := svcctx.RequestsFrom(r.Context()).Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, requests.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Hidden records look identical to missing ones.
	if !rec.VisibleTo(session.Username, session.IsAdmin()) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *GetRequestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp requests.Record
			if err := client.Get(cmd.Context(), "/api/requests/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
