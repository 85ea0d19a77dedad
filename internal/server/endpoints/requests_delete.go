package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// DeleteRequestEndpoint handles DELETE /api/requests/{id}.
type DeleteRequestEndpoint struct{}

func (e *DeleteRequestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/requests/{id}", e.handler
}

func (e *DeleteRequestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a book request
//	@Description	Delete a request record and, best-effort, its external task
//	@Tags			requests
//	@Produce		json
//	@Param			id	path	string	true	"Record ID"
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/requests/{id} [delete]
func (e *DeleteRequestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	s := svcctx.ServicesFrom(r.Context())
	rec, err := s.Requests.Get(r.Context(), r.PathValue("id"))
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
		writeError(w, http.StatusForbidden, "only the owner may delete this request")
		return
	}

	deleteRecord(r, rec)

	w.WriteHeader(http.StatusNoContent)
}

// deleteRecord stops polling, asks the external service to drop the
// task (best-effort), and removes the record. Store failures are logged
// by the manager; the external delete never blocks the local one.
func deleteRecord(r *http.Request, rec *requests.Record) {
	s := svcctx.ServicesFrom(r.Context())

	s.Poller.Cancel(rec.ID)
	if rec.TaskID != "" {
		pdf := s.PDFClients.ClientFor(r.Context(), rec.Owner)
		if err := pdf.Delete(r.Context(), rec.TaskID); err != nil {
			s.Logger.Warn("external task delete failed", "task_id", rec.TaskID, "error", err)
		}
	}
	if err := s.Requests.Delete(r.Context(), rec.ID); err != nil {
		s.Logger.Warn("record delete failed", "id", rec.ID, "error", err)
	}
}

func (e *DeleteRequestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/requests/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted request %s\n", args[0])
			return nil
		},
	}
}

// ClearRequestsResponse reports how many records were removed.
type ClearRequestsResponse struct {
	Deleted int `json:"deleted"`
}

// ClearRequestsEndpoint handles DELETE /api/requests. It deletes the
// caller's own records, or every record with ?all=true (admin only).
type ClearRequestsEndpoint struct{}

func (e *ClearRequestsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/requests", e.handler
}

func (e *ClearRequestsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete book requests in bulk
//	@Tags			requests
//	@Produce		json
//	@Param			all	query		bool	false	"Delete all records (admin only)"
//	@Success		200	{object}	ClearRequestsResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/api/requests [delete]
func (e *ClearRequestsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	all := r.URL.Query().Get("all") == "true"
	if all && !session.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required to delete all records")
		return
	}

	filter := requests.ListFilter{}
	if !all {
		filter.Owner = session.Username
	}

	s := svcctx.ServicesFrom(r.Context())
	records, err := s.Requests.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	deleted := 0
	for _, rec := range records {
		deleteRecord(r, rec)
		deleted++
	}

	writeJSON(w, http.StatusOK, ClearRequestsResponse{Deleted: deleted})
}

func (e *ClearRequestsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete your book requests (or all with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/requests"
			if all {
				path += "?all=true"
			}
			// Delete with a decoded response needs the lower-level helpers.
			var resp ClearRequestsResponse
			if err := client.DeleteWithResponse(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every record (admin only)")
	return cmd
}
