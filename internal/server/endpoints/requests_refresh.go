package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/generate"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// RefreshResponse is the response for the list-refresh operation.
type RefreshResponse struct {
	Requests []*requests.Record `json:"requests"`
	Updated  int                `json:"updated"`
}

// RefreshEndpoint handles POST /api/requests/refresh. It reconciles
// every visible record against the PDF service in one pass, the bulk
// counterpart of the per-task poller.
type RefreshEndpoint struct{}

func (e *RefreshEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/requests/refresh", e.handler
}

func (e *RefreshEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Refresh book requests
//	@Description	Re-check every visible request against the PDF service
//	@Tags			requests
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/requests/refresh [post]
func (e *RefreshEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	s := svcctx.ServicesFrom(r.Context())
	all, err := s.Requests.List(r.Context(), requests.ListFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fallback := s.ConfigMgr.Get().PDFService.FallbackTitle
	visible := make([]*requests.Record, 0, len(all))
	updated := 0
	for _, rec := range all {
		if !rec.VisibleTo(session.Username, session.IsAdmin()) {
			continue
		}
		if refreshRecord(r, rec, fallback) {
			updated++
		}
		visible = append(visible, rec)
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Requests: visible, Updated: updated})
}

// refreshRecord reconciles one record in place, returning whether it
// changed. Status-check failures are logged and skipped so one flaky
// task cannot break the whole listing.
func refreshRecord(r *http.Request, rec *requests.Record, fallback string) bool {
	s := svcctx.ServicesFrom(r.Context())

	if rec.TaskID == "" {
		return false
	}

	// Resolve the owner's client so records on an overridden service are
	// checked against that service rather than the shared one.
	pdf := s.PDFClients.ClientFor(r.Context(), rec.Owner)
	st, err := pdf.Status(r.Context(), rec.TaskID)
	if err != nil {
		if errors.Is(err, pdfapi.ErrTaskNotFound) && !rec.Status.Terminal() {
			change := generate.Change{Status: requests.StatusFailed, Error: "Task not found"}
			return persistChange(r, rec, change)
		}
		s.Logger.Warn("refresh status check failed", "task_id", rec.TaskID, "error", err)
		return false
	}

	change := generate.Reconcile(rec, st, pdf, fallback)

	// The listing links straight to the file, so probe the URL and fall
	// back to the bare path when the named one is missing. Advisory; a
	// probe failure never blocks the refresh.
	if url := change.PDFURL; url != "" && !pdf.Exists(r.Context(), url) {
		change.PDFURL = pdf.FallbackDownloadURL(rec.TaskID)
	}

	if change.Empty() {
		return false
	}
	return persistChange(r, rec, change)
}

func persistChange(r *http.Request, rec *requests.Record, change generate.Change) bool {
	s := svcctx.ServicesFrom(r.Context())
	if err := s.Requests.Update(r.Context(), rec.ID, change.Fields()); err != nil {
		s.Logger.Warn("refresh update failed", "id", rec.ID, "error", err)
		return false
	}
	change.Apply(rec)
	return true
}

func (e *RefreshEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-check all requests against the PDF service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RefreshResponse
			if err := client.Post(cmd.Context(), "/api/requests/refresh", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
