package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// ListRequestsResponse is the response for listing book requests.
type ListRequestsResponse struct {
	Requests []*requests.Record `json:"requests"`
}

// ListRequestsEndpoint handles GET /api/requests.
type ListRequestsEndpoint struct{}

func (e *ListRequestsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/requests", e.handler
}

func (e *ListRequestsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List book requests
//	@Description	List requests visible to the caller, newest first
//	@Tags			requests
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			mine	query		bool	false	"Only the caller's own requests"
//	@Success		200		{object}	ListRequestsResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/requests [get]
func (e *ListRequestsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	rm := svcctx.RequestsFrom(r.Context())
	filter := requests.ListFilter{
		Status: requests.Status(r.URL.Query().Get("status")),
	}
	mine := r.URL.Query().Get("mine") == "true"
	if mine {
		filter.Owner = session.Username
	}

	all, err := rm.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	visible := make([]*requests.Record, 0, len(all))
	for _, rec := range all {
		if rec.VisibleTo(session.Username, session.IsAdmin()) {
			visible = append(visible, rec)
		}
	}

	writeJSON(w, http.StatusOK, ListRequestsResponse{Requests: visible})
}

func (e *ListRequestsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List book requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			path := "/api/requests"
			params := url.Values{}
			if status != "" {
				params.Set("status", status)
			}
			if mine {
				params.Set("mine", "true")
			}
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp ListRequestsResponse
			if err := client.Get(ctx, path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only your own requests")
	return cmd
}
