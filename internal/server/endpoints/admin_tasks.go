package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// TaskInfo pairs a stored record with a live status probe.
type TaskInfo struct {
	RecordID   string `json:"record_id"`
	TaskID     string `json:"task_id"`
	BookTitle  string `json:"book_title"`
	Owner      string `json:"owner"`
	Stored     string `json:"stored_status"`
	Live       string `json:"live_status,omitempty"`
	LiveError  string `json:"live_error,omitempty"`
	ProbeError string `json:"probe_error,omitempty"`
}

// AdminTasksResponse lists every known external task.
type AdminTasksResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}

// AdminTasksEndpoint handles GET /api/admin/tasks.
type AdminTasksEndpoint struct{}

func (e *AdminTasksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/admin/tasks", e.handler
}

func (e *AdminTasksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List external task IDs
//	@Description	Admin view of every record's task with a live status probe
//	@Tags			admin
//	@Produce		json
//	@Param			probe	query		bool	false	"Probe live status (default true)"
//	@Success		200		{object}	AdminTasksResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Router			/api/admin/tasks [get]
func (e *AdminTasksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	s := svcctx.ServicesFrom(r.Context())
	records, err := s.Requests.List(r.Context(), requests.ListFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	probe := r.URL.Query().Get("probe") != "false"
	tasks := make([]TaskInfo, 0, len(records))
	for _, rec := range records {
		info := TaskInfo{
			RecordID:  rec.ID,
			TaskID:    rec.TaskID,
			BookTitle: rec.BookTitle,
			Owner:     rec.Owner,
			Stored:    string(rec.Status),
		}
		if probe && rec.TaskID != "" {
			pdf := s.PDFClients.ClientFor(r.Context(), rec.Owner)
			st, err := pdf.Status(r.Context(), rec.TaskID)
			switch {
			case errors.Is(err, pdfapi.ErrTaskNotFound):
				info.Live = "not_found"
			case err != nil:
				info.ProbeError = err.Error()
			default:
				info.Live = st.Status
				info.LiveError = st.Error
			}
		}
		tasks = append(tasks, info)
	}

	writeJSON(w, http.StatusOK, AdminTasksResponse{Tasks: tasks})
}

func (e *AdminTasksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var noProbe bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List external task IDs (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/admin/tasks"
			if noProbe {
				path += "?probe=false"
			}
			var resp AdminTasksResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Skip live status probes")
	return cmd
}
