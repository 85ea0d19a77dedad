package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/generate"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/svcctx"
	"github.com/yosihaf/wikibook/internal/users"
)

// SubmitRequest is the request body for submitting a book.
type SubmitRequest struct {
	Pages     []string `json:"pages"`
	BookTitle string   `json:"book_title,omitempty"`
	Source    string   `json:"source,omitempty"`
	IsPublic  bool     `json:"is_public,omitempty"`
}

// SubmitResponse is the response for submitting a book.
type SubmitResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// SubmitEndpoint handles POST /api/requests.
type SubmitEndpoint struct{}

func (e *SubmitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/requests", e.handler
}

func (e *SubmitEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Submit a book request
//	@Description	Submit wiki pages for PDF book generation
//	@Tags			requests
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SubmitRequest	true	"Book submission"
//	@Success		201		{object}	SubmitResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/requests [post]
func (e *SubmitEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	user, err := svcctx.AuthFrom(r.Context()).UserFor(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !user.Settings.CanGeneratePDF && !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "PDF generation not enabled for this account")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := svcctx.ConfigMgrFrom(r.Context()).Get()
	sourceURL, err := resolveSource(cfg, req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	submitter := submitterFor(r.Context(), user)
	rec, err := submitter.Submit(r.Context(), generate.SubmitInput{
		Pages:     req.Pages,
		BookTitle: req.BookTitle,
		SourceURL: sourceURL,
		IsPublic:  req.IsPublic,
		Owner:     user.Username,
	})
	if err != nil {
		var apiErr *pdfapi.APIError
		switch {
		case errors.As(err, &apiErr):
			writeError(w, http.StatusBadGateway, apiErr.Message)
		case errors.Is(err, generate.ErrVerificationFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// The poll goroutine must outlive this request.
	svcctx.PollerFrom(r.Context()).Track(context.WithoutCancel(r.Context()), rec)

	writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:     rec.ID,
		TaskID: rec.TaskID,
		Status: string(rec.Status),
	})
}

// resolveSource maps a wiki source name to its base URL. An empty name
// takes the first configured source only when exactly one exists,
// otherwise hamichlol wins as the historical default.
func resolveSource(cfg *config.Config, name string) (string, error) {
	if name == "" {
		name = "hamichlol"
		if _, ok := cfg.WikiSources[name]; !ok && len(cfg.WikiSources) == 1 {
			for n := range cfg.WikiSources {
				name = n
			}
		}
	}
	url, ok := cfg.SourceURL(name)
	if !ok {
		return "", fmt.Errorf("unknown wiki source %q", name)
	}
	return url, nil
}

// submitterFor returns the shared submitter, or a per-user one when the
// account overrides the PDF service endpoint or key. The same resolver
// serves the poller, so the job is polled against the service that
// accepted it.
func submitterFor(ctx context.Context, user *users.User) *generate.Submitter {
	s := svcctx.ServicesFrom(ctx)
	client := s.PDFClients.ClientFor(ctx, user.Username)
	if client == s.PDF {
		return s.Submitter
	}
	return generate.NewSubmitter(client, s.Requests, s.Logger)
}

func (e *SubmitEndpoint) Command(getServerURL func() string) *cobra.Command {
	var bookTitle, source string
	var public bool
	cmd := &cobra.Command{
		Use:   "submit <page> [page...]",
		Short: "Submit wiki pages for PDF generation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var resp SubmitResponse
			req := SubmitRequest{
				Pages:     args,
				BookTitle: bookTitle,
				Source:    source,
				IsPublic:  public,
			}
			if err := client.Post(ctx, "/api/requests", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&bookTitle, "title", "", "Book title")
	cmd.Flags().StringVar(&source, "source", "", "Wiki source name (default hamichlol)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the finished book public")
	return cmd
}
