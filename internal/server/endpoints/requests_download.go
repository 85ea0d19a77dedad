package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// DownloadEndpoint handles GET /api/requests/{id}/download.
// The HTTP route redirects to the external file; the CLI command
// downloads it locally and validates the result is a readable PDF.
type DownloadEndpoint struct{}

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/requests/{id}/download", e.handler
}

func (e *DownloadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Download a finished book
//	@Description	Redirect to the external PDF download URL
//	@Tags			requests
//	@Param			id	path	string	true	"Record ID"
//	@Success		302
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/requests/{id}/download [get]
func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	if !rec.VisibleTo(session.Username, session.IsAdmin()) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}

	if rec.Status != requests.StatusCompleted {
		writeError(w, http.StatusConflict, "book is not ready yet")
		return
	}

	pdf := s.PDFClients.ClientFor(r.Context(), rec.Owner)
	url := rec.PDFURL
	if url == "" {
		url = pdf.FallbackDownloadURL(rec.TaskID)
	}
	// Prefer the bare path when the named file is missing upstream.
	if !pdf.Exists(r.Context(), url) {
		url = pdf.FallbackDownloadURL(rec.TaskID)
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a finished book to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var rec requests.Record
			if err := client.Get(ctx, "/api/requests/"+args[0], &rec); err != nil {
				return err
			}
			if rec.Status != requests.StatusCompleted {
				return fmt.Errorf("book is not ready yet (status %s)", rec.Status)
			}
			if rec.PDFURL == "" {
				return fmt.Errorf("record has no download URL")
			}

			if outPath == "" {
				outPath = filepath.Base(rec.PDFURL)
				if filepath.Ext(outPath) != ".pdf" {
					outPath += ".pdf"
				}
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()

			pdf := pdfapi.NewClient("", "")
			if err := pdf.Download(ctx, rec.PDFURL, f); err != nil {
				os.Remove(outPath)
				return fmt.Errorf("downloading book: %w", err)
			}

			pages, err := pdfcpu.PageCountFile(outPath)
			if err != nil {
				return fmt.Errorf("downloaded file is not a readable PDF: %w", err)
			}

			fmt.Printf("Saved %s (%d pages)\n", outPath, pages)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file path")
	return cmd
}
