package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/schema"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// ImportResponse reports the outcome of a bulk record import.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportEndpoint handles POST /api/admin/records/import. The payload is
// a JSON array of records; each is validated against the request record
// schema before anything is written.
type ImportEndpoint struct{}

func (e *ImportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/admin/records/import", e.handler
}

func (e *ImportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Import request records
//	@Description	Bulk-import records, validating each against the record schema
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/api/admin/records/import [post]
func (e *ImportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "payload must be a JSON array of records")
		return
	}

	s := svcctx.ServicesFrom(r.Context())
	resp := ImportResponse{}
	for i, doc := range raw {
		if err := schema.ValidateRequestImport(doc); err != nil {
			resp.Rejected++
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}

		var rec requests.Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			resp.Rejected++
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}

		if _, err := s.Requests.Import(r.Context(), &rec); err != nil {
			resp.Rejected++
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		resp.Imported++
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ImportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Bulk-import request records from a JSON file (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}
			var payload []json.RawMessage
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("import file must hold a JSON array: %w", err)
			}

			client := api.NewClient(getServerURL())
			var resp ImportResponse
			if err := client.Post(cmd.Context(), "/api/admin/records/import", payload, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
