package generate

import (
	"context"
	"log/slog"

	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/users"
)

// ClientResolver returns the PDF service client handling a given owner's
// jobs. Accounts may point submissions at a different service through
// their settings, so every later call about a record (polling, refresh,
// download, delete) must resolve the same client the submission used.
type ClientResolver interface {
	ClientFor(ctx context.Context, owner string) *pdfapi.Client
}

// StaticClients resolves every owner to the same client.
type StaticClients struct {
	Client *pdfapi.Client
}

func (s StaticClients) ClientFor(context.Context, string) *pdfapi.Client { return s.Client }

// UserClients resolves owners through their account settings. Owners
// without an endpoint or key override get the shared client, as does any
// owner whose account lookup fails.
type UserClients struct {
	Users  *users.Manager
	Config *config.Manager
	Shared *pdfapi.Client
	Logger *slog.Logger
}

func (u *UserClients) ClientFor(ctx context.Context, owner string) *pdfapi.Client {
	if owner == "" {
		return u.Shared
	}
	user, err := u.Users.FindByUsername(ctx, owner)
	if err != nil {
		u.Logger.Warn("falling back to shared PDF client", "owner", owner, "error", err)
		return u.Shared
	}
	return u.ClientForSettings(user.Settings)
}

// ClientForSettings builds the client for one account's settings.
// Callers that already hold the user record skip the lookup.
func (u *UserClients) ClientForSettings(st users.Settings) *pdfapi.Client {
	if st.WikiAPIURL == "" && st.WikiAPIKey == "" {
		return u.Shared
	}
	cfg := u.Config.Get()
	baseURL := cfg.PDFService.BaseURL
	if st.WikiAPIURL != "" {
		baseURL = st.WikiAPIURL
	}
	apiKey := config.ResolveEnvVars(cfg.PDFService.APIKey)
	if st.WikiAPIKey != "" {
		apiKey = st.WikiAPIKey
	}
	return pdfapi.NewClient(baseURL, apiKey)
}
