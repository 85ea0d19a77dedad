// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/config"
	"github.com/yosihaf/wikibook/internal/generate"
	"github.com/yosihaf/wikibook/internal/home"
	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/recorddb"
	"github.com/yosihaf/wikibook/internal/requests"
	"github.com/yosihaf/wikibook/internal/users"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	RecordDB   *recorddb.Client
	Requests   *requests.Manager
	Users      *users.Manager
	Auth       *auth.Manager
	Google     *auth.GoogleClient
	PDF        *pdfapi.Client
	PDFClients generate.ClientResolver
	Submitter  *generate.Submitter
	Poller     *generate.Poller
	ConfigMgr  *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RecordDBFrom extracts the record database client from context.
func RecordDBFrom(ctx context.Context) *recorddb.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.RecordDB
	}
	return nil
}

// RequestsFrom extracts the request record manager from context.
func RequestsFrom(ctx context.Context) *requests.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Requests
	}
	return nil
}

// UsersFrom extracts the user manager from context.
func UsersFrom(ctx context.Context) *users.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Users
	}
	return nil
}

// AuthFrom extracts the auth manager from context.
func AuthFrom(ctx context.Context) *auth.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Auth
	}
	return nil
}

// GoogleFrom extracts the Google OAuth client from context.
func GoogleFrom(ctx context.Context) *auth.GoogleClient {
	if s := ServicesFrom(ctx); s != nil {
		return s.Google
	}
	return nil
}

// PDFFrom extracts the PDF service client from context.
func PDFFrom(ctx context.Context) *pdfapi.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.PDF
	}
	return nil
}

// PDFClientsFrom extracts the per-owner PDF client resolver from context.
func PDFClientsFrom(ctx context.Context) generate.ClientResolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.PDFClients
	}
	return nil
}

// SubmitterFrom extracts the job submitter from context.
func SubmitterFrom(ctx context.Context) *generate.Submitter {
	if s := ServicesFrom(ctx); s != nil {
		return s.Submitter
	}
	return nil
}

// PollerFrom extracts the status poller from context.
func PollerFrom(ctx context.Context) *generate.Poller {
	if s := ServicesFrom(ctx); s != nil {
		return s.Poller
	}
	return nil
}

// ConfigMgrFrom extracts the config manager from context.
func ConfigMgrFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigMgr
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
