package endpoints

import (
	"github.com/yosihaf/wikibook/internal/api"
	"github.com/yosihaf/wikibook/internal/recorddb"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DBManager *recorddb.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DBManager: cfg.DBManager},

		// Request endpoints
		&SubmitEndpoint{},
		&ListRequestsEndpoint{},
		&GetRequestEndpoint{},
		&UpdateRequestEndpoint{},
		&DeleteRequestEndpoint{},
		&ClearRequestsEndpoint{},
		&RefreshEndpoint{},
		&DownloadEndpoint{},

		// Admin endpoints
		&AdminTasksEndpoint{},
		&ImportEndpoint{},

		// Auth endpoints
		&LoginEndpoint{},
		&LogoutEndpoint{},
		&MeEndpoint{},
		&GoogleTokenEndpoint{},
		&GoogleRefreshEndpoint{},

		// Settings endpoints
		&GetSettingsEndpoint{},
		&UpdateSettingsEndpoint{},

		// Embedded frontend (catch-all, must not shadow API routes)
		&StaticEndpoint{},
	}
}
