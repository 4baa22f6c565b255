// Package routes wires every v1 operation into the API.
package routes

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/http/v1/calendar"
	"github.com/janisto/duo-journal/internal/http/v1/companion"
	"github.com/janisto/duo-journal/internal/http/v1/entries"
	"github.com/janisto/duo-journal/internal/http/v1/partner"
	"github.com/janisto/duo-journal/internal/http/v1/profile"
	"github.com/janisto/duo-journal/internal/platform/auth"
	calendarsvc "github.com/janisto/duo-journal/internal/service/calendar"
	companionsvc "github.com/janisto/duo-journal/internal/service/companion"
	"github.com/janisto/duo-journal/internal/service/journal"
	partnersvc "github.com/janisto/duo-journal/internal/service/partner"
	profilesvc "github.com/janisto/duo-journal/internal/service/profile"
)

// Services bundles the domain services behind the API.
type Services struct {
	Profiles  profilesvc.Service
	Partners  partnersvc.Service
	Journal   journal.Service
	Calendar  calendarsvc.Service
	Companion *companionsvc.Service
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, verifier auth.Verifier, svc Services) {
	prefix := apiPrefix(api)

	api.OpenAPI().Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Firebase ID token",
		},
	}

	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	profile.Register(api, svc.Profiles, prefix)
	partner.Register(api, svc.Partners, prefix)
	entries.Register(api, svc.Journal, svc.Partners, svc.Companion, prefix)
	calendar.Register(api, svc.Calendar, svc.Journal, svc.Partners)
	companion.Register(api, svc.Companion, svc.Journal, svc.Partners)
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}
