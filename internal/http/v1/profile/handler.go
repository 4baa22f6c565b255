package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/platform/timeutil"
	profilesvc "github.com/janisto/duo-journal/internal/service/profile"
)

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// Register registers profile endpoints.
func Register(api huma.API, svc profilesvc.Service, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/profile",
		Summary:       "Create user profile",
		Description:   "Creates the profile for the authenticated user and claims the username.",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *ProfileCreateInput) (*ProfileCreatedOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}

		profile, err := svc.Create(ctx, user.UID, profilesvc.CreateParams{
			Username:    input.Body.Username,
			DisplayName: input.Body.DisplayName,
			Avatar:      input.Body.Avatar,
		})
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &ProfileCreatedOutput{
			Location: prefix + "/profile",
			Body:     toHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Get current user's profile",
		Description: "Retrieves the profile for the authenticated user.",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, func(ctx context.Context, _ *ProfileGetInput) (*ProfileOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}

		profile, err := svc.Get(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &ProfileOutput{
			Body: toHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/profile",
		Summary:     "Update current user's profile",
		Description: "Updates the display name or avatar. The username cannot change.",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ProfileUpdateInput) (*ProfileOutput, error) {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.DisplayName == nil && input.Body.Avatar == nil {
			return nil, huma.Error422UnprocessableEntity("at least one field must be provided")
		}

		profile, err := svc.Update(ctx, user.UID, profilesvc.UpdateParams{
			DisplayName: input.Body.DisplayName,
			Avatar:      input.Body.Avatar,
		})
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &ProfileOutput{
			Body: toHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "lookup-profile",
		Method:      http.MethodGet,
		Path:        "/profiles/{username}",
		Summary:     "Look up a user by username",
		Description: "Returns the public fields of the profile owning the username.",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ProfileLookupInput) (*PublicProfileOutput, error) {
		if _, err := auth.RequireUser(ctx); err != nil {
			return nil, err
		}

		profile, err := svc.GetByUsername(ctx, input.Username)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &PublicProfileOutput{
			Body: PublicProfile{
				ID:          profile.ID,
				Username:    profile.Username,
				DisplayName: profile.DisplayName,
				Avatar:      profile.Avatar,
			},
		}, nil
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, profilesvc.ErrAlreadyExists):
		return huma.Error409Conflict("profile already exists")
	case errors.Is(err, profilesvc.ErrUsernameTaken):
		return huma.Error409Conflict("username is already taken")
	case errors.Is(err, profilesvc.ErrInvalidUsername):
		return huma.Error422UnprocessableEntity("username must be 3-30 lowercase letters, digits or underscores")
	case errors.Is(err, profilesvc.ErrInvalidDisplayName):
		return huma.Error422UnprocessableEntity("displayName must be 1-50 characters after trimming")
	case errors.Is(err, profilesvc.ErrInvalidAvatar):
		return huma.Error422UnprocessableEntity("avatar must be one of the available options")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func toHTTPProfile(p *profilesvc.Profile) Profile {
	return Profile{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		CreatedAt:   timeutil.Time{Time: p.CreatedAt},
		UpdatedAt:   timeutil.Time{Time: p.UpdatedAt},
	}
}
