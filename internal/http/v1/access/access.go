// Package access resolves whose data a read request targets and whether the
// authenticated user may see it.
package access

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/service/partner"
)

// Checker decides whether viewerID may read ownerID's data.
// partner.Service satisfies it.
type Checker interface {
	CanView(ctx context.Context, viewerID, ownerID string) error
}

// OwnerParam embeds into Huma input structs for readable-by-partner routes.
type OwnerParam struct {
	Owner string `query:"owner" doc:"User id whose data to read; defaults to the caller. Must be the caller or their active partner." example:"user-456"`
}

// Resolve returns the authenticated viewer and the owner to read. An empty
// owner means the viewer. Anyone else than the viewer's active partner gets
// a 404 so other users' data stays invisible.
func Resolve(ctx context.Context, checker Checker, owner string) (viewerID, ownerID string, err error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return "", "", err
	}
	if owner == "" || owner == user.UID {
		return user.UID, user.UID, nil
	}
	if err := checker.CanView(ctx, user.UID, owner); err != nil {
		if errors.Is(err, partner.ErrNotFound) {
			return "", "", huma.Error404NotFound("not found")
		}
		return "", "", huma.Error500InternalServerError("internal error")
	}
	return user.UID, owner, nil
}
