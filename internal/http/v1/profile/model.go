package profile

import (
	"github.com/janisto/duo-journal/internal/platform/timeutil"
)

// Profile represents the authenticated user's profile.
type Profile struct {
	ID          string        `json:"id"          doc:"Unique identifier (Firebase UID)" example:"user-123"`
	Username    string        `json:"username"    doc:"Unique lowercase username"        example:"alice_w"`
	DisplayName string        `json:"displayName" doc:"Display name"                     example:"Alice"`
	Avatar      string        `json:"avatar"      doc:"Emoji avatar"                     example:"🌸"`
	CreatedAt   timeutil.Time `json:"createdAt"   doc:"Creation timestamp"               example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt   timeutil.Time `json:"updatedAt"   doc:"Last update timestamp"            example:"2024-01-15T10:30:00.000Z"`
}

// PublicProfile is what other users see when looking up a username.
type PublicProfile struct {
	ID          string `json:"id"          doc:"Unique identifier" example:"user-456"`
	Username    string `json:"username"    doc:"Username"          example:"bob"`
	DisplayName string `json:"displayName" doc:"Display name"      example:"Bob"`
	Avatar      string `json:"avatar"      doc:"Emoji avatar"      example:"🌊"`
}
