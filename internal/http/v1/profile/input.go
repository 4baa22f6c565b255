package profile

// ProfileCreateInput for POST /profile
type ProfileCreateInput struct {
	Body struct {
		Username    string `json:"username"         minLength:"3" maxLength:"30" required:"true" doc:"Username (letters, digits, underscore)" example:"alice_w"`
		DisplayName string `json:"displayName"      minLength:"1" maxLength:"50" required:"true" doc:"Display name"                           example:"Alice"`
		Avatar      string `json:"avatar,omitempty"                                              doc:"Emoji avatar, defaults to 🌸"            example:"🌸"`
	}
}

// ProfileGetInput for GET /profile (no body needed)
type ProfileGetInput struct{}

// ProfileUpdateInput for PATCH /profile
type ProfileUpdateInput struct {
	Body struct {
		DisplayName *string `json:"displayName,omitempty" minLength:"1" maxLength:"50" doc:"Display name" example:"Alice"`
		Avatar      *string `json:"avatar,omitempty"                                   doc:"Emoji avatar" example:"🌊"`
	}
}

// ProfileLookupInput for GET /profiles/{username}
type ProfileLookupInput struct {
	Username string `path:"username" minLength:"1" maxLength:"30" doc:"Username, matched case-insensitively" example:"bob"`
}
