package profile

// ProfileCreatedOutput is the 201 reply to signup; Location points at the
// caller's own profile resource.
type ProfileCreatedOutput struct {
	Location string `header:"Location" doc:"URL of the caller's profile"`
	Body     Profile
}

// ProfileOutput returns the caller's profile (GET and PATCH /profile).
type ProfileOutput struct {
	Body Profile
}

// PublicProfileOutput returns another user's public fields.
type PublicProfileOutput struct {
	Body PublicProfile
}
