package partner

// OverviewInput for GET /partner (no parameters)
type OverviewInput struct{}

// SendRequestInput for POST /partner/requests
type SendRequestInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"30" required:"true" doc:"Username of the user to connect with" example:"bob"`
	}
}

// LinkInput addresses one link by id.
type LinkInput struct {
	ID string `path:"id" minLength:"1" maxLength:"64" doc:"Link id" example:"1c9e6f0e-3f5b-4f38-9a53-7a1f4fb0a2c1"`
}

// EventsInput for GET /partner/events (no parameters)
type EventsInput struct{}
