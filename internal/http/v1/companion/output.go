package companion

// CommentOutput returns one AI comment.
type CommentOutput struct {
	Body Comment
}

// MessagesListOutput for GET /entries/{date}/companion/messages
type MessagesListOutput struct {
	Body struct {
		Items []Message `json:"items" doc:"Chat messages, oldest first"`
	}
}

// MessageSendOutput for POST /entries/{date}/companion/messages (201 Created)
type MessageSendOutput struct {
	Body struct {
		Message Message `json:"message" doc:"The stored user message"`
		Reply   Message `json:"reply"   doc:"The companion's reply"`
	}
}
