package domain

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn of the refund-guide chat transcript.
type ChatMessage struct {
	ID   string   `json:"id"`
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
