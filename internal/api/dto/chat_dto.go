package dto

// ChatSendRequest posts one user message to the refund guide.
type ChatSendRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}
