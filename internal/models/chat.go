package models

// Chat roles used by the recommender.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message in a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral chat-completion request.
type ChatRequest struct {
	Model            string
	Messages         []ChatMessage
	Temperature      float64
	FrequencyPenalty float64
}
