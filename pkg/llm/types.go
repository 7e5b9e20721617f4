package llm

// Message represents a single message in a chat conversation.
// Images are only honoured on user messages.
type Message struct {
	Role    string  `json:"role"` // One of RoleSystem, RoleUser, RoleAssistant.
	Content string  `json:"content"`
	Images  []Image `json:"images,omitempty"`
}

// Image is an inline image attached to a user message.
type Image struct {
	MediaType string `json:"media_type"` // e.g. "image/jpeg"
	Data      []byte `json:"data"`
}

// Role constants for the Message.Role field.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Response contains the LLM's generated text and metadata.
type Response struct {
	Content      string `json:"content"`       // Generated text.
	Model        string `json:"model"`         // Model that produced this response.
	Usage        Usage  `json:"usage"`         // Token consumption, summed over tool rounds.
	Done         bool   `json:"done"`          // True if generation completed (false if truncated).
	FinishReason string `json:"finish_reason"` // Finish reason of the final round.
	SearchRounds int    `json:"search_rounds"` // Number of hosted web search round trips.
}

// Usage tracks token consumption for a single LLM call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}
