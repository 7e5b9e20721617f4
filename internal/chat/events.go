package chat

// Event topics published by the chat module. Payloads are
// models.ChatMessageEvent values.
const (
	TopicMessagePending   = "chat.message.pending"
	TopicMessageCompleted = "chat.message.completed"
)
