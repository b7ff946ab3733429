package models

// ChatMessage is one role-tagged turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat. The last user message is the
// query being answered; earlier messages are carried as conversation history.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required"`
}

// IngestTextRequest ingests raw pasted text into the document collection.
type IngestTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text" binding:"required"`
}
