package models

// ChatResponse is the assistant's reply for POST /api/v1/chat.
type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IngestTextResponse reports how many chunks a text ingestion produced.
type IngestTextResponse struct {
	Success       bool   `json:"success"`
	IndexedChunks int    `json:"indexed_chunks"`
	Error         string `json:"error,omitempty"`
}
