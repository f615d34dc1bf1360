package entity

// ConversationSummary is a list row of the local API
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastActivity string    `json:"last_activity"`
	FileCount    int       `json:"file_count"`
	RagStatus    RagStatus `json:"rag_status"`
	Active       bool      `json:"active"`
}

type ListConversationsResponse struct {
	Conversations []*ConversationSummary `json:"conversations"`
}

type FileDetail struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Size      float64    `json:"size"`
	SizeLabel string     `json:"size_label"`
	Kind      FileKind   `json:"type"`
	Status    FileStatus `json:"status"`
}

type ConversationDetail struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	LastActivity string        `json:"last_activity"`
	RagReady     bool          `json:"rag_ready"`
	RagStatus    RagStatus     `json:"rag_status"`
	Active       bool          `json:"active"`
	Files        []*FileDetail `json:"files"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

type AddFilesResponse struct {
	Files  []*FileDetail `json:"files"`
	Errors []string      `json:"errors,omitempty"`
}

type BuildStatusResponse struct {
	ConversationID string    `json:"conversation_id"`
	Status         RagStatus `json:"status"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}
