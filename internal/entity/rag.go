package entity

// RAGFileInfo is the file description returned by the remote service
type RAGFileInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Size   float64 `json:"size"`
	Status string  `json:"status"`
}

type RAGUploadResponse struct {
	Success bool        `json:"success"`
	File    RAGFileInfo `json:"file"`
}

type RAGDeleteFileResponse struct {
	Success       bool   `json:"success"`
	DeletedFileID string `json:"deleted_file_id,omitempty"`
}

type RAGBuildResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ProcessedFiles int    `json:"processed_files,omitempty"`
}

type RAGQueryRequest struct {
	Query string `json:"query"`
}

// RAGQueryResponse fields are optional on the wire
type RAGQueryResponse struct {
	Answer       *string       `json:"answer"`
	VideoSources []VideoSource `json:"video_sources"`
	Images       []string      `json:"images"`
}

type RAGStatusResponse struct {
	ConversationID string        `json:"conv_id"`
	FilesCount     int           `json:"files_count"`
	RagReady       bool          `json:"rag_ready"`
	Files          []RAGFileInfo `json:"files"`
}

type FileData struct {
	Filename string
	Content  []byte
}
