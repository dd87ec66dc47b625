package model

import "time"

// DocumentMetadata is what the collaboration UI needs to render a document:
// where the file lives and who wrote it. Session state never touches this
// table; it is the storage collaborator's edge.
type DocumentMetadata struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Authors    []string  `json:"authors"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type RegisterDocRequest struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Authors []string `json:"authors"`
}

type RegisterDocResponse struct {
	DocID string `json:"documentId"`
}

type DocumentResponse struct {
	Success  bool             `json:"success"`
	Document DocumentMetadata `json:"document"`
}
