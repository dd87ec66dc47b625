package service

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"paperpal/internal/document/model"
	"paperpal/internal/document/repository"
)

var ErrNotFound = errors.New("document not found")

type DocumentService struct {
	Repo *repository.DocumentRepository
}

func NewDocumentService(repo *repository.DocumentRepository) *DocumentService {
	return &DocumentService{Repo: repo}
}

func (s *DocumentService) GetDocument(id string) (model.DocumentMetadata, error) {
	doc, err := s.Repo.Get(id)
	if err == sql.ErrNoRows {
		return model.DocumentMetadata{}, ErrNotFound
	}
	return doc, err
}

// RegisterDocument records an uploaded document's metadata. The upload form
// may supply its own id (from the storage backend); otherwise one is
// generated.
func (s *DocumentService) RegisterDocument(userID string, req model.RegisterDocRequest) (string, error) {
	docID := req.ID
	if docID == "" {
		docID = generateDocID()
	}
	if docID == "" {
		return "", errors.New("failed to generate document ID")
	}
	title := req.Title
	if title == "" {
		title = "Untitled Document"
	}
	err := s.Repo.Create(model.DocumentMetadata{
		ID:         docID,
		Title:      title,
		URL:        req.URL,
		Authors:    req.Authors,
		UploadedBy: userID,
	})
	return docID, err
}

func generateDocID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
