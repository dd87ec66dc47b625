package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"paperpal/internal/document/model"
	"paperpal/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Get(id string) (model.DocumentMetadata, error) {
	var doc model.DocumentMetadata
	err := r.DB.QueryRow(
		"SELECT id, title, url, authors, uploaded_by, uploaded_at FROM documents WHERE id = $1", id,
	).Scan(&doc.ID, &doc.Title, &doc.URL, pq.Array(&doc.Authors), &doc.UploadedBy, &doc.UploadedAt)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get document %s: %v", id, err)
	}
	return doc, err
}

func (r *DocumentRepository) Create(doc model.DocumentMetadata) error {
	_, err := r.DB.Exec(
		`INSERT INTO documents (id, title, url, authors, uploaded_by, uploaded_at) VALUES ($1, $2, $3, $4, $5, NOW())`,
		doc.ID, doc.Title, doc.URL, pq.Array(doc.Authors), doc.UploadedBy)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
	}
	return err
}
