package handler

import (
	"encoding/json"
	"net/http"

	"paperpal/internal/document/model"
	"paperpal/internal/document/service"
	"paperpal/middleware"
	"paperpal/pkg/logger"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: svc}
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.GetDocument(docID)
	if err == service.ErrNotFound {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	} else if err != nil {
		logger.Sugar.Errorf("Error fetching document %s: %v", docID, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.DocumentResponse{Success: true, Document: doc})
}

func (h *DocumentHandler) RegisterDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.RegisterDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	docID, err := h.Service.RegisterDocument(userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to register document: %v", err)
		http.Error(w, "Failed to register document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.RegisterDocResponse{DocID: docID})
}
