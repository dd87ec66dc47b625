package router

import (
	"database/sql"
	"net/http"

	"paperpal/internal/collab"
	collabservice "paperpal/internal/collab/service"
	"paperpal/internal/collab/store"
	dochandler "paperpal/internal/document"
	"paperpal/internal/document/repository"
	docservice "paperpal/internal/document/service"
	"paperpal/internal/metrics"
	"paperpal/middleware"
	"paperpal/socket"
)

// Setup wires the HTTP surface: the action-dispatch endpoint, the push
// stream, the document metadata collaborator, and metrics.
func Setup(db *sql.DB, st store.SessionStore, hub *socket.Hub, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware

	svc := collabservice.NewCollabService(st, hub)
	collabHandler := collab.NewHandler(svc, m)
	mux.Handle("/api/collaboration", auth(http.HandlerFunc(collabHandler.Dispatch)))

	mux.Handle("/api/collaboration/stream", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})))

	docRepo := repository.NewDocumentRepository(db)
	docSvc := docservice.NewDocumentService(docRepo)
	docHandler := dochandler.NewDocumentHandler(docSvc)
	mux.Handle("/api/documents", auth(http.HandlerFunc(docHandler.GetDocument)))
	mux.Handle("/api/documents/register", auth(http.HandlerFunc(docHandler.RegisterDocument)))

	mux.Handle("/metrics", m.Handler())

	return middleware.CORSMiddleware(mux)
}
