package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
	"github.com/xhad/pdfrag/pkg/ingest"
	"github.com/xhad/pdfrag/pkg/rag"
)

// User-facing messages for service faults. The specific error kind is
// kept in the logs only.
const (
	serviceUnavailableMsg  = "Service unavailable, please check configuration"
	databaseUnavailableMsg = "The application can't connect to the database. Please check database configuration"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the websocket frame for the Q&A loop.
type Message struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
}

type Server struct {
	engine       *rag.Engine
	orchestrator *ingest.Orchestrator
	store        types.VectorStore
	maxUploadMB  int64
}

func New(engine *rag.Engine, orchestrator *ingest.Orchestrator, store types.VectorStore) *Server {
	return &Server{
		engine:       engine,
		orchestrator: orchestrator,
		store:        store,
		maxUploadMB:  32,
	}
}

// Handler wires up the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(s.maxUploadMB << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"pdf": "Please upload a PDF"},
		})
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"pdf": "Please upload a PDF"},
		})
		return
	}
	defer file.Close()

	doc, err := s.orchestrator.Ingest(r.Context(), file, header.Filename)
	if err != nil {
		log.Printf("ingest %s failed: %v", header.Filename, err)

		if doc.Status == models.StatusFailed {
			// The file and its record exist but vectorization broke:
			// surface a distinct warning instead of a generic success.
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"name":    doc.Filename,
				"url":     doc.URL,
				"warning": "The PDF was stored but could not be vectorized. Upload it again to retry.",
			})
			return
		}

		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name": doc.Filename,
		"url":  doc.URL,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Filename string `json:"filename"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"body": "invalid request body"},
		})
		return
	}

	// Validation happens before any external service is contacted.
	if req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"filename": "Please upload a PDF"},
		})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"question": "Please enter a question"},
		})
		return
	}

	answer, err := s.engine.Answer(r.Context(), req.Question, req.Filename)
	if err != nil {
		log.Printf("query on %s failed: %v", req.Filename, err)
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"answer": answer})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Search string `json:"search"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Search == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"search": "Please enter a search term"},
		})
		return
	}

	result, err := s.engine.Search(r.Context(), req.Search, 0)
	if err != nil {
		log.Printf("similarity search failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"reason":  databaseUnavailableMsg,
		})
		return
	}

	results := result.Results
	if results == nil {
		results = []models.SimilarityResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"embeddings": result.Embedding,
		"results":    results,
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		log.Printf("listing documents failed: %v", err)
		s.writeServiceError(w, err)
		return
	}

	list := make([]map[string]string, 0, len(docs))
	for _, doc := range docs {
		list = append(list, map[string]string{
			"name":   doc.Filename,
			"url":    doc.URL,
			"status": doc.Status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": list})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		if msg.Type != "question" || msg.Content == "" {
			s.sendMessage(conn, Message{Type: "error", Content: "expected a question message"})
			continue
		}

		answer, err := s.engine.Answer(r.Context(), msg.Content, msg.Filename)
		if err != nil {
			log.Printf("websocket question failed: %v", err)
			s.sendMessage(conn, Message{Type: "error", Content: serviceUnavailableMsg})
			continue
		}

		s.sendMessage(conn, Message{Type: "answer", Content: answer})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, types.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"request": err.Error()},
		})
		return
	}

	writeJSON(w, status, map[string]interface{}{"error": serviceUnavailableMsg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
