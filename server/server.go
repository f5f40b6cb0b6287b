package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/pkg/engine"
	"github.com/docsift/docsift/pkg/extract"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Engine is the subset of the query engine the server needs.
type Engine interface {
	Query(ctx context.Context, question string, opts engine.QueryOptions) (models.QueryResult, error)
	IngestDocument(ctx context.Context, doc models.DocumentInput) (models.IngestReport, error)
	Stats(ctx context.Context) (models.IndexStats, error)
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	engine    Engine
	extractor extract.Extractor
}

func New(eng Engine, extractor extract.Extractor) *Server {
	return &Server{engine: eng, extractor: extractor}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) Start(addr string) error {
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type queryRequest struct {
	Question       string `json:"question"`
	TopK           int    `json:"top_k"`
	UseReranker    *bool  `json:"use_reranker"`
	GenerateAnswer *bool  `json:"generate_answer"`
}

func (q queryRequest) options() engine.QueryOptions {
	opts := engine.DefaultQueryOptions()
	opts.TopK = q.TopK
	if q.UseReranker != nil {
		opts.UseReranker = *q.UseReranker
	}
	if q.GenerateAnswer != nil {
		opts.GenerateAnswer = *q.GenerateAnswer
	}
	return opts
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	result, err := s.engine.Query(r.Context(), req.Question, req.options())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, result)
}

type ingestRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	doc, err := s.extractor.ExtractDocument(req.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	report, err := s.engine.IngestDocument(r.Context(), doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
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
			s.sendMessage(conn, "error", fmt.Sprintf("invalid message: %v", err), nil)
			continue
		}

		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "query":
		s.sendMessage(conn, "status", "searching", nil)
		result, err := s.engine.Query(ctx, msg.Content, engine.DefaultQueryOptions())
		if err != nil {
			s.sendMessage(conn, "error", err.Error(), nil)
			return
		}
		kind := "answer"
		if result.Degraded {
			kind = "degraded_answer"
		}
		s.sendMessage(conn, kind, result.Answer, result)
	case "stats":
		stats, err := s.engine.Stats(ctx)
		if err != nil {
			s.sendMessage(conn, "error", err.Error(), nil)
			return
		}
		s.sendMessage(conn, "stats", "", stats)
	default:
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string, data interface{}) {
	msg := Message{Type: msgType, Content: content, Data: data}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
