package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mapquiz/game/engine"
	"github.com/wricardo/mapquiz/game/region"
	"github.com/wricardo/mapquiz/game/service"
	"github.com/wricardo/mapquiz/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service   service.QuizService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
}

// NewServer creates a new API server. hub may be nil when no browser is served.
func NewServer(quizService service.QuizService, hub *websocket.Hub) *Server {
	return NewServerWithStatic(quizService, hub, "./static/")
}

// NewServerWithStatic creates a server that serves the browser front end from staticDir
func NewServerWithStatic(quizService service.QuizService, hub *websocket.Hub, staticDir string) *Server {
	s := &Server{
		service:   quizService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be registered before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Quiz operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetQuizState).Methods("GET")
	api.HandleFunc("/sessions/{id}/click", s.handleClick).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/regions", s.handleListRegions).Methods("GET")

	// Datasets
	api.HandleFunc("/datasets", s.handleListDatasets).Methods("GET")
	api.HandleFunc("/datasets", s.handleCreateDataset).Methods("POST")
	api.HandleFunc("/datasets/{id}", s.handleGetDataset).Methods("GET")
	api.HandleFunc("/datasets/{id}/geojson", s.handleGetGeoJSON).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	var aerr *region.AdaptationError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrDatasetNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUnknownRegion),
		errors.Is(err, engine.ErrUnknownFeature):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &aerr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset  string `json:"dataset,omitempty"`
		Modality string `json:"modality,omitempty"` // Alias of dataset
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	datasetID := req.Dataset
	if datasetID == "" {
		datasetID = req.Modality
	}
	if datasetID == "" {
		datasetID = r.URL.Query().Get("dataset")
	}

	session, err := s.service.CreateSession(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] created %s dataset=%s regions=%d", session.ID, session.Dataset, session.State.TotalRegions)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default), "score"
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if sortBy == "score" {
			pi, pj := sessions[i].State.ScorePercentage, sessions[j].State.ScorePercentage
			if order == "asc" {
				return pi < pj
			}
			return pi > pj
		}

		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	// Subscribers are keyed by the canonical id, not the spelling in the URL
	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.service.DeleteSession(r.Context(), info.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(info.ID, websocket.EventSessionDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", info.ID),
	})
}

// Quiz Operation Handlers

func (s *Server) handleGetQuizState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetQuizState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Region string `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Region) == "" {
		respondError(w, http.StatusBadRequest, "Region is required")
		return
	}

	result, err := s.service.Click(r.Context(), sessionID, req.Region)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Compact server log for observability
	res := result.Result
	log.Printf("[CLICK] session=%s region=%q target=%q outcome=%s points=%d errors=%d score=%d/%d (%d%%)",
		sessionID, res.Region, res.Target, res.Outcome, res.Points, res.Errors,
		result.State.TotalPoints, result.State.MaxPoints, result.State.ScorePercentage)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[RESET] session=%s dataset=%s target=%q", sessionID, state.Dataset, state.TargetName)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Quiz reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetClickHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	regions, err := s.service.ListRegions(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, regions)
}

// Dataset Handlers

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.service.ListDatasets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := strings.TrimSuffix(mux.Vars(r)["id"], ".json")

	dataset, err := s.service.GetDataset(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"descriptor": dataset.Descriptor,
		"regions":    dataset.Collection.Names(),
		"count":      len(dataset.Collection.Features),
	})
}

// handleGetGeoJSON serves the normalized collection so a renderer can draw it
func (s *Server) handleGetGeoJSON(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["id"]

	dataset, err := s.service.GetDataset(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataset.Collection)
}

func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var descriptor region.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&descriptor); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.SaveDataset(r.Context(), descriptor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Dataset saved successfully",
		"dataset_id": info.DatasetID,
		"dataset":    info,
	})
}

// Unified Sessions Handler

// handleUnifiedSessions summarizes several sessions side by side, selected by
// ?sessionIds=a,b or ?dataset=id
func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		ids := strings.Split(sessionIDs, ",")
		sessions = make([]*service.SessionInfo, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		allSessions, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		datasetID := query.Get("dataset")
		sessions = make([]*service.SessionInfo, 0, len(allSessions))
		for _, session := range allSessions {
			if datasetID == "" || session.Dataset == datasetID {
				sessions = append(sessions, session)
			}
		}
	}

	datasetID := ""
	totalRegions := 0
	if len(sessions) > 0 {
		datasetID = sessions[0].Dataset
		totalRegions = sessions[0].State.TotalRegions
	}

	summaries := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, map[string]interface{}{
			"session_id":       session.ID,
			"dataset":          session.Dataset,
			"found":            len(session.State.CorrectNames),
			"total_points":     session.State.TotalPoints,
			"score_percentage": session.State.ScorePercentage,
			"game_complete":    session.State.GameComplete,
			"created_at":       session.CreatedAt,
			"last_accessed":    session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":       datasetID,
		"total_regions": totalRegions,
		"sessions":      summaries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, info.ID, info.State)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, _ := s.service.ListSessions(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": len(sessions),
	})
}
