package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/fluentia/fluentia-server/internal/core"
	"github.com/fluentia/fluentia-server/internal/store"
	"github.com/go-chi/chi/v5"
)

type APIHandler struct {
	dbStore          *store.SQLiteStore
	chatService      *core.ChatService
	dashboardService *core.DashboardService
}

func NewAPIHandler(db *store.SQLiteStore, cs *core.ChatService, ds *core.DashboardService) *APIHandler {
	return &APIHandler{
		dbStore:          db,
		chatService:      cs,
		dashboardService: ds,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": fieldErrors,
	})
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"app":    "Fluentia API",
		"status": "ok",
		"health": "/api/health",
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.dbStore.Ping(); err != nil {
		log.Printf("Health check failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "Database connection failed",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondValidationError(w, map[string]string{"name": "name is required"})
		return
	}
	if req.Language == "" {
		req.Language = "Spanish"
	}

	user, err := h.dbStore.CreateUser(req.Name, req.Language)
	if err != nil {
		log.Printf("Error creating user %q: %v", req.Name, err)
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) ListTopicsHandler(w http.ResponseWriter, r *http.Request) {
	topics, err := h.dbStore.ListTopics()
	if err != nil {
		log.Printf("Error listing topics: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list topics")
		return
	}
	if topics == nil {
		topics = []store.Topic{}
	}
	respondJSON(w, http.StatusOK, topics)
}

func (h *APIHandler) ListLessonsHandler(w http.ResponseWriter, r *http.Request) {
	// A numeric topicId wins over a topic name; a malformed topicId is
	// treated as absent, matching the original behavior.
	var topicID int64
	if raw := r.URL.Query().Get("topicId"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			topicID = parsed
		}
	}
	topicName := r.URL.Query().Get("topic")

	lessons, err := h.dbStore.ListLessons(topicID, topicName)
	if err != nil {
		log.Printf("Error listing lessons: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list lessons")
		return
	}
	if lessons == nil {
		lessons = []store.Lesson{}
	}
	respondJSON(w, http.StatusOK, lessons)
}

type StartSessionRequest struct {
	UserID   *int64 `json:"userId"`
	TopicID  *int64 `json:"topicId"`
	LessonID *int64 `json:"lessonId"`
}

func (h *APIHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	fieldErrors := map[string]string{}
	if req.UserID == nil {
		fieldErrors["userId"] = "userId is required and must be an integer"
	}
	if req.TopicID == nil {
		fieldErrors["topicId"] = "topicId is required and must be an integer"
	}
	if req.LessonID == nil {
		fieldErrors["lessonId"] = "lessonId is required and must be an integer"
	}
	if len(fieldErrors) > 0 {
		respondValidationError(w, fieldErrors)
		return
	}

	session, err := h.dbStore.CreateSession(*req.UserID, *req.TopicID, *req.LessonID)
	if err != nil {
		log.Printf("Error creating session for user %d: %v", *req.UserID, err)
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

type ChatSendRequest struct {
	SessionID *int64 `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatSendResponse struct {
	AssistantMessage *store.Message         `json:"assistantMessage"`
	EvaluationJSON   *core.EvaluationResult `json:"evaluationJSON"`
}

func (h *APIHandler) ChatSendHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	fieldErrors := map[string]string{}
	if req.SessionID == nil {
		fieldErrors["sessionId"] = "sessionId is required and must be an integer"
	}
	if req.Message == "" {
		fieldErrors["message"] = "message must not be empty"
	}
	if len(fieldErrors) > 0 {
		respondValidationError(w, fieldErrors)
		return
	}

	assistantMsg, evaluation, err := h.chatService.SendMessage(r.Context(), *req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, core.ErrLLMUnreachable):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("Chat turn failed for session %d (request %s): %v", *req.SessionID, GetRequestID(r.Context()), err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, ChatSendResponse{
		AssistantMessage: assistantMsg,
		EvaluationJSON:   evaluation,
	})
}

func (h *APIHandler) SessionMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	messages, err := h.dbStore.ListMessagesBySessionID(id)
	if err != nil {
		log.Printf("Error listing messages for session %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	dashboard, err := h.dashboardService.BuildDashboard(userID)
	if err != nil {
		log.Printf("Error building dashboard for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}
