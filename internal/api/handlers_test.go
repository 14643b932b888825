package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fluentia/fluentia-server/internal/core"
	"github.com/fluentia/fluentia-server/internal/store"
)

const graderOutput = `{
  "grammar": 3, "vocabulary": 3, "fluency": 3, "taskCompletion": 4,
  "cefr": "A2",
  "feedbackBullets": ["Solid use of estar.", "Try longer sentences."],
  "evidence": [{"mistakeQuote": "un poco nervioso", "correction": "un poco nerviosa"}],
  "wordBank": ["aeropuerto"],
  "nextExercise": "Describe your flight."
}`

func newTestServer(t *testing.T, ollamaURL string) *httptest.Server {
	t.Helper()

	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })
	if _, err := dbStore.Seed(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	chatService := core.NewChatService(dbStore, core.NewLLMClient(ollamaURL), "tutor-model", "grader-model")
	dashboardService := core.NewDashboardService(dbStore)
	handler := NewAPIHandler(dbStore, chatService, dashboardService)

	srv := httptest.NewServer(NewRouter(handler, "http://localhost:5173"))
	t.Cleanup(srv.Close)
	return srv
}

func newFakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode inference request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content := "¡Hola! ¿Cómo va tu viaje?"
		if req.Model == "grader-model" {
			content = graderOutput
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s response: %v", url, err)
		}
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	var body map[string]bool
	resp := getJSON(t, srv.URL+"/api/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !body["ok"] {
		t.Fatalf("expected ok:true, got %v", body)
	}
}

func TestCreateUserHandler_Validation(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	resp := postJSON(t, srv.URL+"/api/users", `{"language":"Spanish"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/users", `{"name":"Maria"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var user store.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.Language != "Spanish" {
		t.Fatalf("expected default language Spanish, got %q", user.Language)
	}
}

func TestStartSessionHandler_Validation(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	resp := postJSON(t, srv.URL+"/api/session/start", `{"userId":1,"topicId":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing lessonId, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/session/start", `{"userId":"one","topicId":1,"lessonId":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-integer userId, got %d", resp.StatusCode)
	}
}

func TestSessionMessagesHandler_BadID(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	resp := getJSON(t, srv.URL+"/api/session/abc/messages", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", resp.StatusCode)
	}
}

func TestDashboardHandler_BadID(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	resp := getJSON(t, srv.URL+"/api/dashboard/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric user id, got %d", resp.StatusCode)
	}
}

func TestChatSendHandler_UnknownSession(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)

	resp := postJSON(t, srv.URL+"/api/chat/send", `{"sessionId":999999,"message":"Hola"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestChatSendHandler_InferenceUnreachable(t *testing.T) {
	// An inference URL with no listener behind it.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	srv := newTestServer(t, deadURL)

	sessionID := startSessionViaAPI(t, srv)
	resp := postJSON(t, srv.URL+"/api/chat/send", fmt.Sprintf(`{"sessionId":%d,"message":"Hola"}`, sessionID))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if !strings.Contains(body["error"], "unreachable") {
		t.Fatalf("expected error naming the inference service as unreachable, got %q", body["error"])
	}
}

// startSessionViaAPI walks the onboarding flow: create user, pick the Travel
// topic, fetch its lessons, start a session with the first one.
func startSessionViaAPI(t *testing.T, srv *httptest.Server) int64 {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/users", `{"name":"Maria","language":"Spanish"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating user, got %d", resp.StatusCode)
	}
	var user store.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}

	var topics []store.Topic
	getJSON(t, srv.URL+"/api/topics", &topics)
	var travel *store.Topic
	for i := range topics {
		if topics[i].Name == "Travel" {
			travel = &topics[i]
		}
	}
	if travel == nil {
		t.Fatalf("Travel topic not found in %+v", topics)
	}

	var lessons []store.Lesson
	getJSON(t, fmt.Sprintf("%s/api/lessons?topicId=%d", srv.URL, travel.ID), &lessons)
	if len(lessons) == 0 {
		t.Fatalf("expected lessons for Travel topic")
	}

	resp = postJSON(t, srv.URL+"/api/session/start",
		fmt.Sprintf(`{"userId":%d,"topicId":%d,"lessonId":%d}`, user.ID, travel.ID, lessons[0].ID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 starting session, got %d", resp.StatusCode)
	}
	var session store.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return session.ID
}

func TestChatSendFlow(t *testing.T) {
	srv := newTestServer(t, newFakeOllama(t).URL)
	sessionID := startSessionViaAPI(t, srv)

	resp := postJSON(t, srv.URL+"/api/chat/send",
		fmt.Sprintf(`{"sessionId":%d,"message":"Hola, estoy en el aeropuerto"}`, sessionID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body ChatSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	if body.AssistantMessage == nil || body.AssistantMessage.Content == "" {
		t.Fatalf("expected non-empty assistant message, got %+v", body.AssistantMessage)
	}
	if body.EvaluationJSON == nil || body.EvaluationJSON.CEFR != "A2" {
		t.Fatalf("expected validated evaluation, got %+v", body.EvaluationJSON)
	}
	for _, score := range []int{body.EvaluationJSON.Grammar, body.EvaluationJSON.Vocabulary, body.EvaluationJSON.Fluency, body.EvaluationJSON.TaskCompletion} {
		if score < 0 || score > 5 {
			t.Fatalf("score out of range: %d", score)
		}
	}

	// Transcript shows both turns, oldest first.
	var messages []store.Message
	getJSON(t, fmt.Sprintf("%s/api/session/%d/messages", srv.URL, sessionID), &messages)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != store.RoleUser || messages[1].Role != store.RoleAssistant {
		t.Fatalf("unexpected transcript roles: %+v", messages)
	}

	// Dashboard picks up the graded turn and the recorded mistake.
	var dashboard core.Dashboard
	getJSON(t, fmt.Sprintf("%s/api/dashboard/%d", srv.URL, 1), &dashboard)
	if dashboard.TopicCompletion["Travel"] != 1 {
		t.Fatalf("unexpected topic completion: %+v", dashboard.TopicCompletion)
	}
	if len(dashboard.CommonMistakes) != 1 || dashboard.CommonMistakes[0].Word != "un poco nervioso" {
		t.Fatalf("unexpected mistakes: %+v", dashboard.CommonMistakes)
	}
	if len(dashboard.WordBank) != 1 {
		t.Fatalf("unexpected word bank: %+v", dashboard.WordBank)
	}
}
