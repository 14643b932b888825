package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fluentia/fluentia-server/internal/store"
)

const tutorReply = "¡Muy bien! ¿Y dónde está tu maleta?"

// fakeOllama answers the tutor model with canned text and the grader model
// with the provided output, recording every tutor request.
type fakeOllama struct {
	graderOutput  string
	tutorRequests []chatRequest
}

func (f *fakeOllama) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode inference request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var content string
		switch req.Model {
		case "tutor-model":
			f.tutorRequests = append(f.tutorRequests, req)
			content = tutorReply
		case "grader-model":
			content = f.graderOutput
		default:
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: ChatMessage{Role: "assistant", Content: content}})
	}
}

func newTestEnv(t *testing.T, graderOutput string) (*ChatService, *store.SQLiteStore, *fakeOllama) {
	t.Helper()

	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })
	if _, err := dbStore.Seed(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fake := &fakeOllama{graderOutput: graderOutput}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	service := NewChatService(dbStore, NewLLMClient(srv.URL), "tutor-model", "grader-model")
	return service, dbStore, fake
}

func startTestSession(t *testing.T, dbStore *store.SQLiteStore) *store.Session {
	t.Helper()
	user, err := dbStore.CreateUser("Maria", "Spanish")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	topics, err := dbStore.ListTopics()
	if err != nil {
		t.Fatalf("failed to list topics: %v", err)
	}
	lessons, err := dbStore.ListLessons(topics[0].ID, "")
	if err != nil {
		t.Fatalf("failed to list lessons: %v", err)
	}
	session, err := dbStore.CreateSession(user.ID, topics[0].ID, lessons[0].ID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func TestSendMessage_FullTurn(t *testing.T) {
	service, dbStore, _ := newTestEnv(t, validGraderOutput)
	session := startTestSession(t, dbStore)

	assistantMsg, evaluation, err := service.SendMessage(context.Background(), session.ID, "Hola, estoy en el aeropuerto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assistantMsg.Content != tutorReply {
		t.Fatalf("unexpected assistant content %q", assistantMsg.Content)
	}
	if assistantMsg.Role != store.RoleAssistant {
		t.Fatalf("unexpected assistant role %q", assistantMsg.Role)
	}
	if evaluation.CEFR != "A2" {
		t.Fatalf("unexpected evaluation: %+v", evaluation)
	}

	messages, err := dbStore.ListMessagesBySessionID(session.ID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(messages))
	}
	if messages[0].Role != store.RoleUser || messages[1].Role != store.RoleAssistant {
		t.Fatalf("unexpected roles: %q, %q", messages[0].Role, messages[1].Role)
	}

	evals, err := dbStore.ListEvaluationsBySessionID(session.ID)
	if err != nil {
		t.Fatalf("failed to list evaluations: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("expected 1 evaluation, got %d", len(evals))
	}
	if evals[0].MessageID != messages[0].ID {
		t.Fatalf("evaluation should reference the user message, got %d want %d", evals[0].MessageID, messages[0].ID)
	}

	mistakes, err := dbStore.RecentMistakesByUserID(session.UserID, 20)
	if err != nil {
		t.Fatalf("failed to list mistakes: %v", err)
	}
	if len(mistakes) != 1 || mistakes[0].Word != "estoy nerviosa" {
		t.Fatalf("unexpected mistakes: %+v", mistakes)
	}
	if mistakes[0].Quote != "Hola, estoy en el aeropuerto" {
		t.Fatalf("mistake quote should be the learner message, got %q", mistakes[0].Quote)
	}
}

func TestSendMessage_SecondTurnCarriesHistory(t *testing.T) {
	service, dbStore, fake := newTestEnv(t, validGraderOutput)
	session := startTestSession(t, dbStore)

	ctx := context.Background()
	if _, _, err := service.SendMessage(ctx, session.ID, "Hola, estoy en el aeropuerto"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if _, _, err := service.SendMessage(ctx, session.ID, "Mi vuelo está a tiempo"); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}

	if len(fake.tutorRequests) != 2 {
		t.Fatalf("expected 2 tutor calls, got %d", len(fake.tutorRequests))
	}
	second := fake.tutorRequests[1].Messages
	// system + first user + first assistant + new user message
	if len(second) != 4 {
		t.Fatalf("expected 4 messages in second tutor call, got %d: %+v", len(second), second)
	}
	if second[0].Role != "system" {
		t.Fatalf("expected system prompt first, got %q", second[0].Role)
	}
	if second[1].Content != "Hola, estoy en el aeropuerto" || second[1].Role != "user" {
		t.Fatalf("expected first user turn in history, got %+v", second[1])
	}
	if second[2].Content != tutorReply || second[2].Role != "assistant" {
		t.Fatalf("expected first assistant turn in history, got %+v", second[2])
	}
	if second[3].Content != "Mi vuelo está a tiempo" {
		t.Fatalf("expected new message last, got %+v", second[3])
	}
	if !strings.Contains(second[0].Content, "Stay on topic: Travel.") {
		t.Fatalf("system prompt should carry the session topic:\n%s", second[0].Content)
	}
}

func TestSendMessage_HistoryWindowBounded(t *testing.T) {
	service, dbStore, fake := newTestEnv(t, validGraderOutput)
	session := startTestSession(t, dbStore)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if _, _, err := service.SendMessage(ctx, session.ID, "Otra frase más"); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	last := fake.tutorRequests[len(fake.tutorRequests)-1].Messages
	// system + at most 8 history messages + new user message
	if len(last) != 10 {
		t.Fatalf("expected bounded history of 10 messages, got %d", len(last))
	}
}

func TestSendMessage_UnknownSession(t *testing.T) {
	service, _, _ := newTestEnv(t, validGraderOutput)

	_, _, err := service.SendMessage(context.Background(), 999999, "Hola")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSendMessage_GraderFailureLeavesMessages(t *testing.T) {
	service, dbStore, _ := newTestEnv(t, "I will not produce JSON today.")
	session := startTestSession(t, dbStore)

	_, _, err := service.SendMessage(context.Background(), session.ID, "Hola, estoy en el aeropuerto")
	if err == nil {
		t.Fatalf("expected grader validation failure")
	}
	if errors.Is(err, ErrLLMUnreachable) {
		t.Fatalf("validation failure must not map to unreachable: %v", err)
	}

	// No rollback: the message pair stays, with no evaluation row.
	messages, _ := dbStore.ListMessagesBySessionID(session.ID)
	if len(messages) != 2 {
		t.Fatalf("expected orphaned message pair to remain, got %d messages", len(messages))
	}
	evals, _ := dbStore.ListEvaluationsBySessionID(session.ID)
	if len(evals) != 0 {
		t.Fatalf("expected no evaluation after grading failure, got %d", len(evals))
	}
}

func TestSendMessage_UnreachableInference(t *testing.T) {
	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })
	if _, err := dbStore.Seed(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	session := startTestSession(t, dbStore)

	// Point at a port with no listener.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	service := NewChatService(dbStore, NewLLMClient(url), "tutor-model", "grader-model")
	_, _, err = service.SendMessage(context.Background(), session.ID, "Hola")
	if !errors.Is(err, ErrLLMUnreachable) {
		t.Fatalf("expected ErrLLMUnreachable, got %v", err)
	}
}
