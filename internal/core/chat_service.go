package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fluentia/fluentia-server/internal/store"
)

// ErrSessionNotFound is returned when a chat turn targets an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// historyWindow bounds how many prior messages are replayed to the tutor.
const historyWindow = 8

type ChatService struct {
	dbStore     *store.SQLiteStore
	llm         *LLMClient
	tutorModel  string
	graderModel string
}

func NewChatService(db *store.SQLiteStore, llm *LLMClient, tutorModel, graderModel string) *ChatService {
	return &ChatService{
		dbStore:     db,
		llm:         llm,
		tutorModel:  tutorModel,
		graderModel: graderModel,
	}
}

// SendMessage runs one practice turn: persist the learner's message, get the
// tutor's reply, grade the learner's message with the grading model, and
// persist evaluation and mistakes. There is no transaction around the steps;
// rows persisted before a failing step stay persisted.
func (s *ChatService) SendMessage(ctx context.Context, sessionID int64, content string) (*store.Message, *EvaluationResult, error) {
	session, err := s.dbStore.GetSessionByID(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if session.Topic == nil || session.Lesson == nil {
		return nil, nil, fmt.Errorf("session %d has no topic or lesson", sessionID)
	}

	history, err := s.dbStore.LastMessagesBySessionID(sessionID, historyWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load message history: %w", err)
	}

	userMsg := store.Message{
		SessionID: sessionID,
		Role:      store.RoleUser,
		Content:   content,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store user message: %w", err)
	}

	tutorMessages := make([]ChatMessage, 0, len(history)+2)
	tutorMessages = append(tutorMessages, ChatMessage{
		Role:    "system",
		Content: TutorSystemPrompt(session.Topic.Name, session.Lesson.SkillFocus, session.Topic.Language),
	})
	for _, msg := range history {
		role := "assistant"
		if msg.Role == store.RoleUser {
			role = "user"
		}
		tutorMessages = append(tutorMessages, ChatMessage{Role: role, Content: msg.Content})
	}
	tutorMessages = append(tutorMessages, ChatMessage{Role: "user", Content: content})

	assistantContent, err := s.llm.Chat(ctx, s.tutorModel, tutorMessages)
	if err != nil {
		return nil, nil, err
	}

	assistantMsg := store.Message{
		SessionID: sessionID,
		Role:      store.RoleAssistant,
		Content:   assistantContent,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	// The grader sees only the original learner message, not the reply.
	graderMessages := []ChatMessage{
		{Role: "system", Content: GraderPrompt(session.Topic.Name, session.Lesson.SkillFocus, content)},
		{Role: "user", Content: content},
	}
	graderOutput, err := s.llm.Chat(ctx, s.graderModel, graderMessages)
	if err != nil {
		return nil, nil, err
	}

	evaluation, err := ParseEvaluation(graderOutput)
	if err != nil {
		return nil, nil, err
	}

	if err := s.persistEvaluation(session, &userMsg, evaluation); err != nil {
		return nil, nil, err
	}

	return &assistantMsg, evaluation, nil
}

func (s *ChatService) persistEvaluation(session *store.Session, userMsg *store.Message, evaluation *EvaluationResult) error {
	evidenceJSON, err := json.Marshal(evaluation.Evidence)
	if err != nil {
		return fmt.Errorf("failed to serialize evidence: %w", err)
	}
	wordBankJSON, err := json.Marshal(evaluation.WordBank)
	if err != nil {
		return fmt.Errorf("failed to serialize word bank: %w", err)
	}
	feedbackJSON, err := json.Marshal(evaluation.FeedbackBullets)
	if err != nil {
		return fmt.Errorf("failed to serialize feedback: %w", err)
	}

	eval := store.Evaluation{
		SessionID:      session.ID,
		MessageID:      userMsg.ID,
		Grammar:        evaluation.Grammar,
		Vocabulary:     evaluation.Vocabulary,
		Fluency:        evaluation.Fluency,
		TaskCompletion: evaluation.TaskCompletion,
		CEFR:           evaluation.CEFR,
		EvidenceJSON:   string(evidenceJSON),
		WordBankJSON:   string(wordBankJSON),
		FeedbackJSON:   string(feedbackJSON),
		NextExercise:   evaluation.NextExercise,
	}
	if err := s.dbStore.CreateEvaluation(&eval); err != nil {
		return fmt.Errorf("failed to store evaluation: %w", err)
	}

	var mistakes []store.Mistake
	for _, item := range evaluation.Evidence {
		if strings.TrimSpace(item.MistakeQuote) == "" {
			continue
		}
		mistakes = append(mistakes, store.Mistake{
			UserID:     session.UserID,
			TopicID:    session.TopicID,
			Word:       item.MistakeQuote,
			Correction: item.Correction,
			Quote:      userMsg.Content,
		})
	}
	if len(mistakes) > 0 {
		if err := s.dbStore.CreateMistakes(mistakes); err != nil {
			return fmt.Errorf("failed to store mistakes: %w", err)
		}
		log.Printf("Recorded %d mistakes for user %d in session %d", len(mistakes), session.UserID, session.ID)
	}
	return nil
}
