package core

import (
	"fmt"

	"github.com/fluentia/fluentia-server/internal/store"
)

// recentMistakesLimit bounds both the mistake list and the word bank; the
// word bank dedups within this window, not over the full history.
const recentMistakesLimit = 20

type CEFRPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	CEFR  string `json:"cefr"`
	Score int    `json:"score"` // sum of the four sub-scores
}

type DashboardMistake struct {
	Word       string `json:"word"`
	Correction string `json:"correction"`
	Quote      string `json:"quote"`
}

type Dashboard struct {
	TopicCompletion map[string]int     `json:"topicCompletion"`
	CEFRTrend       []CEFRPoint        `json:"cefrTrend"`
	CommonMistakes  []DashboardMistake `json:"commonMistakes"`
	WordBank        []string           `json:"wordBank"`
}

type DashboardService struct {
	dbStore *store.SQLiteStore
}

func NewDashboardService(db *store.SQLiteStore) *DashboardService {
	return &DashboardService{dbStore: db}
}

// BuildDashboard aggregates a user's progress: sessions per topic, the
// chronological CEFR trend across all evaluations, and recent mistakes.
func (s *DashboardService) BuildDashboard(userID int64) (*Dashboard, error) {
	sessions, err := s.dbStore.ListSessionsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	dashboard := &Dashboard{
		TopicCompletion: map[string]int{},
		CEFRTrend:       []CEFRPoint{},
		CommonMistakes:  []DashboardMistake{},
		WordBank:        []string{},
	}

	for _, session := range sessions {
		if session.Topic != nil {
			dashboard.TopicCompletion[session.Topic.Name]++
		}

		evals, err := s.dbStore.ListEvaluationsBySessionID(session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load evaluations: %w", err)
		}
		for _, eval := range evals {
			dashboard.CEFRTrend = append(dashboard.CEFRTrend, CEFRPoint{
				Date:  eval.CreatedAt.Format("2006-01-02"),
				CEFR:  eval.CEFR,
				Score: eval.Grammar + eval.Vocabulary + eval.Fluency + eval.TaskCompletion,
			})
		}
	}

	mistakes, err := s.dbStore.RecentMistakesByUserID(userID, recentMistakesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load mistakes: %w", err)
	}

	seen := make(map[string]bool)
	for _, m := range mistakes {
		dashboard.CommonMistakes = append(dashboard.CommonMistakes, DashboardMistake{
			Word:       m.Word,
			Correction: m.Correction,
			Quote:      m.Quote,
		})
		if !seen[m.Word] && len(dashboard.WordBank) < recentMistakesLimit {
			seen[m.Word] = true
			dashboard.WordBank = append(dashboard.WordBank, m.Word)
		}
	}

	return dashboard, nil
}
