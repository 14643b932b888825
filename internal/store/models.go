package store

import "time"

// Message roles as stored in the DB and returned over the API.
const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
}

type Topic struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

type Lesson struct {
	ID             int64            `json:"id"`
	TopicID        int64            `json:"topicId"`
	Title          string           `json:"title"`
	SkillFocus     string           `json:"skillFocus"`
	ReadingPassage string           `json:"readingPassage"`
	ListeningText  string           `json:"listeningText"`
	VocabItems     []LessonVocab    `json:"vocabItems"`
	Questions      []LessonQuestion `json:"questions"`
	Topic          *Topic           `json:"topic,omitempty"`
}

type LessonVocab struct {
	ID       int64  `json:"id"`
	LessonID int64  `json:"lessonId"`
	Word     string `json:"word"`
	English  string `json:"english"`
	ImageURL string `json:"imageUrl"`
}

type LessonQuestion struct {
	ID            int64  `json:"id"`
	LessonID      int64  `json:"lessonId"`
	Question      string `json:"question"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	CorrectOption string `json:"correctOption"` // "A", "B" or "C"
}

type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	TopicID   int64     `json:"topicId"`
	LessonID  int64     `json:"lessonId"`
	CreatedAt time.Time `json:"createdAt"`
	Topic     *Topic    `json:"topic,omitempty"`
	Lesson    *Lesson   `json:"lesson,omitempty"`
}

type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"sessionId"`
	Role      string    `json:"role"` // RoleUser or RoleAssistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Evaluation is the persisted form of a grading result. The list-valued
// fields of the grader's JSON are serialized into the *JSON columns.
type Evaluation struct {
	ID             int64     `json:"id"`
	SessionID      int64     `json:"sessionId"`
	MessageID      int64     `json:"messageId"`
	Grammar        int       `json:"grammar"`
	Vocabulary     int       `json:"vocabulary"`
	Fluency        int       `json:"fluency"`
	TaskCompletion int       `json:"taskCompletion"`
	CEFR           string    `json:"cefr"`
	EvidenceJSON   string    `json:"evidenceJson"`
	WordBankJSON   string    `json:"wordBankJson"`
	FeedbackJSON   string    `json:"feedbackJson"`
	NextExercise   string    `json:"nextExercise"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Mistake struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	TopicID    int64     `json:"topicId"`
	Word       string    `json:"word"`
	Correction string    `json:"correction"`
	Quote      string    `json:"quote"`
	CreatedAt  time.Time `json:"createdAt"`
}
