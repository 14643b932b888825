package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping is the health-check probe for the store connection.
func (s *SQLiteStore) Ping() error {
	var one int
	return s.db.QueryRow("SELECT 1").Scan(&one)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        language TEXT NOT NULL DEFAULT 'Spanish',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS topics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT UNIQUE NOT NULL,
        language TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS lessons (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        topic_id INTEGER NOT NULL,
        title TEXT NOT NULL,
        skill_focus TEXT NOT NULL,
        reading_passage TEXT NOT NULL,
        listening_text TEXT NOT NULL,
        FOREIGN KEY (topic_id) REFERENCES topics (id)
    );

    CREATE TABLE IF NOT EXISTS lesson_vocab_items (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        lesson_id INTEGER NOT NULL,
        word TEXT NOT NULL,
        english TEXT NOT NULL,
        image_url TEXT NOT NULL,
        FOREIGN KEY (lesson_id) REFERENCES lessons (id)
    );

    CREATE TABLE IF NOT EXISTS lesson_questions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        lesson_id INTEGER NOT NULL,
        question TEXT NOT NULL,
        option_a TEXT NOT NULL,
        option_b TEXT NOT NULL,
        option_c TEXT NOT NULL,
        correct_option TEXT NOT NULL CHECK (correct_option IN ('A', 'B', 'C')),
        FOREIGN KEY (lesson_id) REFERENCES lessons (id)
    );

    CREATE TABLE IF NOT EXISTS sessions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        topic_id INTEGER NOT NULL,
        lesson_id INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (topic_id) REFERENCES topics (id),
        FOREIGN KEY (lesson_id) REFERENCES lessons (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id INTEGER NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('USER', 'ASSISTANT')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE TABLE IF NOT EXISTS evaluations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id INTEGER NOT NULL,
        message_id INTEGER NOT NULL,
        grammar INTEGER NOT NULL,
        vocabulary INTEGER NOT NULL,
        fluency INTEGER NOT NULL,
        task_completion INTEGER NOT NULL,
        cefr TEXT NOT NULL,
        evidence_json TEXT NOT NULL,
        word_bank_json TEXT NOT NULL,
        feedback_json TEXT NOT NULL,
        next_exercise TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES sessions (id),
        FOREIGN KEY (message_id) REFERENCES messages (id)
    );

    CREATE TABLE IF NOT EXISTS mistakes (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        topic_id INTEGER NOT NULL,
        word TEXT NOT NULL,
        correction TEXT NOT NULL,
        quote TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (topic_id) REFERENCES topics (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(name, language string) (*User, error) {
	now := time.Now()
	res, err := s.db.Exec("INSERT INTO users (name, language, created_at) VALUES (?, ?, ?)", name, language, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return &User{ID: id, Name: name, Language: language, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, name, language, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Language, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Topic methods

func (s *SQLiteStore) CreateTopic(name, language string) (*Topic, error) {
	res, err := s.db.Exec("INSERT INTO topics (name, language) VALUES (?, ?)", name, language)
	if err != nil {
		return nil, fmt.Errorf("failed to insert topic: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Topic{ID: id, Name: name, Language: language}, nil
}

func (s *SQLiteStore) ListTopics() ([]Topic, error) {
	rows, err := s.db.Query("SELECT id, name, language FROM topics ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var topic Topic
		if err := rows.Scan(&topic.ID, &topic.Name, &topic.Language); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (s *SQLiteStore) getTopicByID(id int64) (*Topic, error) {
	var topic Topic
	err := s.db.QueryRow("SELECT id, name, language FROM topics WHERE id = ?", id).
		Scan(&topic.ID, &topic.Name, &topic.Language)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query topic: %w", err)
	}
	return &topic, nil
}

func (s *SQLiteStore) CountTopics() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return count, nil
}

// Lesson methods

func (s *SQLiteStore) CreateLesson(lesson *Lesson) error {
	res, err := s.db.Exec(
		"INSERT INTO lessons (topic_id, title, skill_focus, reading_passage, listening_text) VALUES (?, ?, ?, ?, ?)",
		lesson.TopicID, lesson.Title, lesson.SkillFocus, lesson.ReadingPassage, lesson.ListeningText)
	if err != nil {
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	lesson.ID, _ = res.LastInsertId()

	for i := range lesson.VocabItems {
		item := &lesson.VocabItems[i]
		item.LessonID = lesson.ID
		res, err := s.db.Exec(
			"INSERT INTO lesson_vocab_items (lesson_id, word, english, image_url) VALUES (?, ?, ?, ?)",
			item.LessonID, item.Word, item.English, item.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert vocab item: %w", err)
		}
		item.ID, _ = res.LastInsertId()
	}

	for i := range lesson.Questions {
		q := &lesson.Questions[i]
		q.LessonID = lesson.ID
		res, err := s.db.Exec(
			"INSERT INTO lesson_questions (lesson_id, question, option_a, option_b, option_c, correct_option) VALUES (?, ?, ?, ?, ?, ?)",
			q.LessonID, q.Question, q.OptionA, q.OptionB, q.OptionC, q.CorrectOption)
		if err != nil {
			return fmt.Errorf("failed to insert lesson question: %w", err)
		}
		q.ID, _ = res.LastInsertId()
	}
	return nil
}

// ListLessons returns lessons with their nested vocab items, questions and
// topic. A non-zero topicID filters by id; otherwise a non-empty topicName
// filters by name; otherwise all lessons are returned.
func (s *SQLiteStore) ListLessons(topicID int64, topicName string) ([]Lesson, error) {
	query := `
        SELECT l.id, l.topic_id, l.title, l.skill_focus, l.reading_passage, l.listening_text,
               t.id, t.name, t.language
        FROM lessons l
        JOIN topics t ON t.id = l.topic_id`
	var args []interface{}
	if topicID != 0 {
		query += " WHERE l.topic_id = ?"
		args = append(args, topicID)
	} else if topicName != "" {
		query += " WHERE t.name = ?"
		args = append(args, topicName)
	}
	query += " ORDER BY l.id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []Lesson
	for rows.Next() {
		var lesson Lesson
		var topic Topic
		if err := rows.Scan(&lesson.ID, &lesson.TopicID, &lesson.Title, &lesson.SkillFocus,
			&lesson.ReadingPassage, &lesson.ListeningText,
			&topic.ID, &topic.Name, &topic.Language); err != nil {
			return nil, fmt.Errorf("failed to scan lesson row: %w", err)
		}
		lesson.Topic = &topic
		lessons = append(lessons, lesson)
	}

	for i := range lessons {
		if err := s.loadLessonChildren(&lessons[i]); err != nil {
			return nil, err
		}
	}
	return lessons, nil
}

func (s *SQLiteStore) getLessonByID(id int64) (*Lesson, error) {
	var lesson Lesson
	err := s.db.QueryRow(
		"SELECT id, topic_id, title, skill_focus, reading_passage, listening_text FROM lessons WHERE id = ?", id).
		Scan(&lesson.ID, &lesson.TopicID, &lesson.Title, &lesson.SkillFocus,
			&lesson.ReadingPassage, &lesson.ListeningText)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lesson: %w", err)
	}
	return &lesson, nil
}

func (s *SQLiteStore) loadLessonChildren(lesson *Lesson) error {
	vocabRows, err := s.db.Query(
		"SELECT id, lesson_id, word, english, image_url FROM lesson_vocab_items WHERE lesson_id = ? ORDER BY id ASC",
		lesson.ID)
	if err != nil {
		return fmt.Errorf("failed to query vocab items: %w", err)
	}
	defer vocabRows.Close()
	lesson.VocabItems = []LessonVocab{}
	for vocabRows.Next() {
		var item LessonVocab
		if err := vocabRows.Scan(&item.ID, &item.LessonID, &item.Word, &item.English, &item.ImageURL); err != nil {
			return fmt.Errorf("failed to scan vocab row: %w", err)
		}
		lesson.VocabItems = append(lesson.VocabItems, item)
	}

	questionRows, err := s.db.Query(
		"SELECT id, lesson_id, question, option_a, option_b, option_c, correct_option FROM lesson_questions WHERE lesson_id = ? ORDER BY id ASC",
		lesson.ID)
	if err != nil {
		return fmt.Errorf("failed to query lesson questions: %w", err)
	}
	defer questionRows.Close()
	lesson.Questions = []LessonQuestion{}
	for questionRows.Next() {
		var q LessonQuestion
		if err := questionRows.Scan(&q.ID, &q.LessonID, &q.Question, &q.OptionA, &q.OptionB, &q.OptionC, &q.CorrectOption); err != nil {
			return fmt.Errorf("failed to scan question row: %w", err)
		}
		lesson.Questions = append(lesson.Questions, q)
	}
	return nil
}

// Session methods

func (s *SQLiteStore) CreateSession(userID, topicID, lessonID int64) (*Session, error) {
	now := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO sessions (user_id, topic_id, lesson_id, created_at) VALUES (?, ?, ?, ?)",
		userID, topicID, lessonID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSessionByID(id)
}

// GetSessionByID loads a session with its topic and lesson (including the
// lesson's vocab and questions). Returns nil when the session does not exist.
func (s *SQLiteStore) GetSessionByID(id int64) (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		"SELECT id, user_id, topic_id, lesson_id, created_at FROM sessions WHERE id = ?", id).
		Scan(&session.ID, &session.UserID, &session.TopicID, &session.LessonID, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	topic, err := s.getTopicByID(session.TopicID)
	if err != nil {
		return nil, err
	}
	session.Topic = topic

	lesson, err := s.getLessonByID(session.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson != nil {
		if err := s.loadLessonChildren(lesson); err != nil {
			return nil, err
		}
	}
	session.Lesson = lesson
	return &session, nil
}

func (s *SQLiteStore) ListSessionsByUserID(userID int64) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.user_id, s.topic_id, s.lesson_id, s.created_at, t.id, t.name, t.language
         FROM sessions s
         JOIN topics t ON t.id = s.topic_id
         WHERE s.user_id = ?
         ORDER BY s.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var topic Topic
		if err := rows.Scan(&session.ID, &session.UserID, &session.TopicID, &session.LessonID,
			&session.CreatedAt, &topic.ID, &topic.Name, &topic.Language); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		session.Topic = &topic
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.CreatedAt = time.Now()

	stmt, err := s.db.Prepare("INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListMessagesBySessionID(sessionID int64) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// LastMessagesBySessionID returns the most recent n messages of a session
// in chronological (oldest-first) order.
func (s *SQLiteStore) LastMessagesBySessionID(sessionID int64, n int) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}

	// Reverse from newest-first to oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Evaluation methods

func (s *SQLiteStore) CreateEvaluation(eval *Evaluation) error {
	eval.CreatedAt = time.Now()

	stmt, err := s.db.Prepare(`INSERT INTO evaluations
        (session_id, message_id, grammar, vocabulary, fluency, task_completion, cefr,
         evidence_json, word_bank_json, feedback_json, next_exercise, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare evaluation insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(eval.SessionID, eval.MessageID, eval.Grammar, eval.Vocabulary,
		eval.Fluency, eval.TaskCompletion, eval.CEFR,
		eval.EvidenceJSON, eval.WordBankJSON, eval.FeedbackJSON, eval.NextExercise, eval.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute evaluation insert: %w", err)
	}
	eval.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListEvaluationsBySessionID(sessionID int64) ([]Evaluation, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, message_id, grammar, vocabulary, fluency, task_completion, cefr,
                evidence_json, word_bank_json, feedback_json, next_exercise, created_at
         FROM evaluations WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.ID, &e.SessionID, &e.MessageID, &e.Grammar, &e.Vocabulary,
			&e.Fluency, &e.TaskCompletion, &e.CEFR,
			&e.EvidenceJSON, &e.WordBankJSON, &e.FeedbackJSON, &e.NextExercise, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation row: %w", err)
		}
		evals = append(evals, e)
	}
	return evals, nil
}

// Mistake methods

func (s *SQLiteStore) CreateMistakes(mistakes []Mistake) error {
	if len(mistakes) == 0 {
		return nil
	}
	stmt, err := s.db.Prepare(
		"INSERT INTO mistakes (user_id, topic_id, word, correction, quote, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare mistake insert: %w", err)
	}
	defer stmt.Close()

	for i := range mistakes {
		m := &mistakes[i]
		m.CreatedAt = time.Now()
		res, err := stmt.Exec(m.UserID, m.TopicID, m.Word, m.Correction, m.Quote, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to execute mistake insert: %w", err)
		}
		m.ID, _ = res.LastInsertId()
	}
	return nil
}

// RecentMistakesByUserID returns the newest mistakes first, capped at limit.
func (s *SQLiteStore) RecentMistakesByUserID(userID int64, limit int) ([]Mistake, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, topic_id, word, correction, quote, created_at FROM mistakes WHERE user_id = ? ORDER BY id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mistakes: %w", err)
	}
	defer rows.Close()

	var mistakes []Mistake
	for rows.Next() {
		var m Mistake
		if err := rows.Scan(&m.ID, &m.UserID, &m.TopicID, &m.Word, &m.Correction, &m.Quote, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mistake row: %w", err)
		}
		mistakes = append(mistakes, m)
	}
	return mistakes, nil
}
