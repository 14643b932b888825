package store

import (
	"fmt"
	"log"
)

type seedLesson struct {
	title          string
	skillFocus     string
	readingPassage string
	listeningText  string
	vocab          []LessonVocab
	questions      []LessonQuestion
}

// Static course content. Read-only after load; Seed writes it once at setup.
var seedContent = []struct {
	topic   string
	lessons []seedLesson
}{
	{
		topic: "Travel",
		lessons: []seedLesson{
			{
				title:          "At the Airport",
				skillFocus:     "Verb 'to be' (ser/estar) in present tense",
				readingPassage: "Ana está en el aeropuerto de Madrid. Ella es turista y está nerviosa porque su puerta está lejos. El agente es amable y Ana está lista para viajar.",
				listeningText:  "Hola, soy Ana. Estoy en el aeropuerto y mi vuelo está a tiempo.",
				vocab: []LessonVocab{
					{Word: "aeropuerto", English: "airport", ImageURL: "https://images.unsplash.com/photo-1436491865332-7a61a109cc05"},
					{Word: "puerta", English: "gate", ImageURL: "https://images.unsplash.com/photo-1469474968028-56623f02e42e"},
					{Word: "vuelo", English: "flight", ImageURL: "https://images.unsplash.com/photo-1540339832862-474599807836"},
					{Word: "pasaporte", English: "passport", ImageURL: "https://images.unsplash.com/photo-1528756514091-dee5ecaa3278"},
					{Word: "maleta", English: "suitcase", ImageURL: "https://images.unsplash.com/photo-1503220317375-aaad61436b1b"},
				},
				questions: []LessonQuestion{
					{Question: "Choose the correct sentence.", OptionA: "Ana es en el aeropuerto.", OptionB: "Ana está en el aeropuerto.", OptionC: "Ana estar en el aeropuerto.", CorrectOption: "B"},
					{Question: "What does 'vuelo' mean?", OptionA: "flight", OptionB: "ticket", OptionC: "station", CorrectOption: "A"},
					{Question: "Complete: El agente ___ amable.", OptionA: "es", OptionB: "está", OptionC: "soy", CorrectOption: "A"},
				},
			},
			{
				title:          "Asking for Directions",
				skillFocus:     "Present tense questions with estar and location words",
				readingPassage: "Luis está perdido en Sevilla. Él pregunta: ¿Dónde está el hotel? Una mujer responde: El hotel está cerca de la plaza. Luis está contento y camina rápido.",
				listeningText:  "Perdón, ¿dónde está la estación de tren?",
				vocab: []LessonVocab{
					{Word: "mapa", English: "map", ImageURL: "https://images.unsplash.com/photo-1526772662000-3f88f10405ff"},
					{Word: "calle", English: "street", ImageURL: "https://images.unsplash.com/photo-1477959858617-67f85cf4f1df"},
					{Word: "plaza", English: "square", ImageURL: "https://images.unsplash.com/photo-1534430480872-3498386e7856"},
					{Word: "estación", English: "station", ImageURL: "https://images.unsplash.com/photo-1474487548417-781cb71495f3"},
					{Word: "hotel", English: "hotel", ImageURL: "https://images.unsplash.com/photo-1566073771259-6a8506099945"},
				},
				questions: []LessonQuestion{
					{Question: "How do you ask 'Where is the hotel?'", OptionA: "¿Dónde es el hotel?", OptionB: "¿Dónde está el hotel?", OptionC: "¿Dónde hotel está?", CorrectOption: "B"},
					{Question: "Choose the best word for 'street'.", OptionA: "calle", OptionB: "plaza", OptionC: "mapa", CorrectOption: "A"},
					{Question: "Complete: Luis ___ perdido.", OptionA: "es", OptionB: "está", OptionC: "soy", CorrectOption: "B"},
				},
			},
		},
	},
	{
		topic: "Home",
		lessons: []seedLesson{
			{
				title:          "My Apartment Today",
				skillFocus:     "Subject pronouns + present tense ser/estar at home",
				readingPassage: "Yo soy Carlos y vivo en un apartamento pequeño. Mi cocina está limpia y mi sala está tranquila. Nosotros somos vecinos amables en este edificio.",
				listeningText:  "Mi habitación está ordenada y la cocina es moderna.",
				vocab: []LessonVocab{
					{Word: "cocina", English: "kitchen", ImageURL: "https://images.unsplash.com/photo-1556911220-e15b29be8c8f"},
					{Word: "sala", English: "living room", ImageURL: "https://images.unsplash.com/photo-1505693416388-ac5ce068fe85"},
					{Word: "habitación", English: "bedroom", ImageURL: "https://images.unsplash.com/photo-1505693314120-0d443867891c"},
					{Word: "edificio", English: "building", ImageURL: "https://images.unsplash.com/photo-1516156008625-3a9d6067fab5"},
					{Word: "vecino", English: "neighbor", ImageURL: "https://images.unsplash.com/photo-1511988617509-a57c8a288659"},
				},
				questions: []LessonQuestion{
					{Question: "Choose the correct pronoun sentence.", OptionA: "Yo somos Carlos.", OptionB: "Yo soy Carlos.", OptionC: "Yo está Carlos.", CorrectOption: "B"},
					{Question: "What does 'cocina' mean?", OptionA: "kitchen", OptionB: "bathroom", OptionC: "window", CorrectOption: "A"},
					{Question: "Complete: La sala ___ tranquila.", OptionA: "soy", OptionB: "es", OptionC: "está", CorrectOption: "C"},
				},
			},
			{
				title:          "Yesterday at Home",
				skillFocus:     "Simple past with estar/ser in home routines",
				readingPassage: "Ayer yo estuve en casa todo el día. La casa estuvo silenciosa y el clima fue perfecto. Mi familia fue muy amable durante la cena.",
				listeningText:  "Ayer estuve en casa y fue un día muy tranquilo.",
				vocab: []LessonVocab{
					{Word: "ayer", English: "yesterday", ImageURL: "https://images.unsplash.com/photo-1506784983877-45594efa4cbe"},
					{Word: "cena", English: "dinner", ImageURL: "https://images.unsplash.com/photo-1547592166-23ac45744acd"},
					{Word: "familia", English: "family", ImageURL: "https://images.unsplash.com/photo-1511895426328-dc8714191300"},
					{Word: "silencioso", English: "quiet", ImageURL: "https://images.unsplash.com/photo-1502672260266-1c1ef2d93688"},
					{Word: "clima", English: "weather", ImageURL: "https://images.unsplash.com/photo-1504608524841-42fe6f032b4b"},
				},
				questions: []LessonQuestion{
					{Question: "Pick the past tense sentence.", OptionA: "Yo estoy en casa.", OptionB: "Yo estuve en casa.", OptionC: "Yo ser en casa.", CorrectOption: "B"},
					{Question: "What does 'ayer' mean?", OptionA: "tomorrow", OptionB: "yesterday", OptionC: "today", CorrectOption: "B"},
					{Question: "Complete: Mi familia ___ amable.", OptionA: "fue", OptionB: "está", OptionC: "soy", CorrectOption: "A"},
				},
			},
		},
	},
	{
		topic: "Work",
		lessons: []seedLesson{
			{
				title:          "Office Introductions",
				skillFocus:     "Present tense ser/estar for identity and workplace status",
				readingPassage: "Sofía es diseñadora en una oficina internacional. Ella está en una reunión y sus compañeros están listos. El proyecto es importante esta semana.",
				listeningText:  "Hola, soy Sofía y estoy en la oficina ahora.",
				vocab: []LessonVocab{
					{Word: "oficina", English: "office", ImageURL: "https://images.unsplash.com/photo-1497215842964-222b430dc094"},
					{Word: "reunión", English: "meeting", ImageURL: "https://images.unsplash.com/photo-1521737604893-d14cc237f11d"},
					{Word: "compañero", English: "coworker", ImageURL: "https://images.unsplash.com/photo-1522202176988-66273c2fd55f"},
					{Word: "proyecto", English: "project", ImageURL: "https://images.unsplash.com/photo-1517048676732-d65bc937f952"},
					{Word: "correo", English: "email", ImageURL: "https://images.unsplash.com/photo-1456324504439-367cee3b3c32"},
				},
				questions: []LessonQuestion{
					{Question: "Complete: Sofía ___ diseñadora.", OptionA: "está", OptionB: "es", OptionC: "soy", CorrectOption: "B"},
					{Question: "Which means 'meeting'?", OptionA: "reunión", OptionB: "proyecto", OptionC: "correo", CorrectOption: "A"},
					{Question: "Complete: Los compañeros ___ listos.", OptionA: "es", OptionB: "somos", OptionC: "están", CorrectOption: "C"},
				},
			},
			{
				title:          "Next Week Plans",
				skillFocus:     "Near future with ir a + infinitive in work context",
				readingPassage: "La próxima semana vamos a presentar un informe. Yo voy a preparar las diapositivas y mi jefe va a revisar los números. Vamos a trabajar en equipo.",
				listeningText:  "Mañana voy a enviar un correo al equipo.",
				vocab: []LessonVocab{
					{Word: "informe", English: "report", ImageURL: "https://images.unsplash.com/photo-1454165804606-c3d57bc86b40"},
					{Word: "diapositiva", English: "slide", ImageURL: "https://images.unsplash.com/photo-1519389950473-47ba0277781c"},
					{Word: "jefe", English: "boss", ImageURL: "https://images.unsplash.com/photo-1573497491208-6b1acb260507"},
					{Word: "equipo", English: "team", ImageURL: "https://images.unsplash.com/photo-1522071820081-009f0129c71c"},
					{Word: "número", English: "number", ImageURL: "https://images.unsplash.com/photo-1533750349088-cd871a92f312"},
				},
				questions: []LessonQuestion{
					{Question: "Choose the near-future sentence.", OptionA: "Voy preparar el informe.", OptionB: "Voy a preparar el informe.", OptionC: "Yo preparando el informe.", CorrectOption: "B"},
					{Question: "What is 'equipo'?", OptionA: "meeting", OptionB: "team", OptionC: "office", CorrectOption: "B"},
					{Question: "Complete: Mi jefe ___ a revisar los números.", OptionA: "va", OptionB: "es", OptionC: "está", CorrectOption: "A"},
				},
			},
		},
	},
}

// SeedIfEmpty loads the static course content when the topics table is
// empty. Returns the number of lessons created (0 when already seeded).
func (s *SQLiteStore) SeedIfEmpty() (int, error) {
	count, err := s.CountTopics()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	return s.Seed()
}

// Seed wipes all content and user data and reloads the static course
// content. Destructive; used by the -seed flag and at first startup.
func (s *SQLiteStore) Seed() (int, error) {
	// Children before parents, same order as the original seeder.
	for _, table := range []string{"evaluations", "messages", "sessions", "mistakes", "lesson_questions", "lesson_vocab_items", "lessons", "topics"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	created := 0
	for _, entry := range seedContent {
		topic, err := s.CreateTopic(entry.topic, "Spanish")
		if err != nil {
			return created, err
		}
		for _, l := range entry.lessons {
			lesson := Lesson{
				TopicID:        topic.ID,
				Title:          l.title,
				SkillFocus:     l.skillFocus,
				ReadingPassage: l.readingPassage,
				ListeningText:  l.listeningText,
				VocabItems:     append([]LessonVocab(nil), l.vocab...),
				Questions:      append([]LessonQuestion(nil), l.questions...),
			}
			if err := s.CreateLesson(&lesson); err != nil {
				return created, err
			}
			created++
		}
	}
	log.Printf("Seeded %d topics, %d lessons", len(seedContent), created)
	return created, nil
}
