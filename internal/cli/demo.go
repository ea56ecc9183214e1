package cli

import "github.com/waready/cepreuna-quiz/internal/domain"

// sampleQuizzes is the built-in quiz served with --demo.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"1": {
			Metadata: domain.QuizMetadata{
				ID:            "1",
				Title:         "Simulacro de demostración",
				SubjectArea:   "Ingenierías",
				Weighting:     map[string]float64{"Matemática": 2.0, "Física": 1.5, "Comunicación": 1.0},
				QuestionCount: 4,
				TimeLimit:     10,
			},
			Questions: []domain.Question{
				{ID: "1", Subject: "Matemática", Prompt: "¿Cuánto es 12 × 12?", Options: []string{"124", "144", "154", "164"}, CorrectOptionIndex: 1},
				{ID: "2", Subject: "Matemática", Prompt: "Si 3x + 2 = 11, ¿cuánto vale x?", Options: []string{"2", "3", "4", "5"}, CorrectOptionIndex: 1},
				{ID: "3", Subject: "Física", Prompt: "Unidad de la fuerza en el SI", Options: []string{"Joule", "Watt", "Newton", "Pascal"}, CorrectOptionIndex: 2},
				{ID: "4", Subject: "Comunicación", Prompt: "¿Cuál es un sustantivo?", Options: []string{"correr", "mesa", "rápido", "bajo"}, CorrectOptionIndex: 1},
			},
		},
	}
}
