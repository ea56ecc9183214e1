package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// envelope is the portal's response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// flexID accepts numeric and string ids.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// quizDTO is one entry of GET /quizzes. The portal's own field names
// (titulo, materia, ponderaciones, ...) are accepted as aliases.
type quizDTO struct {
	ID            flexID             `json:"id"`
	Title         string             `json:"title"`
	Titulo        string             `json:"titulo"`
	SubjectArea   string             `json:"subjectArea"`
	Materia       string             `json:"materia"`
	Weighting     map[string]float64 `json:"weighting"`
	Ponderaciones map[string]float64 `json:"ponderaciones"`
	QuestionCount int                `json:"questionCount"`
	Preguntas     int                `json:"preguntas"`
	TimeLimit     int                `json:"timeLimit"`
	TiempoLimite  int                `json:"tiempo_limite"`
}

func (d quizDTO) toDomain() domain.QuizMetadata {
	weighting := d.Weighting
	if weighting == nil {
		weighting = d.Ponderaciones
	}
	return domain.QuizMetadata{
		ID:            string(d.ID),
		Title:         firstNonEmpty(d.Title, d.Titulo),
		SubjectArea:   firstNonEmpty(d.SubjectArea, d.Materia),
		Weighting:     weighting,
		QuestionCount: firstPositive(d.QuestionCount, d.Preguntas),
		TimeLimit:     firstPositive(d.TimeLimit, d.TiempoLimite),
	}
}

// questionDTO is one entry of GET /quizzes/{id}/questions.
type questionDTO struct {
	ID                 flexID   `json:"id"`
	Subject            string   `json:"subject"`
	Materia            string   `json:"materia"`
	Prompt             string   `json:"prompt"`
	Pregunta           string   `json:"pregunta"`
	ImageURL           string   `json:"imageUrl"`
	ImagenURL          string   `json:"imagen_url"`
	Options            []string `json:"options"`
	Opciones           []string `json:"opciones"`
	CorrectOptionIndex *int     `json:"correctOptionIndex"`
	RespuestaCorrecta  *int     `json:"respuesta_correcta"`
}

func (d questionDTO) toDomain() domain.Question {
	options := d.Options
	if options == nil {
		options = d.Opciones
	}
	correct := -1
	switch {
	case d.CorrectOptionIndex != nil:
		correct = *d.CorrectOptionIndex
	case d.RespuestaCorrecta != nil:
		correct = *d.RespuestaCorrecta
	}
	return domain.Question{
		ID:                 string(d.ID),
		Subject:            firstNonEmpty(d.Subject, d.Materia),
		Prompt:             firstNonEmpty(d.Prompt, d.Pregunta),
		ImageURL:           firstNonEmpty(d.ImageURL, d.ImagenURL),
		Options:            options,
		CorrectOptionIndex: correct,
	}
}

// saveResultRequest is the body of POST /quizzes/save-result.
type saveResultRequest struct {
	QuizID           json.RawMessage                 `json:"quizId"`
	RawScore         int                             `json:"rawScore"`
	WeightedScore    float64                         `json:"weightedScore"`
	Percentage       int                             `json:"percentage"`
	TimeUsedSeconds  int                             `json:"timeUsedSeconds"`
	ResultsBySubject map[string]domain.SubjectResult `json:"resultsBySubject"`
}

func newSaveResultRequest(quizID string, r domain.Result) saveResultRequest {
	bySubject := r.BySubject
	if bySubject == nil {
		bySubject = map[string]domain.SubjectResult{}
	}
	return saveResultRequest{
		QuizID:           encodeID(quizID),
		RawScore:         r.RawScore,
		WeightedScore:    r.WeightedScore,
		Percentage:       r.Percentage,
		TimeUsedSeconds:  r.TimeUsedSeconds(),
		ResultsBySubject: bySubject,
	}
}

// encodeID sends canonical numeric ids as JSON numbers, as the portal stores them.
// Ids like "007" or "+5" are not valid JSON numbers and go out as strings.
func encodeID(id string) json.RawMessage {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return json.RawMessage(id)
	}
	raw, _ := json.Marshal(id)
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
