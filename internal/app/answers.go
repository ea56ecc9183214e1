package app

import "github.com/waready/cepreuna-quiz/internal/domain"

// AnswerStore holds one selection per question. It is not safe for concurrent
// use; the owning Session serialises access.
type AnswerStore struct {
	order    []string
	arity    map[string]int
	selected map[string]domain.Selection
}

// NewAnswerStore creates an empty record for every question.
func NewAnswerStore(questions []domain.Question) *AnswerStore {
	a := &AnswerStore{
		order:    make([]string, 0, len(questions)),
		arity:    make(map[string]int, len(questions)),
		selected: make(map[string]domain.Selection, len(questions)),
	}
	for _, q := range questions {
		a.order = append(a.order, q.ID)
		a.arity[q.ID] = len(q.Options)
		a.selected[q.ID] = domain.NoSelection
	}
	return a
}

// Select toggles option on questionID: choosing the current option clears it,
// any other option replaces it. It returns false for an unknown question or
// option index, leaving the store untouched.
func (a *AnswerStore) Select(questionID string, option int) (domain.Selection, bool) {
	current, ok := a.selected[questionID]
	if !ok || option < 0 || option >= a.arity[questionID] {
		return domain.NoSelection, false
	}
	next := domain.Selection(option)
	if current == next {
		next = domain.NoSelection
	}
	a.selected[questionID] = next
	return next, true
}

// Get returns the selection for questionID.
func (a *AnswerStore) Get(questionID string) domain.Selection {
	if sel, ok := a.selected[questionID]; ok {
		return sel
	}
	return domain.NoSelection
}

// Answered counts questions with a selection.
func (a *AnswerStore) Answered() int {
	n := 0
	for _, sel := range a.selected {
		if sel.Answered() {
			n++
		}
	}
	return n
}

// Len is the fixed number of records.
func (a *AnswerStore) Len() int { return len(a.order) }

// Selections copies the current answers keyed by question id.
func (a *AnswerStore) Selections() map[string]domain.Selection {
	out := make(map[string]domain.Selection, len(a.selected))
	for id, sel := range a.selected {
		out[id] = sel
	}
	return out
}

// Records lists the answers in question order.
func (a *AnswerStore) Records() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, domain.AnswerRecord{QuestionID: id, Selected: a.selected[id]})
	}
	return out
}
