// Package scoring turns an answered question set into a weighted quiz result.
package scoring

import (
	"math"
	"sort"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

const (
	// CorrectPoints is awarded for a correct answer.
	CorrectPoints = 10
	// UnansweredPoints is the participation credit for a question left blank.
	UnansweredPoints = 2
	// DefaultMaxScore is the weighted ceiling used by the portal.
	DefaultMaxScore = 3000
)

// Score computes raw and weighted scores plus the per-subject breakdown.
// Subjects listed in weighting always appear in the breakdown, even without questions;
// subjects only present in questions are scored with domain.DefaultWeight.
// The weighted total is rounded and clamped to maxScore.
func Score(questions []domain.Question, answers map[string]domain.Selection, weighting map[string]float64, maxScore float64) domain.Result {
	bySubject := make(map[string]domain.SubjectResult, len(weighting))
	for subject, w := range weighting {
		bySubject[subject] = domain.SubjectResult{Weight: w}
	}

	raw := 0
	for _, q := range questions {
		weight := domain.DefaultWeight
		if w, ok := weighting[q.Subject]; ok {
			weight = w
		}
		entry, ok := bySubject[q.Subject]
		if !ok {
			entry.Weight = weight
		}
		entry.TotalQuestions++
		entry.MaxPossiblePoints += CorrectPoints * weight

		selected, ok := answers[q.ID]
		if !ok {
			selected = domain.NoSelection
		}
		switch {
		case !selected.Answered():
			raw += UnansweredPoints
			entry.WeightedPoints += UnansweredPoints * weight
		case int(selected) == q.CorrectOptionIndex:
			raw += CorrectPoints
			entry.AnsweredCorrect++
			entry.WeightedPoints += CorrectPoints * weight
		}
		bySubject[q.Subject] = entry
	}

	// Float addition is not associative; a fixed order keeps the total reproducible.
	subjects := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	total := 0.0
	for _, subject := range subjects {
		total += bySubject[subject].WeightedPoints
	}

	weighted := math.Round(total)
	if maxScore > 0 && weighted > maxScore {
		weighted = maxScore
	}

	return domain.Result{
		RawScore:      raw,
		WeightedScore: weighted,
		Percentage:    Percentage(weighted, maxScore),
		BySubject:     bySubject,
	}
}

// Percentage returns round(weighted/maxScore*100) bounded to [0, 100].
func Percentage(weighted, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	p := int(math.Round(weighted / maxScore * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
