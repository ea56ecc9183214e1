package scoring

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

func twoSubjectQuiz() ([]domain.Question, map[string]float64) {
	questions := []domain.Question{
		{ID: "m1", Subject: "Math", Options: []string{"1", "2", "3"}, CorrectOptionIndex: 1},
		{ID: "h1", Subject: "History", Options: []string{"a", "b"}, CorrectOptionIndex: 0},
	}
	return questions, map[string]float64{"Math": 2.0, "History": 1.0}
}

func TestScoreAllCorrect(t *testing.T) {
	questions, weighting := twoSubjectQuiz()
	res := Score(questions, map[string]domain.Selection{"m1": 1, "h1": 0}, weighting, DefaultMaxScore)

	if res.RawScore != 20 {
		t.Fatalf("expected raw 20, got %d", res.RawScore)
	}
	if res.WeightedScore != 30 {
		t.Fatalf("expected weighted 30, got %v", res.WeightedScore)
	}
	if got := res.BySubject["Math"].WeightedPoints; got != 20 {
		t.Fatalf("expected Math 20, got %v", got)
	}
	if got := res.BySubject["History"].WeightedPoints; got != 10 {
		t.Fatalf("expected History 10, got %v", got)
	}
	if res.Percentage != 1 {
		t.Fatalf("expected 1%%, got %d", res.Percentage)
	}
	if m := res.BySubject["Math"]; m.AnsweredCorrect != 1 || m.TotalQuestions != 1 || m.MaxPossiblePoints != 20 {
		t.Fatalf("unexpected Math breakdown %+v", m)
	}
}

func TestScoreUnansweredAndWrong(t *testing.T) {
	questions, weighting := twoSubjectQuiz()

	cases := []struct {
		name     string
		answers  map[string]domain.Selection
		math     float64
		history  float64
		weighted float64
	}{
		{"math blank, history wrong", map[string]domain.Selection{"m1": domain.NoSelection, "h1": 1}, 4, 0, 4},
		{"history blank, math wrong", map[string]domain.Selection{"m1": 0, "h1": domain.NoSelection}, 0, 2, 2},
		{"no records at all", map[string]domain.Selection{"h1": 1}, 4, 0, 4},
	}
	for _, tc := range cases {
		res := Score(questions, tc.answers, weighting, DefaultMaxScore)
		if res.RawScore != 2 {
			t.Fatalf("%s: expected raw 2, got %d", tc.name, res.RawScore)
		}
		if res.BySubject["Math"].WeightedPoints != tc.math || res.BySubject["History"].WeightedPoints != tc.history {
			t.Fatalf("%s: unexpected breakdown %+v", tc.name, res.BySubject)
		}
		if res.WeightedScore != tc.weighted {
			t.Fatalf("%s: expected weighted %v, got %v", tc.name, tc.weighted, res.WeightedScore)
		}
	}
}

func TestScoreClampsToMax(t *testing.T) {
	questions := make([]domain.Question, 0, 200)
	answers := make(map[string]domain.Selection, 200)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("q%d", i)
		questions = append(questions, domain.Question{ID: id, Subject: "Math", Options: []string{"x", "y"}, CorrectOptionIndex: 0})
		answers[id] = 0
	}
	res := Score(questions, answers, map[string]float64{"Math": 1.75}, DefaultMaxScore)

	if res.WeightedScore != DefaultMaxScore {
		t.Fatalf("expected clamp to %d, got %v", DefaultMaxScore, res.WeightedScore)
	}
	if res.Percentage != 100 {
		t.Fatalf("expected 100%%, got %d", res.Percentage)
	}
	if res.BySubject["Math"].WeightedPoints != 3500 {
		t.Fatalf("subject points must stay unclamped, got %v", res.BySubject["Math"].WeightedPoints)
	}
}

func TestScoreUnlistedSubjectDefaultsToWeightOne(t *testing.T) {
	questions := []domain.Question{{ID: "a1", Subject: "Art", Options: []string{"x", "y"}, CorrectOptionIndex: 1}}
	res := Score(questions, map[string]domain.Selection{"a1": 1}, map[string]float64{"Math": 3}, DefaultMaxScore)

	art, ok := res.BySubject["Art"]
	if !ok {
		t.Fatalf("expected Art in breakdown")
	}
	if art.Weight != domain.DefaultWeight || art.WeightedPoints != 10 || art.MaxPossiblePoints != 10 {
		t.Fatalf("unexpected Art entry %+v", art)
	}
}

func TestScoreSubjectWithoutQuestions(t *testing.T) {
	questions, weighting := twoSubjectQuiz()
	weighting["Chemistry"] = 1.5
	res := Score(questions, nil, weighting, DefaultMaxScore)

	chem := res.BySubject["Chemistry"]
	if chem != (domain.SubjectResult{Weight: 1.5}) {
		t.Fatalf("expected empty Chemistry entry, got %+v", chem)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	weighting := map[string]float64{}
	questions := make([]domain.Question, 0, 60)
	answers := map[string]domain.Selection{}
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 60; i++ {
		subject := fmt.Sprintf("s%d", i%9)
		weighting[subject] = 0.1 + float64(i%9)*0.337
		id := fmt.Sprintf("q%d", i)
		questions = append(questions, domain.Question{ID: id, Subject: subject, Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: i % 4})
		answers[id] = domain.Selection(rnd.Intn(5) - 1)
	}

	first := Score(questions, answers, weighting, DefaultMaxScore)
	for i := 0; i < 20; i++ {
		if again := Score(questions, answers, weighting, DefaultMaxScore); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestRawScoreFollowsPointRule(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 1 + rnd.Intn(30)
		questions := make([]domain.Question, 0, n)
		answers := make(map[string]domain.Selection, n)
		want := 0
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("q%d", i)
			correct := rnd.Intn(4)
			questions = append(questions, domain.Question{ID: id, Subject: "Math", Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: correct})
			sel := domain.Selection(rnd.Intn(5) - 1)
			answers[id] = sel
			switch {
			case !sel.Answered():
				want += UnansweredPoints
			case int(sel) == correct:
				want += CorrectPoints
			}
		}
		res := Score(questions, answers, map[string]float64{"Math": rnd.Float64()*3 + 0.1}, DefaultMaxScore)
		if res.RawScore != want {
			t.Fatalf("round %d: expected raw %d, got %d", round, want, res.RawScore)
		}
		if res.Percentage < 0 || res.Percentage > 100 {
			t.Fatalf("round %d: percentage out of range %d", round, res.Percentage)
		}
		if res.Percentage != Percentage(res.WeightedScore, DefaultMaxScore) {
			t.Fatalf("round %d: percentage mismatch", round)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		weighted, max float64
		want          int
	}{
		{0, 3000, 0},
		{1500, 3000, 50},
		{3000, 3000, 100},
		{44, 3000, 1},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.weighted, tc.max); got != tc.want {
			t.Fatalf("Percentage(%v, %v) = %d, want %d", tc.weighted, tc.max, got, tc.want)
		}
	}
}
