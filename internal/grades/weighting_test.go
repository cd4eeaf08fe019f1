package grades

import (
	"errors"
	"testing"
	"time"

	"aula/server/internal/model"
)

func TestWeightedAverageSkipsZeroScores(t *testing.T) {
	items := []model.GradeItem{
		{Score: 10, Weight: 1},
		{Score: 0, Weight: 2},
		{Score: 16, Weight: 1},
	}
	avg, ok := WeightedAverage(items)
	if !ok {
		t.Fatalf("expected a defined average")
	}
	if avg != 13.0 {
		t.Fatalf("expected 13.0, got %v", avg)
	}
}

func TestWeightedAverageNoQualifyingGrades(t *testing.T) {
	items := []model.GradeItem{
		{Score: 0, Weight: 1},
		{Score: 0, Weight: 3},
	}
	avg, ok := WeightedAverage(items)
	if ok {
		t.Fatalf("expected undefined average, got %v", avg)
	}
	if avg != 0 {
		t.Fatalf("expected zero value with ok=false, got %v", avg)
	}
	if _, ok := WeightedAverage(nil); ok {
		t.Fatalf("expected undefined average for empty set")
	}
}

func TestWeightedAverageUsesWeights(t *testing.T) {
	items := []model.GradeItem{
		{Score: 20, Weight: 3},
		{Score: 10, Weight: 1},
	}
	avg, ok := WeightedAverage(items)
	if !ok || avg != 17.5 {
		t.Fatalf("expected 17.5, got %v (ok=%v)", avg, ok)
	}
}

func TestValidateScore(t *testing.T) {
	if err := ValidateScore(0); err != nil {
		t.Fatalf("expected 0 to be valid: %v", err)
	}
	if err := ValidateScore(20); err != nil {
		t.Fatalf("expected 20 to be valid: %v", err)
	}
	if err := ValidateScore(-1); !errors.Is(err, ErrScoreRange) {
		t.Fatalf("expected ErrScoreRange, got %v", err)
	}
	if err := ValidateScore(20.5); !errors.Is(err, ErrScoreRange) {
		t.Fatalf("expected ErrScoreRange, got %v", err)
	}
}

func TestFanOutCreatesRowPerStudent(t *testing.T) {
	def := Definition{
		GroupID:     "g1",
		Type:        "examen",
		Description: "Parcial 1",
		Period:      "Trimestre 1",
		Weight:      2,
	}
	now := time.Now().UTC()
	items, err := FanOut(def, []string{"s1", "s2", "s3"}, now)
	if err != nil {
		t.Fatalf("fan out error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(items))
	}
	for _, item := range items {
		if item.Score != 0 {
			t.Fatalf("expected initial score 0, got %v", item.Score)
		}
		if item.Weight != 2 || item.Type != "examen" || item.Period != "Trimestre 1" {
			t.Fatalf("unexpected row: %+v", item)
		}
		if item.AssessmentID != items[0].AssessmentID {
			t.Fatalf("expected shared assessment id")
		}
		if item.ID == "" || item.ID == item.AssessmentID {
			t.Fatalf("expected distinct row id")
		}
	}
}

func TestFanOutRejectsNonPositiveWeight(t *testing.T) {
	if _, err := FanOut(Definition{Weight: 0}, []string{"s1"}, time.Now()); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
}

func TestAveragesByStudent(t *testing.T) {
	items := []model.GradeItem{
		{StudentID: "s1", Score: 10, Weight: 1},
		{StudentID: "s2", Score: 0, Weight: 1},
		{StudentID: "s1", Score: 16, Weight: 1},
	}
	averages := AveragesByStudent(items)
	if len(averages) != 2 {
		t.Fatalf("expected 2 students, got %d", len(averages))
	}
	if averages[0].StudentID != "s1" || !averages[0].Graded || averages[0].Average != 13.0 {
		t.Fatalf("unexpected s1 average: %+v", averages[0])
	}
	if averages[1].StudentID != "s2" || averages[1].Graded {
		t.Fatalf("expected s2 ungraded, got %+v", averages[1])
	}
}
