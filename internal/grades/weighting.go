// Package grades computes the per-student weighted averages shown on
// the dashboard and expands a new assessment definition into one row
// per roster member.
package grades

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"aula/server/internal/model"
)

const (
	MinScore = 0
	MaxScore = 20
)

var (
	ErrInvalidWeight = errors.New("grades: weight must be positive")
	ErrScoreRange    = errors.New("grades: score out of range")
)

// ValidateScore checks the fixed 0-20 scale.
func ValidateScore(score float64) error {
	if score < MinScore || score > MaxScore {
		return ErrScoreRange
	}
	return nil
}

// WeightedAverage computes Σ(score·weight)/Σ(weight) over items with a
// score above zero. A zero score means "not yet entered" and is
// excluded from both sums. ok is false when no qualifying item exists;
// the dashboard renders a dash instead of a number in that case.
func WeightedAverage(items []model.GradeItem) (avg float64, ok bool) {
	var sum, weights float64
	for _, item := range items {
		if item.Score <= 0 || item.Weight <= 0 {
			continue
		}
		sum += item.Score * item.Weight
		weights += item.Weight
	}
	if weights == 0 {
		return 0, false
	}
	return sum / weights, true
}

// Definition identifies one assessment as the dashboard expresses it:
// a loose (type, description, period) tuple within a group.
type Definition struct {
	GroupID     string
	Type        string
	Description string
	Period      string
	Weight      float64
}

// FanOut expands a new assessment into one ungraded row per roster
// member, all sharing a fresh assessment id.
func FanOut(def Definition, roster []string, now time.Time) ([]model.GradeItem, error) {
	if def.Weight <= 0 {
		return nil, ErrInvalidWeight
	}
	assessmentID := uuid.NewString()
	items := make([]model.GradeItem, 0, len(roster))
	for _, studentID := range roster {
		items = append(items, model.GradeItem{
			ID:           uuid.NewString(),
			AssessmentID: assessmentID,
			GroupID:      def.GroupID,
			StudentID:    studentID,
			Type:         def.Type,
			Description:  def.Description,
			Period:       def.Period,
			Weight:       def.Weight,
			Score:        0,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return items, nil
}

// AveragesByStudent groups a period's items per student and computes
// each average. Students with no qualifying grades map to ok=false.
type StudentAverage struct {
	StudentID string
	Average   float64
	Graded    bool
}

func AveragesByStudent(items []model.GradeItem) []StudentAverage {
	order := make([]string, 0)
	grouped := make(map[string][]model.GradeItem)
	for _, item := range items {
		if _, ok := grouped[item.StudentID]; !ok {
			order = append(order, item.StudentID)
		}
		grouped[item.StudentID] = append(grouped[item.StudentID], item)
	}
	out := make([]StudentAverage, 0, len(order))
	for _, studentID := range order {
		avg, ok := WeightedAverage(grouped[studentID])
		out = append(out, StudentAverage{StudentID: studentID, Average: avg, Graded: ok})
	}
	return out
}
