package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"aula/server/internal/attendance"
	"aula/server/internal/model"
)

func TestAttendanceCSVQuotesEmbeddedCommas(t *testing.T) {
	entries := []attendance.Entry{
		{
			Student: attendance.Student{FullName: "Ana Martínez", DNI: "70012345"},
			Status:  attendance.StatusTarde,
			CheckIn: "08:20",
			Note:    "llegó tarde, con justificación",
		},
	}
	out, err := AttendanceCSV("2026-08-28", entries)
	if err != nil {
		t.Fatalf("export error: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[1][6] != "llegó tarde, con justificación" {
		t.Fatalf("expected note to survive the comma, got %q", rows[1][6])
	}
	if !strings.Contains(string(out), `"llegó tarde, con justificación"`) {
		t.Fatalf("expected quoted field in raw output:\n%s", out)
	}
}

func TestGradesCSVIncludesAverages(t *testing.T) {
	items := []model.GradeItem{
		{StudentID: "s1", Period: "Trimestre 1", Type: "examen", Description: "Parcial 1", Weight: 1, Score: 10},
		{StudentID: "s1", Period: "Trimestre 1", Type: "tarea", Description: "Tarea 1", Weight: 2, Score: 0},
		{StudentID: "s1", Period: "Trimestre 1", Type: "examen", Description: "Parcial 2", Weight: 1, Score: 16},
		{StudentID: "s2", Period: "Trimestre 1", Type: "examen", Description: "Parcial 1", Weight: 1, Score: 0},
	}
	out, err := GradesCSV(items, map[string]string{"s1": "Ana Martínez"})
	if err != nil {
		t.Fatalf("export error: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse error: %v", err)
	}
	// Header + 4 item rows + 2 average rows.
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	avgAna := rows[5]
	if avgAna[0] != "Ana Martínez" || avgAna[2] != "promedio" || avgAna[5] != "13" {
		t.Fatalf("unexpected average row: %v", avgAna)
	}
	avgOther := rows[6]
	if avgOther[0] != "s2" || avgOther[5] != "-" {
		t.Fatalf("expected dash for ungraded student, got %v", avgOther)
	}
}
