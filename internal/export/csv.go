// Package export produces the CSV downloads offered by the dashboard.
// Exports are read-side projections over reconciled in-memory state;
// they never round-trip through the store.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"aula/server/internal/attendance"
	"aula/server/internal/grades"
	"aula/server/internal/model"
)

// AttendanceCSV renders one day's reconciled list. Free-text fields go
// through encoding/csv so embedded commas are quoted, not dropped.
func AttendanceCSV(date string, entries []attendance.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Fecha", "Estudiante", "DNI", "Estado", "Entrada", "Salida", "Observación"}); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		record := []string{date, entry.FullName, entry.DNI, entry.Status, entry.CheckIn, entry.CheckOut, entry.Note}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GradesCSV renders a period's grade rows plus each student's weighted
// average. names maps student id to display name; unknown ids fall
// back to the id itself.
func GradesCSV(items []model.GradeItem, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Estudiante", "Periodo", "Tipo", "Descripción", "Peso", "Nota"}); err != nil {
		return nil, err
	}
	for _, item := range items {
		name, ok := names[item.StudentID]
		if !ok {
			name = item.StudentID
		}
		record := []string{
			name,
			item.Period,
			item.Type,
			item.Description,
			formatFloat(item.Weight),
			formatFloat(item.Score),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	for _, avg := range grades.AveragesByStudent(items) {
		name, ok := names[avg.StudentID]
		if !ok {
			name = avg.StudentID
		}
		value := "-"
		if avg.Graded {
			value = formatFloat(avg.Average)
		}
		if err := w.Write([]string{name, "", "promedio", "", "", value}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
