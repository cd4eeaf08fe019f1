package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aula_checkins_total",
		Help: "QR check-in attempts by outcome.",
	}, []string{"outcome"})

	AttendanceSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aula_attendance_saves_total",
		Help: "Bulk attendance save operations.",
	})

	CodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aula_course_codes_issued_total",
		Help: "Course QR codes issued.",
	})
)
