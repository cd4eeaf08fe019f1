package model

import "time"

const (
	RoleAdmin    = "admin"
	RoleProfesor = "profesor"
	RoleAuxiliar = "auxiliar"
	RoleAlumno   = "alumno"
)

type User struct {
	ID           string
	Role         string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	DNI          *string
	Phone        *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Course struct {
	ID          string
	Name        string
	Description *string
}

type GradeLevel struct {
	ID   string
	Name string
}

type Section struct {
	ID   string
	Name string
}

type Group struct {
	ID           string
	CourseID     string
	GradeLevelID string
	SectionID    string
	SchoolYear   string
	ProfessorID  *string
	CreatedAt    time.Time
}

type RosterMember struct {
	GroupID   string
	StudentID string
	CreatedAt time.Time
}

type ScheduleEntry struct {
	ID       string
	GroupID  string
	Weekday  int
	StartsAt string
	EndsAt   string
}

type AttendanceRecord struct {
	ID        string
	StudentID string
	GroupID   string
	Date      string
	Status    string
	CheckIn   *string
	CheckOut  *string
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GradeItem struct {
	ID           string
	AssessmentID string
	GroupID      string
	StudentID    string
	Type         string
	Description  string
	Period       string
	Weight       float64
	Score        float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CourseCode struct {
	ID        string
	CourseID  string
	GroupID   string
	Code      string
	Active    bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

type RegistrationToken struct {
	ID        string
	TokenHash string
	Role      string
	Email     string
	FirstName string
	LastName  string
	UsedAt    *time.Time
	UsedBy    *string
	CreatedAt time.Time
}

type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Subject     string
	Body        string
	ReadAt      *time.Time
	CreatedAt   time.Time
}
