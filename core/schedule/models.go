package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ficct/horarios/core"
)

// Weekday is a teaching day code.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
)

var (
	// Weekdays in grid column order.
	Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

	weekdayNames = map[Weekday]string{
		Monday:    "Lunes",
		Tuesday:   "Martes",
		Wednesday: "Miércoles",
		Thursday:  "Jueves",
		Friday:    "Viernes",
		Saturday:  "Sábado",
	}

	// the backend speaks spanish day codes
	weekdayAliases = map[string]Weekday{
		"LU": Monday,
		"MA": Tuesday,
		"MI": Wednesday,
		"JU": Thursday,
		"VI": Friday,
	}
)

// ParseWeekday accepts both MO..SA and the spanish LU..SA codes, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	code := core.CleanUpper(s)
	if d, ok := weekdayAliases[code]; ok {
		return d, nil
	}
	d := Weekday(code)
	if d.Index() < 0 {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// Index returns the grid column of the day, or -1.
func (d Weekday) Index() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

func (d Weekday) Name() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return string(d)
}

func (d *Weekday) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	day, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// Period of an academic term.
type Period string

const (
	PeriodI      Period = "I"
	PeriodII     Period = "II"
	PeriodSummer Period = "SUMMER"
)

var Periods = []Period{PeriodI, PeriodII, PeriodSummer}

func (p *Period) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = core.CleanUpper(s)
	if s == "VERANO" {
		s = string(PeriodSummer)
	}
	*p = Period(s)
	return nil
}

// ClassroomType is the kind of room.
type ClassroomType string

const (
	RoomAula        ClassroomType = "Aula"
	RoomLaboratorio ClassroomType = "Laboratorio"
	RoomAuditorio   ClassroomType = "Auditorio"
	RoomConferencia ClassroomType = "Sala de Conferencias"
	RoomTaller      ClassroomType = "Taller"
)

var ClassroomTypes = []ClassroomType{RoomAula, RoomLaboratorio, RoomAuditorio, RoomConferencia, RoomTaller}

// RoomNumber decodes from either a JSON string or a JSON number.
type RoomNumber string

func (n *RoomNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = RoomNumber(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = RoomNumber(f.String())
	return nil
}

type AcademicTerm struct {
	ID        int    `json:"idgestion"`
	Year      int    `json:"anio" validate:"required,gte=1900"`
	Period    Period `json:"periodo" validate:"required,period"`
	StartDate string `json:"fechainicio"`
	EndDate   string `json:"fechafin"`
}

func (t AcademicTerm) String() string {
	return strconv.Itoa(t.Year) + "-" + string(t.Period)
}

type Group struct {
	ID        int    `json:"idgrupo"`
	Label     string `json:"nombre_grupo" validate:"required,max=20"`
	SubjectID int    `json:"idmateria" validate:"required,gt=0"`
	TermID    int    `json:"idgestion" validate:"required,gt=0"`
	Capacity  int    `json:"capacidad" validate:"required,gt=0"`
}

// Validate upper-cases the label before checking the struct.
func (g *Group) Validate(validate *validator.Validate) error {
	g.Label = core.CleanUpper(g.Label)
	return validate.Struct(g)
}

type Subject struct {
	ID       int    `json:"idmateria"`
	Name     string `json:"nombre"`
	Code     string `json:"sigla"`
	Semester int    `json:"semestre"`
	TermID   int    `json:"idgestion"`
}

type Teacher struct {
	ID           int    `json:"iddocente"`
	Name         string `json:"nombre"`
	Phone        string `json:"celular,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	Specialty    string `json:"especialidad,omitempty"`
	ContractDate string `json:"fechacontrato,omitempty"`
}

type Classroom struct {
	ID        int           `json:"idaula"`
	Number    RoomNumber    `json:"numero"`
	Type      ClassroomType `json:"tipo" validate:"omitempty,classroomtype"`
	FacultyID int           `json:"idfacultad"`
}

// TimeSlot is a catalog entry: weekday plus start/end time, start < end.
type TimeSlot struct {
	ID    int     `json:"idhorario"`
	Day   Weekday `json:"dia" validate:"required,weekday"`
	Start string  `json:"horainicio" validate:"required,hhmm"`
	End   string  `json:"horafinal" validate:"required,hhmm"`
}

// Block returns the minute precision time block of the slot.
func (s TimeSlot) Block() TimeBlock {
	return TimeBlock{Start: NormalizeTime(s.Start), End: NormalizeTime(s.End)}
}

func (s TimeSlot) Cell() CellKey {
	return CellKey{Day: s.Day, Block: s.Block()}
}

func (s TimeSlot) String() string {
	return s.Cell().String()
}

// Assignment binds a group to a subject, teacher, classroom and a set of weekly time slots within a term.
// The display fields are resolved by the backend.
type Assignment struct {
	ID          int        `json:"idasignacion"`
	GroupID     int        `json:"idgrupo"`
	SubjectID   int        `json:"idmateria"`
	TeacherID   int        `json:"iddocente"`
	ClassroomID int        `json:"idaula"`
	TermID      int        `json:"idgestion"`
	Slots       []TimeSlot `json:"horarios"`

	SubjectName     string     `json:"materia_nombre"`
	SubjectCode     string     `json:"materia_sigla"`
	GroupLabel      string     `json:"nombre_grupo"`
	TeacherName     string     `json:"docente_nombre"`
	ClassroomNumber RoomNumber `json:"aula_numero"`
}

// SlotIDs returns the ids of the occupied slots in order.
func (a Assignment) SlotIDs() []int {
	ids := make([]int, 0, len(a.Slots))
	for _, s := range a.Slots {
		ids = append(ids, s.ID)
	}
	return ids
}

// Submission is a write the Builder can send: NewAssignment or EditAssignment.
type Submission interface {
	Validate(validate *validator.Validate) error
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	TermID      int   `json:"idgestion" validate:"required,gt=0"`
	GroupID     int   `json:"idgrupo" validate:"required,gt=0"`
	SubjectID   int   `json:"idmateria" validate:"required,gt=0"`
	TeacherID   int   `json:"iddocente" validate:"required,gt=0"`
	ClassroomID int   `json:"idaula" validate:"required,gt=0"`
	SlotIDs     []int `json:"horarios" validate:"slots,dive,gt=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.SlotIDs = uniqueIDs(na.SlotIDs)
	return validate.Struct(na)
}

// EditAssignment replaces the slot set of an existing Assignment. Nothing else may change.
type EditAssignment struct {
	ID      int   `json:"idasignacion" validate:"required,gt=0"`
	SlotIDs []int `json:"horarios" validate:"slots,dive,gt=0"`
}

func (ea *EditAssignment) Validate(validate *validator.Validate) error {
	ea.SlotIDs = uniqueIDs(ea.SlotIDs)
	return validate.Struct(ea)
}

// NormalizeTime drops the seconds of "HH:MM:SS" and zero-pads "H:MM".
func NormalizeTime(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, ':'); i == 1 {
		t = "0" + t
	}
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

func uniqueIDs(ids []int) []int {
	if ids == nil {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
