package inmemdb

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core/schedule"
)

type slotSeed struct {
	day        schedule.Weekday
	start, end string
}

var (
	seedTerms = []schedule.AcademicTerm{
		{ID: 1, Year: 2025, Period: schedule.PeriodI, StartDate: "2025-02-10", EndDate: "2025-06-27"},
		{ID: 2, Year: 2024, Period: schedule.PeriodII, StartDate: "2024-08-05", EndDate: "2024-12-13"},
	}

	seedSubjects = []schedule.Subject{
		{ID: 1, Name: "Cálculo I", Code: "MAT101", Semester: 1, TermID: 1},
		{ID: 2, Name: "Introducción a la Informática", Code: "INF110", Semester: 1, TermID: 1},
		{ID: 3, Name: "Programación I", Code: "INF120", Semester: 2, TermID: 1},
		{ID: 4, Name: "Estructuras de Datos I", Code: "INF220", Semester: 3, TermID: 1},
		{ID: 5, Name: "Base de Datos I", Code: "INF312", Semester: 5, TermID: 1},
	}

	seedTeachers = []schedule.Teacher{
		{ID: 1, Name: "Juan Pérez", Email: "jperez@ficct.uagrm.edu.bo", Specialty: "Matemáticas"},
		{ID: 2, Name: "María Gómez", Email: "mgomez@ficct.uagrm.edu.bo", Specialty: "Sistemas"},
		{ID: 3, Name: "Carlos Rojas", Email: "crojas@ficct.uagrm.edu.bo", Specialty: "Programación"},
		{ID: 4, Name: "Ana Vargas", Email: "avargas@ficct.uagrm.edu.bo", Specialty: "Bases de Datos"},
	}

	seedClassrooms = []schedule.Classroom{
		{ID: 1, Number: "236-10", Type: schedule.RoomAula, FacultyID: 1},
		{ID: 2, Number: "236-11", Type: schedule.RoomAula, FacultyID: 1},
		{ID: 3, Number: "236-41", Type: schedule.RoomLaboratorio, FacultyID: 1},
	}

	seedGroups = []schedule.Group{
		{ID: 1, Label: "SA", SubjectID: 1, TermID: 1, Capacity: 60},
		{ID: 2, Label: "SB", SubjectID: 1, TermID: 1, Capacity: 60},
		{ID: 3, Label: "SA", SubjectID: 2, TermID: 1, Capacity: 50},
		{ID: 4, Label: "SC", SubjectID: 3, TermID: 1, Capacity: 45},
		{ID: 5, Label: "SA", SubjectID: 4, TermID: 1, Capacity: 40},
		{ID: 6, Label: "SA", SubjectID: 5, TermID: 1, Capacity: 40},
		{ID: 7, Label: "SA", SubjectID: 1, TermID: 2, Capacity: 60},
	}

	// one row of blocks per teaching day, ids follow creation order
	seedBlocks = [][2]string{
		{"07:00", "08:30"},
		{"08:30", "10:00"},
		{"10:00", "11:30"},
		{"11:30", "13:00"},
		{"14:00", "15:30"},
		{"15:30", "17:00"},
	}

	seedAssignments = []schedule.NewAssignment{
		{TermID: 1, GroupID: 1, SubjectID: 1, TeacherID: 1, ClassroomID: 1, SlotIDs: []int{1, 13}},
		{TermID: 1, GroupID: 3, SubjectID: 2, TeacherID: 2, ClassroomID: 2, SlotIDs: []int{1, 7}},
		{TermID: 1, GroupID: 4, SubjectID: 3, TeacherID: 3, ClassroomID: 3, SlotIDs: []int{2, 14}},
	}
)

// Seed fills an empty database with a sample FICCT catalog and a few assignments.
func Seed(ctx context.Context, db *DB, validate *validator.Validate) error {
	repo := NewScheduleRepository(db, validate)

	for _, t := range seedTerms {
		if _, err := repo.AddTerm(t); err != nil {
			return errors.Wrapf(err, "seeding term %s", t)
		}
	}
	for _, s := range seedSubjects {
		if _, err := repo.AddSubject(s); err != nil {
			return errors.Wrapf(err, "seeding subject %s", s.Code)
		}
	}
	for _, t := range seedTeachers {
		if _, err := repo.AddTeacher(t); err != nil {
			return errors.Wrapf(err, "seeding teacher %s", t.Name)
		}
	}
	for _, c := range seedClassrooms {
		if _, err := repo.AddClassroom(c); err != nil {
			return errors.Wrapf(err, "seeding classroom %s", c.Number)
		}
	}
	for _, g := range seedGroups {
		if _, err := repo.AddGroup(g); err != nil {
			return errors.Wrapf(err, "seeding group %s", g.Label)
		}
	}
	for _, day := range schedule.Weekdays {
		for _, b := range seedBlocks {
			if _, err := repo.AddTimeSlot(schedule.TimeSlot{Day: day, Start: b[0], End: b[1]}); err != nil {
				return errors.Wrapf(err, "seeding slot %s %s", day, b[0])
			}
		}
	}
	for _, na := range seedAssignments {
		if _, err := repo.CreateAssignment(ctx, na); err != nil {
			return errors.Wrapf(err, "seeding assignment of group %d", na.GroupID)
		}
	}
	return nil
}
