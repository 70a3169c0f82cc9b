package schedule

import (
	"context"
	"sync"
	"sync/atomic"
)

// stubBackend serves canned catalogs and lets tests override single calls.
type stubBackend struct {
	mu sync.Mutex

	terms      []AcademicTerm
	subjects   []Subject
	teachers   []Teacher
	classrooms []Classroom
	groups     []Group
	slots      []TimeSlot

	listErr    error
	catalogErr error

	listFunc   func(ctx context.Context, f Filter) ([]Assignment, error)
	createFunc func(ctx context.Context, na NewAssignment) (Assignment, error)
	updateFunc func(ctx context.Context, id int, slotIDs []int) (Assignment, error)
	deleteFunc func(ctx context.Context, id int) error

	assignments []Assignment
	filters     []Filter
	calls       int32
}

func (b *stubBackend) ListTerms(context.Context) ([]AcademicTerm, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.terms, b.catalogErr
}

func (b *stubBackend) ListSubjects(context.Context) ([]Subject, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.subjects, nil
}

func (b *stubBackend) ListTeachers(context.Context) ([]Teacher, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.teachers, nil
}

func (b *stubBackend) ListClassrooms(context.Context) ([]Classroom, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.classrooms, nil
}

func (b *stubBackend) ListGroups(context.Context) ([]Group, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.groups, nil
}

func (b *stubBackend) ListTimeSlots(context.Context) ([]TimeSlot, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.slots, nil
}

func (b *stubBackend) ListAssignments(ctx context.Context, f Filter) ([]Assignment, error) {
	atomic.AddInt32(&b.calls, 1)
	b.mu.Lock()
	b.filters = append(b.filters, f)
	b.mu.Unlock()
	if b.listFunc != nil {
		return b.listFunc(ctx, f)
	}
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []Assignment
	for _, a := range b.assignments {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *stubBackend) CreateAssignment(ctx context.Context, na NewAssignment) (Assignment, error) {
	atomic.AddInt32(&b.calls, 1)
	if b.createFunc != nil {
		return b.createFunc(ctx, na)
	}
	return Assignment{ID: 1, TermID: na.TermID, GroupID: na.GroupID}, nil
}

func (b *stubBackend) UpdateAssignmentSlots(ctx context.Context, id int, slotIDs []int) (Assignment, error) {
	atomic.AddInt32(&b.calls, 1)
	if b.updateFunc != nil {
		return b.updateFunc(ctx, id, slotIDs)
	}
	return Assignment{ID: id}, nil
}

func (b *stubBackend) DeleteAssignment(ctx context.Context, id int) error {
	atomic.AddInt32(&b.calls, 1)
	if b.deleteFunc != nil {
		return b.deleteFunc(ctx, id)
	}
	return nil
}

func (b *stubBackend) callCount() int {
	return int(atomic.LoadInt32(&b.calls))
}

// scenario fixtures

var (
	slotMO1 = TimeSlot{ID: 1, Day: Monday, Start: "08:00:00", End: "09:30:00"}
	slotMO2 = TimeSlot{ID: 2, Day: Monday, Start: "09:30", End: "11:00"}
	slotTU1 = TimeSlot{ID: 3, Day: Tuesday, Start: "08:00", End: "09:30"}

	asgSA = Assignment{
		ID: 1, GroupID: 1, SubjectID: 1, TeacherID: 1, ClassroomID: 1, TermID: 1,
		Slots:       []TimeSlot{slotMO1},
		SubjectName: "Cálculo I", SubjectCode: "CALC1", GroupLabel: "SA", TeacherName: "Pérez", ClassroomNumber: "101",
	}
	asgSB = Assignment{
		ID: 2, GroupID: 2, SubjectID: 1, TeacherID: 2, ClassroomID: 2, TermID: 1,
		Slots:       []TimeSlot{slotMO2},
		SubjectName: "Cálculo I", SubjectCode: "CALC1", GroupLabel: "SB", TeacherName: "Gómez", ClassroomNumber: "102",
	}
)
