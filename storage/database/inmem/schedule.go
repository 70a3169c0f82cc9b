package inmemdb

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
)

const (
	tblTerm       = "gestion"
	tblSubject    = "materia"
	tblTeacher    = "docente"
	tblClassroom  = "aula"
	tblGroup      = "grupo"
	tblSlot       = "horario"
	tblAssignment = "asignacion"
)

const conflictMessage = "the assignment collides with existing assignments"

type scheduleRepository struct {
	db       *scheduleTables
	validate *validator.Validate
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

// NewScheduleRepository returns the catalog and assignment tables of `db`.
// Catalog rows are validated with `validate` before insertion.
func NewScheduleRepository(db *DB, validate *validator.Validate) *scheduleRepository {
	return &scheduleRepository{db: db.schedule, validate: validate}
}

func notFound(entity string) error {
	return errors.Wrap(schedule.ErrNotFound, entity)
}

// Catalog inserts. A zero ID takes the next key; explicit ids are kept.

func (repo *scheduleRepository) AddTerm(t schedule.AcademicTerm) (schedule.AcademicTerm, error) {
	if err := repo.validate.Struct(t); err != nil {
		return schedule.AcademicTerm{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	t.ID = repo.id(tblTerm, t.ID)
	repo.db.terms[t.ID] = &t
	return t, nil
}

func (repo *scheduleRepository) AddSubject(s schedule.Subject) (schedule.Subject, error) {
	s.Code = core.CleanUpper(s.Code)
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = repo.id(tblSubject, s.ID)
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *scheduleRepository) AddTeacher(t schedule.Teacher) (schedule.Teacher, error) {
	t.Name = core.CleanString(t.Name)
	repo.db.Lock()
	defer repo.db.Unlock()
	t.ID = repo.id(tblTeacher, t.ID)
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *scheduleRepository) AddClassroom(c schedule.Classroom) (schedule.Classroom, error) {
	if err := repo.validate.Struct(c); err != nil {
		return schedule.Classroom{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	c.ID = repo.id(tblClassroom, c.ID)
	repo.db.classrooms[c.ID] = &c
	return c, nil
}

func (repo *scheduleRepository) AddGroup(g schedule.Group) (schedule.Group, error) {
	if err := g.Validate(repo.validate); err != nil {
		return schedule.Group{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.subjects[g.SubjectID]; !ok {
		return schedule.Group{}, notFound("subject")
	}
	if _, ok := repo.db.terms[g.TermID]; !ok {
		return schedule.Group{}, notFound("term")
	}
	g.ID = repo.id(tblGroup, g.ID)
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *scheduleRepository) AddTimeSlot(s schedule.TimeSlot) (schedule.TimeSlot, error) {
	if err := repo.validate.Struct(s); err != nil {
		return schedule.TimeSlot{}, err
	}
	s.Start, s.End = schedule.NormalizeTime(s.Start), schedule.NormalizeTime(s.End)
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = repo.id(tblSlot, s.ID)
	repo.db.slots[s.ID] = &s
	return s, nil
}

// id assigns the primary key of a new row. Callers hold the lock.
func (repo *scheduleRepository) id(table string, id int) int {
	if id == 0 {
		return repo.db.nextPK(table)
	}
	repo.db.reservePK(table, id)
	return id
}

// Catalog listings

// ListTerms returns the most recent term first.
func (repo *scheduleRepository) ListTerms(context.Context) ([]schedule.AcademicTerm, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	terms := make([]schedule.AcademicTerm, 0, len(repo.db.terms))
	for _, t := range repo.db.terms {
		terms = append(terms, *t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Year != terms[j].Year {
			return terms[i].Year > terms[j].Year
		}
		if pi, pj := periodRank(terms[i].Period), periodRank(terms[j].Period); pi != pj {
			return pi > pj
		}
		return terms[i].ID > terms[j].ID
	})
	return terms, nil
}

func (repo *scheduleRepository) ListSubjects(context.Context) ([]schedule.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]schedule.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

func (repo *scheduleRepository) ListTeachers(context.Context) ([]schedule.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]schedule.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, *t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (repo *scheduleRepository) ListClassrooms(context.Context) ([]schedule.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := make([]schedule.Classroom, 0, len(repo.db.classrooms))
	for _, c := range repo.db.classrooms {
		rooms = append(rooms, *c)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (repo *scheduleRepository) ListGroups(context.Context) ([]schedule.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]schedule.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// ListTimeSlots returns the slots in weekday then start time order.
func (repo *scheduleRepository) ListTimeSlots(context.Context) ([]schedule.TimeSlot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	slots := make([]schedule.TimeSlot, 0, len(repo.db.slots))
	for _, s := range repo.db.slots {
		slots = append(slots, *s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if di, dj := slots[i].Day.Index(), slots[j].Day.Index(); di != dj {
			return di < dj
		}
		if bi, bj := slots[i].Block(), slots[j].Block(); bi != bj {
			return bi.Less(bj)
		}
		return slots[i].ID < slots[j].ID
	})
	return slots, nil
}

// Assignments

func (repo *scheduleRepository) ListAssignments(_ context.Context, filter schedule.Filter) ([]schedule.Assignment, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	asgs := make([]schedule.Assignment, 0)
	for _, row := range repo.sortedRows() {
		asg := repo.resolve(row)
		if filter.Matches(asg) {
			asgs = append(asgs, asg)
		}
	}
	return asgs, nil
}

// GetAssignment returns one assignment with its display fields.
func (repo *scheduleRepository) GetAssignment(_ context.Context, id int) (schedule.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	row, ok := repo.db.assignments[id]
	if !ok {
		return schedule.Assignment{}, notFound("assignment")
	}
	return repo.resolve(row), nil
}

func (repo *scheduleRepository) CreateAssignment(_ context.Context, na schedule.NewAssignment) (schedule.Assignment, error) {
	if err := na.Validate(repo.validate); err != nil {
		return schedule.Assignment{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	row := &assignmentRow{
		termID:      na.TermID,
		groupID:     na.GroupID,
		subjectID:   na.SubjectID,
		teacherID:   na.TeacherID,
		classroomID: na.ClassroomID,
		slotIDs:     na.SlotIDs,
	}
	if err := repo.checkReferences(row); err != nil {
		return schedule.Assignment{}, err
	}
	if err := repo.checkConflicts(row); err != nil {
		return schedule.Assignment{}, err
	}

	row.id = repo.db.nextPK(tblAssignment)
	repo.db.assignments[row.id] = row
	return repo.resolve(row), nil
}

func (repo *scheduleRepository) UpdateAssignmentSlots(_ context.Context, id int, slotIDs []int) (schedule.Assignment, error) {
	edit := schedule.EditAssignment{ID: id, SlotIDs: slotIDs}
	if err := edit.Validate(repo.validate); err != nil {
		return schedule.Assignment{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assignments[id]
	if !ok {
		return schedule.Assignment{}, notFound("assignment")
	}
	row := *orig
	row.slotIDs = edit.SlotIDs
	if err := repo.checkSlots(row.slotIDs); err != nil {
		return schedule.Assignment{}, err
	}
	if err := repo.checkConflicts(&row); err != nil {
		return schedule.Assignment{}, err
	}

	repo.db.assignments[id] = &row
	return repo.resolve(&row), nil
}

func (repo *scheduleRepository) DeleteAssignment(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return notFound("assignment")
	}
	delete(repo.db.assignments, id)
	return nil
}

func (repo *scheduleRepository) DeleteGroup(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return notFound("group")
	}
	repo.deleteGroup(id)
	return nil
}

func (repo *scheduleRepository) DeleteTerm(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.terms[id]; !ok {
		return notFound("term")
	}
	for gid, g := range repo.db.groups {
		if g.TermID == id {
			repo.deleteGroup(gid)
		}
	}
	// rows left pointing at the term through a group of another term
	for aid, row := range repo.db.assignments {
		if row.termID == id {
			delete(repo.db.assignments, aid)
		}
	}
	delete(repo.db.terms, id)
	return nil
}

// deleteGroup cascades to the group's assignments. Callers hold the lock.
func (repo *scheduleRepository) deleteGroup(id int) {
	for aid, row := range repo.db.assignments {
		if row.groupID == id {
			delete(repo.db.assignments, aid)
		}
	}
	delete(repo.db.groups, id)
}

// checkReferences validates the ids of a new assignment. Callers hold the lock.
func (repo *scheduleRepository) checkReferences(row *assignmentRow) error {
	var flds []core.FieldError
	unknown := func(field string) {
		flds = append(flds, core.FieldError{Field: field, Error: "unknown " + field})
	}

	if _, ok := repo.db.terms[row.termID]; !ok {
		unknown("idgestion")
	}
	if _, ok := repo.db.subjects[row.subjectID]; !ok {
		unknown("idmateria")
	}
	if _, ok := repo.db.teachers[row.teacherID]; !ok {
		unknown("iddocente")
	}
	if _, ok := repo.db.classrooms[row.classroomID]; !ok {
		unknown("idaula")
	}
	if g, ok := repo.db.groups[row.groupID]; !ok {
		unknown("idgrupo")
	} else if g.SubjectID != row.subjectID || g.TermID != row.termID {
		flds = append(flds, core.FieldError{Field: "idgrupo", Error: "the group does not belong to the selected subject and term"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return repo.checkSlots(row.slotIDs)
}

func (repo *scheduleRepository) checkSlots(ids []int) error {
	for _, id := range ids {
		if _, ok := repo.db.slots[id]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "horarios", Error: "unknown time slot"})
		}
	}
	return nil
}

// checkConflicts rejects a row that would double-book a teacher or a classroom. Callers hold the lock.
func (repo *scheduleRepository) checkConflicts(row *assignmentRow) error {
	existing := make([]schedule.Assignment, 0, len(repo.db.assignments))
	for _, other := range repo.sortedRows() {
		existing = append(existing, repo.resolve(other))
	}
	if conflicts := schedule.DetectConflicts(existing, repo.resolve(row)); len(conflicts) > 0 {
		return &schedule.ConflictError{Message: conflictMessage, Conflicts: conflicts}
	}
	return nil
}

func (repo *scheduleRepository) sortedRows() []*assignmentRow {
	rows := make([]*assignmentRow, 0, len(repo.db.assignments))
	for _, row := range repo.db.assignments {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	return rows
}

// resolve fills the display fields of a row. Callers hold the lock.
func (repo *scheduleRepository) resolve(row *assignmentRow) schedule.Assignment {
	asg := schedule.Assignment{
		ID:          row.id,
		GroupID:     row.groupID,
		SubjectID:   row.subjectID,
		TeacherID:   row.teacherID,
		ClassroomID: row.classroomID,
		TermID:      row.termID,
		Slots:       make([]schedule.TimeSlot, 0, len(row.slotIDs)),
	}
	for _, id := range row.slotIDs {
		if s, ok := repo.db.slots[id]; ok {
			asg.Slots = append(asg.Slots, *s)
		}
	}
	if s, ok := repo.db.subjects[row.subjectID]; ok {
		asg.SubjectName, asg.SubjectCode = s.Name, s.Code
	}
	if g, ok := repo.db.groups[row.groupID]; ok {
		asg.GroupLabel = g.Label
	}
	if t, ok := repo.db.teachers[row.teacherID]; ok {
		asg.TeacherName = t.Name
	}
	if c, ok := repo.db.classrooms[row.classroomID]; ok {
		asg.ClassroomNumber = c.Number
	}
	return asg
}

func periodRank(p schedule.Period) int {
	for i, period := range schedule.Periods {
		if p == period {
			return i
		}
	}
	return -1
}
