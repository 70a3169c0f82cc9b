// Package inmemdb keeps the backend tables in process memory. Data is lost on restart.
package inmemdb

import (
	"sync"

	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
)

type (
	DB struct {
		user     *userTable
		schedule *scheduleTables
	}

	userTable struct {
		sync.RWMutex
		pk    int
		table map[int]*user.User
	}

	// assignmentRow stores references only; display fields are resolved on read.
	assignmentRow struct {
		id          int
		termID      int
		groupID     int
		subjectID   int
		teacherID   int
		classroomID int
		slotIDs     []int
	}

	// scheduleTables share one lock: writes check several tables at once.
	scheduleTables struct {
		sync.RWMutex
		pk          map[string]int
		terms       map[int]*schedule.AcademicTerm
		subjects    map[int]*schedule.Subject
		teachers    map[int]*schedule.Teacher
		classrooms  map[int]*schedule.Classroom
		groups      map[int]*schedule.Group
		slots       map[int]*schedule.TimeSlot
		assignments map[int]*assignmentRow
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		schedule: &scheduleTables{
			pk:          make(map[string]int),
			terms:       make(map[int]*schedule.AcademicTerm),
			subjects:    make(map[int]*schedule.Subject),
			teachers:    make(map[int]*schedule.Teacher),
			classrooms:  make(map[int]*schedule.Classroom),
			groups:      make(map[int]*schedule.Group),
			slots:       make(map[int]*schedule.TimeSlot),
			assignments: make(map[int]*assignmentRow),
		},
	}
	return db, nil
}

// nextPK returns the next primary key of `table`. Callers hold the lock.
func (t *scheduleTables) nextPK(table string) int {
	t.pk[table]++
	return t.pk[table]
}

// reservePK keeps the sequence of `table` ahead of an explicit id. Callers hold the lock.
func (t *scheduleTables) reservePK(table string, id int) {
	if id > t.pk[table] {
		t.pk[table] = id
	}
}
