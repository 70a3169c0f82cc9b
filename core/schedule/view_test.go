package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_Mount(t *testing.T) {
	backend := newCatalogBackend()
	sa, sb := asgSA, asgSB
	sa.TermID, sb.TermID = 2, 2
	backend.assignments = []Assignment{sa, sb}

	v := NewView(backend, ViewConfig{})
	assert.Equal(t, NoTermSelected, v.State())
	assert.True(t, v.Timetable().IsEmpty())

	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, Filter{TermID: 2}, v.Filter())
	assert.Equal(t, Loaded, v.State())

	tt := v.Timetable()
	assert.Equal(t, []TimeBlock{{"08:00", "09:30"}, {"09:30", "11:00"}}, tt.Blocks)
	assert.Len(t, tt.Cell(Monday, TimeBlock{"08:00", "09:30"}), 1)
	assert.Len(t, tt.Cell(Monday, TimeBlock{"09:30", "11:00"}), 1)

	t.Run("submission reloads the grid", func(t *testing.T) {
		moved := sa
		moved.Slots = []TimeSlot{slotTU1}
		backend.updateFunc = func(_ context.Context, id int, _ []int) (Assignment, error) {
			backend.assignments = []Assignment{moved, sb}
			return moved, nil
		}
		_, err := v.Builder().Edit(context.Background(), moved.ID, []int{slotTU1.ID})
		require.NoError(t, err)

		tt := v.Timetable()
		assert.Len(t, tt.Cell(Tuesday, TimeBlock{"08:00", "09:30"}), 1)
		assert.Nil(t, tt.Cell(Monday, TimeBlock{"08:00", "09:30"}))
	})

	t.Run("conflicts are reported", func(t *testing.T) {
		backend.createFunc = func(context.Context, NewAssignment) (Assignment, error) {
			return Assignment{}, NewConflictError(Conflict{Message: "classroom 101 is busy"})
		}
		_, err := v.Builder().Create(context.Background(), NewAssignment{
			TermID: 2, GroupID: 1, SubjectID: 1, TeacherID: 1, ClassroomID: 1, SlotIDs: []int{1},
		})
		assert.Error(t, err)
		assert.Equal(t, []Conflict{{Message: "classroom 101 is busy"}}, v.Reporter().Conflicts())
	})

	t.Run("deleting the active term clears the grid", func(t *testing.T) {
		v.TermDeleted(2)
		assert.Equal(t, NoTermSelected, v.State())
		assert.True(t, v.Timetable().IsEmpty())
		assert.Empty(t, v.Timetable().Blocks)
	})
}

func TestView_Mount_catalogFailure(t *testing.T) {
	backend := newCatalogBackend()
	backend.catalogErr = errors.New("offline")

	v := NewView(backend, ViewConfig{})
	assert.Error(t, v.Mount(context.Background()))
	assert.Equal(t, NoTermSelected, v.State())
	assert.Empty(t, backend.filters)
}

func TestView_Mount_noTerms(t *testing.T) {
	backend := newCatalogBackend()
	backend.terms = nil

	v := NewView(backend, ViewConfig{})
	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, NoTermSelected, v.State())

	cat, err := v.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Teachers, 3)
}
