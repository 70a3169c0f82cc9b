package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficct/horarios/core"
)

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{name: "no term", filter: Filter{SubjectID: 1}, wantErr: true},
		{name: "term only", filter: Filter{TermID: 1}},
		{name: "one secondary", filter: Filter{TermID: 1, TeacherID: 3}},
		{name: "two secondaries", filter: Filter{TermID: 1, TeacherID: 3, GroupID: 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.True(t, core.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter_Values(t *testing.T) {
	assert.Equal(t, "iddocente=3&idgestion=1", Filter{TermID: 1, TeacherID: 3}.Values().Encode())
	assert.Equal(t, "idgestion=1", Filter{TermID: 1}.Values().Encode())
}

func TestController_mutualExclusivity(t *testing.T) {
	backend := &stubBackend{assignments: []Assignment{asgSA, asgSB}}
	c := NewController(backend, nil, nil)
	ctx := context.Background()

	require.NoError(t, c.SelectTerm(ctx, 1))
	require.NoError(t, c.SelectSubject(ctx, 1))
	assert.Equal(t, Filter{TermID: 1, SubjectID: 1}, c.Filter())

	require.NoError(t, c.SelectTeacher(ctx, 2))
	assert.Equal(t, Filter{TermID: 1, TeacherID: 2}, c.Filter())
	assert.Equal(t, []Assignment{asgSB}, c.Assignments())

	// zero only clears its own filter
	require.NoError(t, c.SelectSubject(ctx, 0))
	assert.Equal(t, Filter{TermID: 1, TeacherID: 2}, c.Filter())

	require.NoError(t, c.SelectGroup(ctx, 1))
	require.NoError(t, c.SelectClassroom(ctx, 1))
	assert.Equal(t, Filter{TermID: 1, ClassroomID: 1}, c.Filter())

	require.NoError(t, c.ClearFilters(ctx))
	assert.Equal(t, Filter{TermID: 1}, c.Filter())

	for _, f := range backend.filters {
		assert.NoError(t, f.Validate(), "sent filter %+v", f)
	}
}

func TestController_states(t *testing.T) {
	backend := &stubBackend{assignments: []Assignment{asgSA}}
	var delivered [][]Assignment
	c := NewController(backend, func(_ Filter, asgs []Assignment) { delivered = append(delivered, asgs) }, nil)
	ctx := context.Background()

	assert.Equal(t, NoTermSelected, c.State())

	// secondary filter without a term fetches nothing
	require.NoError(t, c.SelectTeacher(ctx, 1))
	assert.Equal(t, NoTermSelected, c.State())
	assert.Empty(t, backend.filters)

	require.NoError(t, c.SelectTerm(ctx, 1))
	assert.Equal(t, Loaded, c.State())
	assert.Equal(t, Filter{TermID: 1, TeacherID: 1}, c.Filter())

	// a term change keeps the secondary filter
	require.NoError(t, c.SelectTerm(ctx, 2))
	assert.Equal(t, Filter{TermID: 2, TeacherID: 1}, c.Filter())
	assert.Equal(t, Empty, c.State())
	assert.Equal(t, Filter{TermID: 2, TeacherID: 1}, backend.filters[len(backend.filters)-1])

	require.NoError(t, c.SelectTeacher(ctx, 99))
	require.NoError(t, c.SelectTerm(ctx, 1))
	assert.Equal(t, Filter{TermID: 1, TeacherID: 99}, c.Filter())
	assert.Equal(t, Empty, c.State())

	require.NoError(t, c.ClearFilters(ctx))
	assert.Equal(t, Filter{TermID: 1}, c.Filter())
	assert.Equal(t, Loaded, c.State())
	assert.Len(t, delivered, 5)

	t.Run("failure keeps prior state and data", func(t *testing.T) {
		backend.listErr = core.NewTransportError("list assignments", 500, "boom", nil)
		defer func() { backend.listErr = nil }()

		err := c.Reload(ctx)
		assert.True(t, core.IsTransport(err))
		assert.Equal(t, Loaded, c.State())
		assert.Equal(t, []Assignment{asgSA}, c.Assignments())
		assert.Len(t, delivered, 5)
	})

	t.Run("deleting another term is ignored", func(t *testing.T) {
		c.TermDeleted(2)
		assert.Equal(t, Loaded, c.State())
	})

	t.Run("deleting the active term resets", func(t *testing.T) {
		c.TermDeleted(1)
		assert.Equal(t, NoTermSelected, c.State())
		assert.Equal(t, Filter{}, c.Filter())
		assert.Empty(t, c.Assignments())
		assert.Nil(t, delivered[len(delivered)-1])
	})
}

func TestController_firstFetchFails(t *testing.T) {
	backend := &stubBackend{listErr: errors.New("offline")}
	c := NewController(backend, nil, nil)

	assert.Error(t, c.SelectTerm(context.Background(), 1))
	assert.Equal(t, Empty, c.State())
	assert.Equal(t, 1, c.Filter().TermID)
}

func TestController_staleResponse(t *testing.T) {
	slow := make(chan struct{})
	started := make(chan struct{})
	backend := &stubBackend{
		listFunc: func(_ context.Context, f Filter) ([]Assignment, error) {
			if f.SubjectID == 1 {
				close(started)
				<-slow
				return []Assignment{asgSA}, nil
			}
			return []Assignment{asgSB}, nil
		},
	}
	var last []Assignment
	c := NewController(backend, func(_ Filter, asgs []Assignment) { last = asgs }, nil)
	ctx := context.Background()

	require.NoError(t, c.SelectTerm(ctx, 1))

	done := make(chan error)
	go func() { done <- c.SelectSubject(ctx, 1) }()
	<-started
	assert.Equal(t, Loading, c.State())

	require.NoError(t, c.SelectTeacher(ctx, 2))
	close(slow)
	require.NoError(t, <-done)

	assert.Equal(t, Filter{TermID: 1, TeacherID: 2}, c.Filter())
	assert.Equal(t, []Assignment{asgSB}, c.Assignments())
	assert.Equal(t, []Assignment{asgSB}, last)
	assert.Equal(t, Loaded, c.State())
}
