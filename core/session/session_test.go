package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/user"
)

func TestManager(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store)
	assert.False(t, m.Active())

	var ended []error
	m.OnEnd(func(reason error) { ended = append(ended, reason) })

	assert.Error(t, m.Begin(Session{}))

	require.NoError(t, m.Begin(Session{Token: "tkn", User: user.User{ID: 1, Username: "ana"}}))
	assert.Equal(t, "tkn", m.Token())
	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "ana", s.User.Username)
	assert.False(t, s.StartedAt.IsZero())

	// a fresh manager over the same store picks the session up
	other := NewManager(store)
	require.NoError(t, other.Restore())
	assert.Equal(t, "tkn", other.Token())

	authErr := core.NewAuthError("token expired")
	require.NoError(t, m.End(authErr))
	assert.False(t, m.Active())
	assert.Equal(t, []error{authErr}, ended)

	_, err := store.Load()
	assert.Equal(t, ErrNoSession, err)

	// ending twice does not notify again
	require.NoError(t, m.End(nil))
	assert.Len(t, ended, 1)
}

func TestManager_Restore_empty(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Restore())
	assert.False(t, m.Active())
}
