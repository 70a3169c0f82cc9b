package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ficct/horarios/core"
)

type mapRepo struct {
	users map[int]User
}

func (r *mapRepo) CheckUsernameUniqueness(username string) error {
	for _, u := range r.users {
		if u.Username == username {
			return ErrUsernameExists
		}
	}
	return nil
}

func (r *mapRepo) CreateUser(u User) (User, error) {
	u.ID = len(r.users) + 1
	r.users[u.ID] = u
	return u, nil
}

func (r *mapRepo) GetUserByID(id int) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *mapRepo) GetUserByUsername(username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *mapRepo) SetLastLogin(id int, at time.Time) error {
	u := r.users[id]
	u.LastLogin = at
	r.users[id] = u
	return nil
}

func TestNewUser_Validate(t *testing.T) {
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	InitValidators(validate, translator)
	svc := NewService(&mapRepo{users: map[int]User{1: {ID: 1, Username: "admin"}}})

	valid := NewUser{Name: "Ana Gómez", Username: "agomez", Password: "Xk9#mQ2!", PasswordConfirm: "Xk9#mQ2!"}

	tests := []struct {
		name      string
		change    func(nu *NewUser)
		wantField string
		wantMsg   string
	}{
		{name: "valid", change: func(*NewUser) {}},
		{name: "username taken", change: func(nu *NewUser) { nu.Username = " ADMIN " }, wantField: "username", wantMsg: ErrUsernameExists.Error()},
		{name: "bad username", change: func(nu *NewUser) { nu.Username = "a-gomez" }, wantField: "username", wantMsg: "only alphanumeric characters and underscores are allowed"},
		{name: "short password", change: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Xk9#", "Xk9#" }, wantField: "password", wantMsg: pwdMinLenText},
		{name: "numeric password", change: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "12345678", "12345678" }, wantField: "password", wantMsg: pwdNotAllNumText},
		{name: "simple password", change: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "abcdefgh", "abcdefgh" }, wantField: "password", wantMsg: pwdComplexityText},
		{name: "password like username", change: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Agomez#1", "Agomez#1" }, wantField: "password", wantMsg: pwdAttrSimText},
		{name: "unknown role", change: func(nu *NewUser) { nu.Roles = []string{"root"} }, wantField: "roles", wantMsg: allRolesText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid
			tt.change(&nu)
			err := nu.Validate(validate, svc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			err = core.TranslateValidation(err, translator)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "want ValidationError, got %v", err)
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			assert.Equal(t, tt.wantMsg, vErr.Fields[0].Error)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	repo := &mapRepo{users: map[int]User{}}
	svc := NewService(repo)
	usr, err := svc.Create(NewUser{Name: "Ana", Username: "ana", Password: "Xk9#mQ2!", Roles: []string{RoleScheduler}})
	require.NoError(t, err)

	inactive, err := svc.Create(NewUser{Name: "Bob", Username: "bob", Password: "Xk9#mQ2!"})
	require.NoError(t, err)
	inactive.IsActive = false
	repo.users[inactive.ID] = inactive

	tests := []struct {
		name    string
		creds   Credentials
		wantErr error
	}{
		{name: "ok", creds: Credentials{Username: "ANA", Password: "Xk9#mQ2!"}},
		{name: "wrong password", creds: Credentials{Username: "ana", Password: "nope"}, wantErr: ErrInvalidCredentials},
		{name: "unknown user", creds: Credentials{Username: "zoe", Password: "Xk9#mQ2!"}, wantErr: ErrInvalidCredentials},
		{name: "inactive", creds: Credentials{Username: "bob", Password: "Xk9#mQ2!"}, wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(tt.creds)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				assert.Equal(t, usr.ID, got.ID)
				assert.Equal(t, now, got.LastLogin)
				assert.Equal(t, now, repo.users[usr.ID].LastLogin)
			}
		})
	}
}

func TestUser_roles(t *testing.T) {
	admin := User{Roles: []string{RoleAdminOwner}}
	scheduler := User{Roles: []string{RoleScheduler}}
	viewer := User{Roles: []string{RoleViewer}}

	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CanSchedule())
	assert.False(t, scheduler.IsAdmin())
	assert.True(t, scheduler.CanSchedule())
	assert.False(t, viewer.CanSchedule())
	assert.Equal(t, 30, MaxRolePriority(append(viewer.Roles, admin.Roles...)))
}
