package user

import (
	"errors"
	"time"

	"github.com/ficct/horarios/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckUsernameUniqueness(username string) error
		CreateUser(user User) (User, error)
		GetUserByID(id int) (User, error)
		GetUserByUsername(username string) (User, error)
		SetLastLogin(id int, at time.Time) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(uname string) error {
	if err := svc.repo.CheckUsernameUniqueness(uname); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	usr := User{
		Name:      nu.Name,
		Phone:     nu.Phone,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: NowFunc().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) GetByID(id int) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials of an active account and records the login.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (svc *Service) Authenticate(creds Credentials) (User, error) {
	usr, err := svc.GetByUsername(creds.Username)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(creds.Password) != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = NowFunc().UTC()
	if err := svc.repo.SetLastLogin(usr.ID, usr.LastLogin); err != nil {
		return User{}, err
	}
	return usr, nil
}
