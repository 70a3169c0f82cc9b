package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
)

// Response is the envelope of every API response.
type Response struct {
	Success   bool                `json:"success"`
	Data      interface{}         `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Errors    map[string]string   `json:"errors,omitempty"`
	Conflicts []schedule.Conflict `json:"conflicts,omitempty"`
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// SlotsRequest replaces the time slots of an assignment.
type SlotsRequest struct {
	SlotIDs []int `json:"horarios"`
}

func success(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Data: data})
}

func successNoData(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{Success: true})
}

// bindFilter reads idgestion and the secondary filters from the query string.
func bindFilter(ctx echo.Context) (schedule.Filter, error) {
	var f schedule.Filter
	var flds []core.FieldError

	params := []struct {
		name string
		dst  *int
	}{
		{"idgestion", &f.TermID},
		{schedule.BySubject, &f.SubjectID},
		{schedule.ByTeacher, &f.TeacherID},
		{schedule.ByClassroom, &f.ClassroomID},
		{schedule.ByGroup, &f.GroupID},
	}
	for _, p := range params {
		val := strings.TrimSpace(ctx.QueryParam(p.name))
		if val == "" {
			continue
		}
		id, err := strconv.Atoi(val)
		if err != nil || id < 0 {
			flds = append(flds, core.FieldError{Field: p.name, Error: "must be a positive integer"})
			continue
		}
		*p.dst = id
	}
	if len(flds) > 0 {
		return schedule.Filter{}, core.NewValidationError(nil, flds...)
	}
	return f, f.Validate()
}

// pathID reads the :id path parameter. Malformed ids never match a record.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
