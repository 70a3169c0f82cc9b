package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core/schedule"
)

type scheduleApi struct {
	repo     schedule.Repository
	validate *validator.Validate
}

func registerScheduleAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	repo schedule.Repository,
	validate *validator.Validate,
) {
	api := scheduleApi{
		repo:     repo,
		validate: validate,
	}

	ag := g.Group("", authed...)

	// catalogs
	ag.GET("/gestiones", api.listTerms)
	ag.DELETE("/gestiones/:id", api.destroyTerm, adminMiddleware())
	ag.GET("/materias", api.listSubjects)
	ag.GET("/docentes", api.listTeachers)
	ag.GET("/aulas", api.listClassrooms)
	ag.GET("/grupos", api.listGroups)
	ag.DELETE("/grupos/:id", api.destroyGroup, schedulerMiddleware())
	ag.GET("/horarios", api.listTimeSlots)

	// assignments
	ag.GET("/asignaciones", api.query)
	ag.POST("/asignaciones", api.create, schedulerMiddleware())
	ag.PUT("/asignaciones/:id/horarios", api.updateSlots, schedulerMiddleware())
	ag.DELETE("/asignaciones/:id", api.destroy, schedulerMiddleware())

	// organized grid
	ag.GET("/horario", api.timetable)
}

// Catalog handlers

func (api *scheduleApi) listTerms(ctx echo.Context) error {
	terms, err := api.repo.ListTerms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing terms")
	}
	return success(ctx, http.StatusOK, terms)
}

func (api *scheduleApi) listSubjects(ctx echo.Context) error {
	subjects, err := api.repo.ListSubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return success(ctx, http.StatusOK, subjects)
}

func (api *scheduleApi) listTeachers(ctx echo.Context) error {
	teachers, err := api.repo.ListTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	return success(ctx, http.StatusOK, teachers)
}

func (api *scheduleApi) listClassrooms(ctx echo.Context) error {
	rooms, err := api.repo.ListClassrooms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return success(ctx, http.StatusOK, rooms)
}

func (api *scheduleApi) listGroups(ctx echo.Context) error {
	groups, err := api.repo.ListGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	return success(ctx, http.StatusOK, groups)
}

func (api *scheduleApi) listTimeSlots(ctx echo.Context) error {
	slots, err := api.repo.ListTimeSlots(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing time slots")
	}
	return success(ctx, http.StatusOK, slots)
}

func (api *scheduleApi) destroyTerm(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.repo.DeleteTerm(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting term")
	}
	return successNoData(ctx)
}

func (api *scheduleApi) destroyGroup(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.repo.DeleteGroup(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return successNoData(ctx)
}

// Assignment handlers

func (api *scheduleApi) query(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	asgs, err := api.repo.ListAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return success(ctx, http.StatusOK, asgs)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.repo.CreateAssignment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return success(ctx, http.StatusCreated, asg)
}

func (api *scheduleApi) updateSlots(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data SlotsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SlotsRequest")
	}
	edit := schedule.EditAssignment{ID: id, SlotIDs: data.SlotIDs}
	if err := edit.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.repo.UpdateAssignmentSlots(ctx.Request().Context(), edit.ID, edit.SlotIDs)
	if err != nil {
		return errors.Wrap(err, "updating assignment slots")
	}
	return success(ctx, http.StatusOK, asg)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.repo.DeleteAssignment(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return successNoData(ctx)
}

func (api *scheduleApi) timetable(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	asgs, err := api.repo.ListAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return success(ctx, http.StatusOK, schedule.Organize(asgs))
}
