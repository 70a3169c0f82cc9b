package schedule

import (
	"context"
	"errors"
)

// Backend is the REST collaborator that owns catalogs and assignments.
//
// Writes rejected because of double-booking return a *ConflictError; expired credentials a *core.AuthError;
// anything else that went wrong on the way a *core.TransportError.
type Backend interface {
	ListTerms(ctx context.Context) ([]AcademicTerm, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	ListGroups(ctx context.Context) ([]Group, error)
	ListTimeSlots(ctx context.Context) ([]TimeSlot, error)

	// ListAssignments returns the assignments of filter.TermID narrowed by at most one secondary filter.
	ListAssignments(ctx context.Context, filter Filter) ([]Assignment, error)
	CreateAssignment(ctx context.Context, na NewAssignment) (Assignment, error)
	// UpdateAssignmentSlots replaces the whole slot set of an assignment.
	UpdateAssignmentSlots(ctx context.Context, id int, slotIDs []int) (Assignment, error)
	DeleteAssignment(ctx context.Context, id int) error
}

// ErrNotFound is returned by a Repository for unknown ids.
var ErrNotFound = errors.New("record not found")

// Repository is the server side of Backend. It owns the tables, rejects double-booking
// with a *ConflictError and cascades deletions.
type Repository interface {
	Backend

	// DeleteGroup removes a group and its assignments.
	DeleteGroup(ctx context.Context, id int) error
	// DeleteTerm removes a term with its groups and their assignments.
	DeleteTerm(ctx context.Context, id int) error
}
