package schedule

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
)

// ReloadFunc re-fetches the assignment list after a successful write.
type ReloadFunc func(ctx context.Context) error

// Builder validates and submits assignment writes.
// It never merges results locally: every successful write triggers the reload hook.
type Builder struct {
	backend    Backend
	validate   *validator.Validate
	translator ut.Translator
	reporter   *Reporter
	reload     ReloadFunc
	logger     core.Logger
}

type BuilderDeps struct {
	Backend    Backend
	Validate   *validator.Validate
	Translator ut.Translator
	Reporter   *Reporter
	Reload     ReloadFunc
	Logger     core.Logger
}

func NewBuilder(deps BuilderDeps) *Builder {
	b := &Builder{
		backend:    deps.Backend,
		validate:   deps.Validate,
		translator: deps.Translator,
		reporter:   deps.Reporter,
		reload:     deps.Reload,
		logger:     deps.Logger,
	}
	if b.translator == nil {
		b.translator = core.NewTranslator()
	}
	if b.validate == nil {
		b.validate = NewValidate(b.translator)
	}
	if b.reporter == nil {
		b.reporter = NewReporter()
	}
	return b
}

func (b *Builder) Reporter() *Reporter {
	return b.reporter
}

// Submit sends a NewAssignment or an EditAssignment.
//
// Validation failures return a *core.ValidationError and never reach the backend. Backend conflicts are
// handed to the Reporter and returned as a *ConflictError. The reporter is cleared first on every call.
func (b *Builder) Submit(ctx context.Context, sub Submission) (Assignment, error) {
	b.reporter.Clear()

	if isNilSubmission(sub) {
		return Assignment{}, core.NewValidationError(errors.New("nothing to submit"))
	}
	if err := sub.Validate(b.validate); err != nil {
		return Assignment{}, core.TranslateValidation(err, b.translator)
	}

	var (
		asg Assignment
		err error
	)
	switch s := sub.(type) {
	case *NewAssignment:
		asg, err = b.backend.CreateAssignment(ctx, *s)
	case *EditAssignment:
		asg, err = b.backend.UpdateAssignmentSlots(ctx, s.ID, s.SlotIDs)
	default:
		return Assignment{}, core.NewValidationError(fmt.Errorf("unsupported submission %T", sub))
	}
	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			b.reporter.Report(cErr.Conflicts)
		}
		return Assignment{}, err
	}

	b.afterWrite(ctx)
	return asg, nil
}

// Create is a shortcut for Submit(ctx, &na).
func (b *Builder) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	return b.Submit(ctx, &na)
}

// Edit is a shortcut for Submit(ctx, &EditAssignment{ID: id, SlotIDs: slotIDs}).
func (b *Builder) Edit(ctx context.Context, id int, slotIDs []int) (Assignment, error) {
	return b.Submit(ctx, &EditAssignment{ID: id, SlotIDs: slotIDs})
}

// Delete removes an assignment and reloads. Like Submit, it clears the reporter first.
func (b *Builder) Delete(ctx context.Context, id int) error {
	b.reporter.Clear()
	if id <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "idasignacion", Error: "this field is required"})
	}
	if err := b.backend.DeleteAssignment(ctx, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	b.afterWrite(ctx)
	return nil
}

// afterWrite triggers the reload. The write already succeeded, so a failed reload is only logged;
// the controller keeps its previous results.
func (b *Builder) afterWrite(ctx context.Context) {
	if b.reload == nil {
		return
	}
	if err := b.reload(ctx); err != nil && b.logger != nil {
		b.logger.Warn("reloading assignments after write", err)
	}
}

// isNilSubmission also catches typed nil pointers.
func isNilSubmission(sub Submission) bool {
	switch s := sub.(type) {
	case nil:
		return true
	case *NewAssignment:
		return s == nil
	case *EditAssignment:
		return s == nil
	}
	return false
}
