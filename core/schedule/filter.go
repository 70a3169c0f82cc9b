package schedule

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
)

// Secondary filter query parameters.
const (
	BySubject   = "idmateria"
	ByTeacher   = "iddocente"
	ByClassroom = "idaula"
	ByGroup     = "idgrupo"
)

// Filter narrows the assignment list: a term plus at most one secondary filter.
type Filter struct {
	TermID      int `json:"idgestion" query:"idgestion"`
	SubjectID   int `json:"idmateria,omitempty" query:"idmateria"`
	TeacherID   int `json:"iddocente,omitempty" query:"iddocente"`
	ClassroomID int `json:"idaula,omitempty" query:"idaula"`
	GroupID     int `json:"idgrupo,omitempty" query:"idgrupo"`
}

// Secondary returns the active secondary filter, or ("", 0).
func (f Filter) Secondary() (string, int) {
	switch {
	case f.SubjectID != 0:
		return BySubject, f.SubjectID
	case f.TeacherID != 0:
		return ByTeacher, f.TeacherID
	case f.ClassroomID != 0:
		return ByClassroom, f.ClassroomID
	case f.GroupID != 0:
		return ByGroup, f.GroupID
	}
	return "", 0
}

func (f Filter) secondaryCount() int {
	var n int
	for _, id := range []int{f.SubjectID, f.TeacherID, f.ClassroomID, f.GroupID} {
		if id != 0 {
			n++
		}
	}
	return n
}

// Validate requires a term and rejects more than one secondary filter.
func (f Filter) Validate() error {
	if f.TermID <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "idgestion", Error: "this field is required"})
	}
	if f.secondaryCount() > 1 {
		return core.NewValidationError(errors.New("only one of idmateria, iddocente, idaula or idgrupo may be set"))
	}
	return nil
}

// Values encodes the filter as query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.TermID != 0 {
		v.Set("idgestion", strconv.Itoa(f.TermID))
	}
	if key, id := f.Secondary(); key != "" {
		v.Set(key, strconv.Itoa(id))
	}
	return v
}

// Matches reports whether an assignment passes the filter.
func (f Filter) Matches(a Assignment) bool {
	if f.TermID != 0 && a.TermID != f.TermID {
		return false
	}
	switch key, id := f.Secondary(); key {
	case BySubject:
		return a.SubjectID == id
	case ByTeacher:
		return a.TeacherID == id
	case ByClassroom:
		return a.ClassroomID == id
	case ByGroup:
		return a.GroupID == id
	}
	return true
}

// withSecondary selects one secondary filter. A non-zero id clears the other three; zero clears only `key`.
func (f Filter) withSecondary(key string, id int) Filter {
	if id != 0 {
		f.SubjectID, f.TeacherID, f.ClassroomID, f.GroupID = 0, 0, 0, 0
	}
	switch key {
	case BySubject:
		f.SubjectID = id
	case ByTeacher:
		f.TeacherID = id
	case ByClassroom:
		f.ClassroomID = id
	case ByGroup:
		f.GroupID = id
	}
	return f
}

// State of the filter controller.
type State int

const (
	NoTermSelected State = iota
	Loading
	Loaded
	Empty
)

func (s State) String() string {
	switch s {
	case NoTermSelected:
		return "no term selected"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Listener receives the assignments of the latest settled fetch.
// It runs with the controller locked and must not call back into the Controller.
type Listener func(filter Filter, assignments []Assignment)

// Controller owns the filter state and fetches the matching assignments.
//
// Every fetch takes a new generation number; a response whose generation is no longer the latest
// is dropped, so the last filter change always wins regardless of the order responses arrive in.
type Controller struct {
	mu          sync.Mutex
	backend     Backend
	listener    Listener
	logger      core.Logger
	filter      Filter
	state       State
	settled     State
	gen         uint64
	assignments []Assignment
}

func NewController(backend Backend, listener Listener, logger core.Logger) *Controller {
	return &Controller{
		backend:  backend,
		listener: listener,
		logger:   logger,
		state:    NoTermSelected,
		settled:  NoTermSelected,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Assignments returns a copy of the last applied results.
func (c *Controller) Assignments() []Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Assignment(nil), c.assignments...)
}

// SelectTerm switches the term and fetches. The active secondary filter is kept; only ClearFilters
// drops it. Zero deselects the term.
func (c *Controller) SelectTerm(ctx context.Context, termID int) error {
	if termID == 0 {
		c.reset()
		return nil
	}
	return c.fetch(ctx, func(f Filter) Filter {
		f.TermID = termID
		return f
	})
}

func (c *Controller) SelectSubject(ctx context.Context, id int) error {
	return c.selectSecondary(ctx, BySubject, id)
}

func (c *Controller) SelectTeacher(ctx context.Context, id int) error {
	return c.selectSecondary(ctx, ByTeacher, id)
}

func (c *Controller) SelectClassroom(ctx context.Context, id int) error {
	return c.selectSecondary(ctx, ByClassroom, id)
}

func (c *Controller) SelectGroup(ctx context.Context, id int) error {
	return c.selectSecondary(ctx, ByGroup, id)
}

// ClearFilters drops every secondary filter but keeps the term.
func (c *Controller) ClearFilters(ctx context.Context) error {
	return c.fetch(ctx, func(f Filter) Filter { return Filter{TermID: f.TermID} })
}

// Reload fetches again with the current filter.
func (c *Controller) Reload(ctx context.Context) error {
	return c.fetch(ctx, func(f Filter) Filter { return f })
}

// TermDeleted resets the controller when `termID` is the active term. In-flight fetches are discarded.
func (c *Controller) TermDeleted(termID int) {
	c.mu.Lock()
	active := c.filter.TermID == termID
	c.mu.Unlock()
	if active {
		c.reset()
	}
}

func (c *Controller) selectSecondary(ctx context.Context, key string, id int) error {
	return c.fetch(ctx, func(f Filter) Filter { return f.withSecondary(key, id) })
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.filter = Filter{}
	c.state = NoTermSelected
	c.settled = NoTermSelected
	c.assignments = nil
	if c.listener != nil {
		c.listener(c.filter, nil)
	}
}

// fetch applies `change` to the filter and loads the matching assignments.
// Without a term the filter is only recorded.
func (c *Controller) fetch(ctx context.Context, change func(Filter) Filter) error {
	c.mu.Lock()
	filter := change(c.filter)
	c.filter = filter
	if filter.TermID == 0 {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	if c.state != Loading {
		c.settled = c.state
	}
	c.state = Loading
	c.mu.Unlock()

	assignments, err := c.backend.ListAssignments(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		// keep the previous results
		c.state = c.settled
		if c.state == NoTermSelected {
			c.state = Empty
		}
		if c.logger != nil && !core.IsAuth(err) {
			c.logger.Warn("fetching assignments", err, map[string]interface{}{"filter": filter})
		}
		return errors.Wrap(err, "fetching assignments")
	}

	c.assignments = assignments
	if len(assignments) == 0 {
		c.state = Empty
	} else {
		c.state = Loaded
	}
	c.settled = c.state
	if c.listener != nil {
		c.listener(filter, append([]Assignment(nil), assignments...))
	}
	return nil
}
