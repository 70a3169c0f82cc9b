package schedule

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Conflict is one human readable scheduling collision.
type Conflict struct {
	Message string `json:"message"`
}

// ConflictError is returned when the backend rejects a write because of double-booking.
type ConflictError struct {
	Message   string
	Conflicts []Conflict
}

func NewConflictError(conflicts ...Conflict) error {
	return &ConflictError{Conflicts: conflicts}
}

func (err ConflictError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	msgs := make([]string, 0, len(err.Conflicts))
	for _, c := range err.Conflicts {
		msgs = append(msgs, c.Message)
	}
	return "schedule conflict: " + strings.Join(msgs, "; ")
}

// Reporter holds the conflicts of the last failed submission, in the order the backend returned them.
type Reporter struct {
	mu        sync.RWMutex
	conflicts []Conflict
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Report replaces the pending conflicts.
func (r *Reporter) Report(conflicts []Conflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append([]Conflict(nil), conflicts...)
}

func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = nil
}

// Conflicts returns a copy of the pending conflicts.
func (r *Reporter) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Conflict(nil), r.conflicts...)
}

func (r *Reporter) HasConflicts() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conflicts) > 0
}

// Render writes one line per conflict. Nothing is written when there are none.
func (r *Reporter) Render(w io.Writer) error {
	for _, c := range r.Conflicts() {
		if _, err := fmt.Fprintf(w, "- %s\n", c.Message); err != nil {
			return err
		}
	}
	return nil
}

// DetectConflicts lists the collisions `candidate` would create against `existing` assignments:
// same term, a shared time slot, and the same teacher or the same classroom.
// `existing` order is preserved; the candidate itself (same non-zero id) is skipped.
func DetectConflicts(existing []Assignment, candidate Assignment) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if other.TermID != candidate.TermID {
			continue
		}
		if candidate.ID != 0 && other.ID == candidate.ID {
			continue
		}
		sameTeacher := other.TeacherID == candidate.TeacherID
		sameRoom := other.ClassroomID == candidate.ClassroomID
		if !sameTeacher && !sameRoom {
			continue
		}
		for _, slot := range sharedSlots(other.Slots, candidate.Slots) {
			if sameTeacher {
				conflicts = append(conflicts, Conflict{Message: fmt.Sprintf(
					"teacher %s is already assigned to %s group %s on %s",
					nonEmpty(other.TeacherName, fmt.Sprintf("#%d", other.TeacherID)),
					nonEmpty(other.SubjectCode, other.SubjectName),
					other.GroupLabel,
					slot,
				)})
			}
			if sameRoom {
				conflicts = append(conflicts, Conflict{Message: fmt.Sprintf(
					"classroom %s is already taken by %s group %s on %s",
					nonEmpty(string(other.ClassroomNumber), fmt.Sprintf("#%d", other.ClassroomID)),
					nonEmpty(other.SubjectCode, other.SubjectName),
					other.GroupLabel,
					slot,
				)})
			}
		}
	}
	return conflicts
}

// sharedSlots returns the slots of `a` that `b` also occupies, matched by id or by day and time block.
func sharedSlots(a, b []TimeSlot) []TimeSlot {
	var shared []TimeSlot
	for _, sa := range a {
		for _, sb := range b {
			if (sa.ID != 0 && sa.ID == sb.ID) || (sa.Day != "" && sa.Cell() == sb.Cell()) {
				shared = append(shared, sa)
				break
			}
		}
	}
	return shared
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
