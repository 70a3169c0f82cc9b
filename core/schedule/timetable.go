package schedule

import (
	"encoding/json"
	"sort"
	"strings"
)

// Palette of occupant colours, picked by subject id.
var Palette = []string{
	"blue",
	"green",
	"yellow",
	"purple",
	"pink",
	"indigo",
	"red",
	"orange",
	"teal",
	"cyan",
}

// ColorFor returns the display colour of a subject.
func ColorFor(subjectID int) string {
	i := subjectID % len(Palette)
	if i < 0 {
		i += len(Palette)
	}
	return Palette[i]
}

// TimeBlock is a start-end pair with minute precision, "HH:MM".
type TimeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (b TimeBlock) String() string {
	return b.Start + "-" + b.End
}

func (b TimeBlock) Less(o TimeBlock) bool {
	if b.Start != o.Start {
		return b.Start < o.Start
	}
	return b.End < o.End
}

// ParseTimeBlock parses "HH:MM-HH:MM".
func ParseTimeBlock(s string) (TimeBlock, bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return TimeBlock{}, false
	}
	return TimeBlock{Start: NormalizeTime(parts[0]), End: NormalizeTime(parts[1])}, true
}

// CellKey identifies one grid cell.
type CellKey struct {
	Day   Weekday
	Block TimeBlock
}

func (k CellKey) String() string {
	return string(k.Day) + "-" + k.Block.String()
}

// Occupant is what a cell displays for one assignment.
type Occupant struct {
	AssignmentID    int    `json:"idasignacion"`
	SubjectName     string `json:"materia"`
	SubjectCode     string `json:"sigla"`
	GroupLabel      string `json:"grupo"`
	TeacherName     string `json:"docente"`
	ClassroomNumber string `json:"aula"`
	Color           string `json:"color"`
}

// Timetable is the weekly grid built by Organize.
type Timetable struct {
	// Blocks are the distinct time blocks, start-then-end ascending.
	Blocks []TimeBlock
	// Grid maps each occupied cell to its occupants in input order.
	Grid map[CellKey][]Occupant
}

// Organize reshapes assignments into a day × time-block grid.
// Assignments without slots contribute nothing.
func Organize(assignments []Assignment) Timetable {
	tt := Timetable{
		Blocks: make([]TimeBlock, 0),
		Grid:   make(map[CellKey][]Occupant),
	}
	seen := make(map[TimeBlock]bool)

	for _, asg := range assignments {
		if len(asg.Slots) == 0 {
			continue
		}
		occ := Occupant{
			AssignmentID:    asg.ID,
			SubjectName:     asg.SubjectName,
			SubjectCode:     asg.SubjectCode,
			GroupLabel:      asg.GroupLabel,
			TeacherName:     asg.TeacherName,
			ClassroomNumber: string(asg.ClassroomNumber),
			Color:           ColorFor(asg.SubjectID),
		}
		placed := make(map[CellKey]bool, len(asg.Slots))
		for _, slot := range asg.Slots {
			key := slot.Cell()
			if placed[key] {
				continue
			}
			placed[key] = true
			if !seen[key.Block] {
				seen[key.Block] = true
				tt.Blocks = append(tt.Blocks, key.Block)
			}
			tt.Grid[key] = append(tt.Grid[key], occ)
		}
	}

	sort.Slice(tt.Blocks, func(i, j int) bool { return tt.Blocks[i].Less(tt.Blocks[j]) })
	return tt
}

// Cell returns the occupants of a cell; nil when empty.
func (tt Timetable) Cell(day Weekday, block TimeBlock) []Occupant {
	return tt.Grid[CellKey{Day: day, Block: block}]
}

// Days returns the weekday columns of the grid.
func (tt Timetable) Days() []Weekday {
	return Weekdays
}

// Len counts all occupant entries of the grid.
func (tt Timetable) Len() int {
	var n int
	for _, occs := range tt.Grid {
		n += len(occs)
	}
	return n
}

func (tt Timetable) IsEmpty() bool {
	return len(tt.Grid) == 0
}

type timetableJSON struct {
	Blocks []string              `json:"blocks"`
	Grid   map[string][]Occupant `json:"grid"`
}

func (tt Timetable) MarshalJSON() ([]byte, error) {
	out := timetableJSON{
		Blocks: make([]string, 0, len(tt.Blocks)),
		Grid:   make(map[string][]Occupant, len(tt.Grid)),
	}
	for _, b := range tt.Blocks {
		out.Blocks = append(out.Blocks, b.String())
	}
	for k, occs := range tt.Grid {
		out.Grid[k.String()] = occs
	}
	return json.Marshal(out)
}

func (tt *Timetable) UnmarshalJSON(b []byte) error {
	var in timetableJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	tt.Blocks = make([]TimeBlock, 0, len(in.Blocks))
	for _, s := range in.Blocks {
		if block, ok := ParseTimeBlock(s); ok {
			tt.Blocks = append(tt.Blocks, block)
		}
	}
	tt.Grid = make(map[CellKey][]Occupant, len(in.Grid))
	for s, occs := range in.Grid {
		parts := strings.SplitN(s, "-", 2)
		if len(parts) != 2 {
			continue
		}
		block, ok := ParseTimeBlock(parts[1])
		if !ok {
			continue
		}
		tt.Grid[CellKey{Day: Weekday(parts[0]), Block: block}] = occs
	}
	return nil
}
