package schedule

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const catalogKey = "catalog"

// Catalog is an immutable snapshot of the reference data.
type Catalog struct {
	Terms      []AcademicTerm
	Subjects   []Subject
	Teachers   []Teacher
	Classrooms []Classroom
	Groups     []Group
	Slots      []TimeSlot
	LoadedAt   time.Time
}

func (c *Catalog) TermByID(id int) (AcademicTerm, bool) {
	for _, t := range c.Terms {
		if t.ID == id {
			return t, true
		}
	}
	return AcademicTerm{}, false
}

func (c *Catalog) SubjectByID(id int) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

func (c *Catalog) TeacherByID(id int) (Teacher, bool) {
	for _, t := range c.Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return Teacher{}, false
}

func (c *Catalog) ClassroomByID(id int) (Classroom, bool) {
	for _, r := range c.Classrooms {
		if r.ID == id {
			return r, true
		}
	}
	return Classroom{}, false
}

func (c *Catalog) GroupByID(id int) (Group, bool) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

func (c *Catalog) SlotByID(id int) (TimeSlot, bool) {
	for _, s := range c.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// GroupsOf returns the groups of a subject within a term, as the group picker lists them.
func (c *Catalog) GroupsOf(subjectID, termID int) []Group {
	var groups []Group
	for _, g := range c.Groups {
		if g.SubjectID == subjectID && (termID == 0 || g.TermID == termID) {
			groups = append(groups, g)
		}
	}
	return groups
}

// SuggestTeachers returns up to `n` teachers whose name resembles `name`, best match first.
// An exact case-insensitive match is returned alone.
func (c *Catalog) SuggestTeachers(name string, n int) []Teacher {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || n <= 0 {
		return nil
	}

	type scored struct {
		teacher Teacher
		ratio   float64
	}
	var candidates []scored
	sm := difflib.NewMatcher(nil, nil)
	sm.SetSeq2(strings.Split(name, ""))
	for _, t := range c.Teachers {
		tn := strings.ToLower(t.Name)
		if tn == name {
			return []Teacher{t}
		}
		sm.SetSeq1(strings.Split(tn, ""))
		ratio := sm.Ratio()
		if strings.Contains(tn, name) {
			ratio += 1
		}
		if ratio >= 0.5 {
			candidates = append(candidates, scored{t, ratio})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	teachers := make([]Teacher, 0, len(candidates))
	for _, c := range candidates {
		teachers = append(teachers, c.teacher)
	}
	return teachers
}

// Cache loads the reference catalogs of one view and keeps the snapshot for `ttl`.
type Cache struct {
	backend Backend
	store   *cache.Cache
	mu      sync.Mutex
}

// NewCache returns a Cache whose snapshot expires after `ttl`; zero keeps it until the next Load.
func NewCache(backend Backend, ttl, cleanupInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Cache{
		backend: backend,
		store:   cache.New(ttl, cleanupInterval),
	}
}

// Load fetches all six catalogs concurrently. The snapshot is replaced only if every fetch succeeds;
// otherwise the first error is returned and the previous snapshot, if any, stays.
func (c *Cache) Load(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Cache) load(ctx context.Context) (*Catalog, error) {
	var cat Catalog
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		cat.Terms, err = c.backend.ListTerms(gctx)
		return errors.Wrap(err, "loading terms")
	})
	g.Go(func() (err error) {
		cat.Subjects, err = c.backend.ListSubjects(gctx)
		return errors.Wrap(err, "loading subjects")
	})
	g.Go(func() (err error) {
		cat.Teachers, err = c.backend.ListTeachers(gctx)
		return errors.Wrap(err, "loading teachers")
	})
	g.Go(func() (err error) {
		cat.Classrooms, err = c.backend.ListClassrooms(gctx)
		return errors.Wrap(err, "loading classrooms")
	})
	g.Go(func() (err error) {
		cat.Groups, err = c.backend.ListGroups(gctx)
		return errors.Wrap(err, "loading groups")
	})
	g.Go(func() (err error) {
		cat.Slots, err = c.backend.ListTimeSlots(gctx)
		return errors.Wrap(err, "loading time slots")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat.LoadedAt = time.Now()
	c.store.SetDefault(catalogKey, &cat)
	return &cat, nil
}

// Catalog returns the current snapshot, loading it when missing or expired.
func (c *Cache) Catalog(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cat, ok := c.store.Get(catalogKey); ok {
		return cat.(*Catalog), nil
	}
	return c.load(ctx)
}

// Peek returns the snapshot without loading it.
func (c *Cache) Peek() (*Catalog, bool) {
	cat, ok := c.store.Get(catalogKey)
	if !ok {
		return nil, false
	}
	return cat.(*Catalog), true
}

// Invalidate drops the snapshot; the next Catalog call reloads.
func (c *Cache) Invalidate() {
	c.store.Delete(catalogKey)
}
