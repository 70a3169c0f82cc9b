package schedule

import (
	"context"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ficct/horarios/core"
)

// ViewConfig configures a View. Zero values fall back to sane defaults.
type ViewConfig struct {
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
	Validate             *validator.Validate
	Translator           ut.Translator
	Logger               core.Logger
}

// View is the scheduling screen: it owns the reference cache, the filter controller, the builder,
// the conflict reporter and the organized timetable. Views share no state.
type View struct {
	cache      *Cache
	controller *Controller
	builder    *Builder
	reporter   *Reporter

	mu        sync.RWMutex
	timetable Timetable
}

func NewView(backend Backend, cfg ViewConfig) *View {
	v := &View{
		cache:     NewCache(backend, cfg.CacheTTL, cfg.CacheCleanupInterval),
		reporter:  NewReporter(),
		timetable: Organize(nil),
	}
	v.controller = NewController(backend, v.organize, cfg.Logger)
	v.builder = NewBuilder(BuilderDeps{
		Backend:    backend,
		Validate:   cfg.Validate,
		Translator: cfg.Translator,
		Reporter:   v.reporter,
		Reload:     v.controller.Reload,
		Logger:     cfg.Logger,
	})
	return v
}

// Mount loads the catalogs and selects the first listed term, if any.
// Nothing is fetched when the catalogs fail to load.
func (v *View) Mount(ctx context.Context) error {
	cat, err := v.cache.Load(ctx)
	if err != nil {
		return err
	}
	if len(cat.Terms) == 0 {
		return nil
	}
	return v.controller.SelectTerm(ctx, cat.Terms[0].ID)
}

func (v *View) organize(_ Filter, assignments []Assignment) {
	tt := Organize(assignments)
	v.mu.Lock()
	v.timetable = tt
	v.mu.Unlock()
}

// Timetable returns the grid of the latest applied fetch.
func (v *View) Timetable() Timetable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.timetable
}

// TermDeleted reacts to the deletion of a term; the catalog is reloaded on next access.
func (v *View) TermDeleted(termID int) {
	v.cache.Invalidate()
	v.controller.TermDeleted(termID)
}

func (v *View) State() State {
	return v.controller.State()
}

func (v *View) Filter() Filter {
	return v.controller.Filter()
}

// Catalog returns the reference snapshot, reloading it after expiry.
func (v *View) Catalog(ctx context.Context) (*Catalog, error) {
	return v.cache.Catalog(ctx)
}

func (v *View) Controller() *Controller {
	return v.controller
}

func (v *View) Builder() *Builder {
	return v.builder
}

func (v *View) Reporter() *Reporter {
	return v.reporter
}
