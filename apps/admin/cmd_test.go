package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/ficct/horarios/apps/api/echo"
	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/session"
	"github.com/ficct/horarios/core/user"
	archivesvc "github.com/ficct/horarios/services/archive"
	inmemdb "github.com/ficct/horarios/storage/database/inmem"
	"github.com/ficct/horarios/tests"
)

const testPwd = "Secr3t!pass"

// requestLog counts backend requests per path.
type requestLog struct {
	mu   sync.Mutex
	hits map[string]int
}

func (l *requestLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.hits[r.URL.Path]++
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (l *requestLog) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits[path]
}

// setup runs the CLI against a seeded backend.
func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	cli, out, _ := setupWithLog(t)
	return cli, out
}

func setupWithLog(t *testing.T) (*commandLine, *bytes.Buffer, *requestLog) {
	t.Helper()

	db := testutil.SeededDB(t)
	usrRepo := inmemdb.NewUserRepository(db)
	validate, translator := testutil.Validate()
	logs := new(bytes.Buffer)

	app := echoapi.NewServer(
		testutil.Config(),
		testutil.Logger(logs),
		user.NewService(usrRepo),
		inmemdb.NewScheduleRepository(db, validate),
		validate,
		translator,
	)
	reqLog := &requestLog{hits: make(map[string]int)}
	srv := httptest.NewServer(reqLog.wrap(app))
	t.Cleanup(srv.Close)

	testutil.CreateUser(t, usrRepo, "Admin", "admin", testPwd, []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, usrRepo, "Viewer", "viewer", testPwd, []string{user.RoleViewer}, true)

	conf := testutil.Config()
	conf.Backend.BaseURL = srv.URL + "/api"
	out := new(bytes.Buffer)
	cli := newCommandLine(conf, out, testutil.Logger(logs), session.NewManager(session.NewMemoryStore()))
	return cli, out, reqLog
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func loginAs(t *testing.T, cli *commandLine, uname string) {
	t.Helper()
	mockPassword(testPwd)
	if err := cli.run([]string{"admin", "login", "-username", uname}); err != nil {
		t.Fatalf("login(%s) failed: %v", uname, err)
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantErrFn  func(error) bool
	wantOut    []string
	notOut     []string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			case tt.wantErrFn != nil:
				assert.True(t, tt.wantErrFn(err), "unexpected error %v", err)
			default:
				require.NoError(t, err)
			}
			for _, s := range tt.wantOut {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.notOut {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no session", args: []string{"timetable"}, wantErr: errNoSession},
		{name: "whoami without session", args: []string{"whoami"}, wantErr: errNoSession},
		{name: "logout without session", args: []string{"logout"}, wantOut: []string{"not logged in"}},
	})
}

func Test_commandLine_login(t *testing.T) {
	cli, out := setup(t)

	tests := []struct {
		cliTest
		pwd string
	}{
		{cliTest: cliTest{name: "no args", args: []string{"login"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "no password", args: []string{"login", "-username", "admin"}, wantErr: errHelp}},
		{
			cliTest: cliTest{name: "wrong password", args: []string{"login", "-username", "admin"}, wantErrFn: core.IsTransport},
			pwd:     "lol",
		},
		{
			cliTest: cliTest{name: "ok", args: []string{"login", "-username", "admin"}, wantOut: []string{"logged in as Admin (admin)"}},
			pwd:     testPwd,
		},
	}
	for _, tt := range tests {
		mockPassword(tt.pwd)
		runCLITests(t, cli, out, []cliTest{tt.cliTest})
	}

	assert.True(t, cli.session.Active())
	runCLITests(t, cli, out, []cliTest{
		{name: "whoami", args: []string{"whoami"}, wantOut: []string{"Admin (admin)", user.RoleAdmin}},
		{name: "logout", args: []string{"logout"}, wantOut: []string{"logged out"}},
		{name: "session ended", args: []string{"terms"}, wantErr: errNoSession},
	})
	assert.False(t, cli.session.Active())
}

func Test_commandLine_catalogs(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "viewer")

	runCLITests(t, cli, out, []cliTest{
		{name: "terms", args: []string{"terms"}, wantOut: []string{"2025-I", "2024-II"}},
		{name: "slots", args: []string{"slots"}, wantOut: []string{"Lunes", "07:00-08:30", "Sábado"}},
		{name: "all teachers", args: []string{"teachers"}, wantOut: []string{"Juan Pérez", "María Gómez", "Ana Vargas"}},
		{
			name:    "suggested teachers",
			args:    []string{"teachers", "-name", "Pérez"},
			wantOut: []string{"Juan Pérez"},
			notOut:  []string{"María Gómez"},
		},
		{name: "no suggestion", args: []string{"teachers", "-name", "zzzzzzzz"}, wantOut: []string{"no teacher matches"}},
	})
}

type fakeArchive struct {
	saved []string
}

func (a *fakeArchive) Save(_ context.Context, term schedule.AcademicTerm, _ schedule.Filter, _ schedule.Timetable) (string, error) {
	key := fmt.Sprintf("timetables/%s/snap-%d.json", term, len(a.saved)+1)
	a.saved = append(a.saved, key)
	return key, nil
}

func (a *fakeArchive) List(_ context.Context, term string) ([]archivesvc.Entry, error) {
	entries := make([]archivesvc.Entry, 0, len(a.saved))
	for _, key := range a.saved {
		entries = append(entries, archivesvc.Entry{Key: key, Size: 42, LastModified: time.Now()})
	}
	return entries, nil
}

func Test_commandLine_timetable(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "viewer")

	archive := new(fakeArchive)
	newArchiveFunc = func(context.Context, *core.Config, core.Logger) (archiver, error) {
		return archive, nil
	}
	t.Cleanup(func() { newArchiveFunc = newArchive })

	xlsxPath := filepath.Join(t.TempDir(), "horario.xlsx")

	runCLITests(t, cli, out, []cliTest{
		{
			name:    "latest term",
			args:    []string{"timetable"},
			wantOut: []string{"Gestión 2025-I", "MAT101 - SA", "INF110 - SA", "INF120 - SC", "6 entries"},
		},
		{name: "term without assignments", args: []string{"timetable", "-term", "2"}, wantOut: []string{"Gestión 2024-II", "no assignments"}},
		{name: "unknown term", args: []string{"timetable", "-term", "9"}, wantErrFn: core.IsValidation},
		{name: "two filters", args: []string{"timetable", "-teacher", "1", "-classroom", "1"}, wantErr: errAmbiguousBy},
		{
			name:    "by teacher name",
			args:    []string{"timetable", "-term", "1", "-teacher-name", "Pérez"},
			wantOut: []string{"Gestión 2025-I / Juan Pérez", "MAT101 - SA", "2 entries"},
			notOut:  []string{"INF110"},
		},
		{name: "unknown teacher name", args: []string{"timetable", "-teacher-name", "zzzzzzzz"}, wantErrFn: core.IsValidation},
		{
			name:    "by classroom",
			args:    []string{"timetable", "-term", "1", "-classroom", "3"},
			wantOut: []string{"Aula 236-41", "INF120 - SC"},
			notOut:  []string{"MAT101"},
		},
		{
			name:    "export and archive",
			args:    []string{"timetable", "-term", "1", "-xlsx", xlsxPath, "-archive"},
			wantOut: []string{"written to " + xlsxPath, "archived as timetables/2025-I/snap-1.json"},
		},
		{name: "archives", args: []string{"archives", "-term", "2025-I"}, wantOut: []string{"timetables/2025-I/snap-1.json"}},
	})

	info, err := os.Stat(xlsxPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func Test_commandLine_timetable_catalogOnce(t *testing.T) {
	cli, out, reqLog := setupWithLog(t)
	loginAs(t, cli, "viewer")

	runCLITests(t, cli, out, []cliTest{
		{name: "latest term", args: []string{"timetable"}, wantOut: []string{"Gestión 2025-I"}},
		{name: "given term", args: []string{"timetable", "-term", "2"}, wantOut: []string{"Gestión 2024-II"}},
	})

	for _, path := range []string{"/api/gestiones", "/api/materias", "/api/docentes", "/api/aulas", "/api/grupos", "/api/horarios"} {
		assert.Equal(t, 1, reqLog.count(path), path)
	}
}

func Test_commandLine_timetable_filters(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "viewer")

	runCLITests(t, cli, out, []cliTest{
		{name: "by teacher", args: []string{"timetable", "-term", "1", "-teacher", "1"}, wantOut: []string{"Juan Pérez", "2 entries"}},
		{
			name:    "term only drops the previous filter",
			args:    []string{"timetable", "-term", "1"},
			wantOut: []string{"6 entries"},
			notOut:  []string{"/ Juan Pérez"},
		},
	})
	assert.Equal(t, schedule.Filter{TermID: 1}, cli.view.Filter())
}

func Test_commandLine_assignments(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "admin")

	runCLITests(t, cli, out, []cliTest{
		{
			name:      "conflict",
			args:      []string{"assign", "-term", "1", "-group", "2", "-subject", "1", "-teacher", "1", "-classroom", "3", "-slots", "1"},
			wantErrFn: func(err error) bool { var cErr *schedule.ConflictError; return errors.As(err, &cErr) },
			wantOut:   []string{"conflicts:", "teacher Juan Pérez is already assigned to MAT101 group SA"},
		},
		{name: "malformed slots", args: []string{"assign", "-term", "1", "-slots", "1,x"}, wantErrFn: core.IsValidation},
		{name: "missing fields", args: []string{"assign", "-term", "1"}, wantErrFn: core.IsValidation},
		{
			name:    "created",
			args:    []string{"assign", "-term", "1", "-group", "2", "-subject", "1", "-teacher", "4", "-classroom", "3", "-slots", "3, 15"},
			wantOut: []string{"assignment 4 created: MAT101 SB, Ana Vargas, 236-41"},
		},
		{name: "reslot", args: []string{"reslot", "-id", "4", "-slots", "4"}, wantOut: []string{"assignment 4 now uses slots 4"}},
		{name: "unassign", args: []string{"unassign", "-id", "4"}, wantOut: []string{"assignment 4 deleted"}},
		{name: "unassign again", args: []string{"unassign", "-id", "4"}, wantErrFn: core.IsTransport},
	})

	// the write reloaded the selected term
	assert.Equal(t, 1, cli.view.Filter().TermID)
	assert.Equal(t, schedule.Loaded, cli.view.State())
	assert.Equal(t, 6, cli.view.Timetable().Len())
}

func Test_commandLine_viewerCannotSchedule(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "viewer")

	runCLITests(t, cli, out, []cliTest{
		{
			name:      "assign",
			args:      []string{"assign", "-term", "1", "-group", "2", "-subject", "1", "-teacher", "4", "-classroom", "3", "-slots", "3"},
			wantErrFn: core.IsTransport,
		},
		{name: "delete term", args: []string{"deleteterm", "-id", "2"}, wantErrFn: core.IsTransport},
	})
}

func Test_commandLine_deletes(t *testing.T) {
	cli, out := setup(t)
	loginAs(t, cli, "admin")

	runCLITests(t, cli, out, []cliTest{
		{name: "group without id", args: []string{"deletegroup"}, wantErr: errHelp},
		{name: "group", args: []string{"deletegroup", "-id", "1"}, wantOut: []string{"group 1 deleted"}},
		{name: "group again", args: []string{"deletegroup", "-id", "1"}, wantErrFn: core.IsTransport},
		{name: "timetable before", args: []string{"timetable", "-term", "2"}, wantOut: []string{"Gestión 2024-II"}},
		{name: "term", args: []string{"deleteterm", "-id", "2"}, wantOut: []string{"term 2 deleted"}},
		{name: "terms after", args: []string{"terms"}, wantOut: []string{"2025-I"}, notOut: []string{"2024-II"}},
	})

	// the deleted term was the selected one
	assert.Equal(t, schedule.NoTermSelected, cli.view.State())
}
