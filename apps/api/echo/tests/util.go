package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/ficct/horarios/apps/api/echo"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
	inmemdb "github.com/ficct/horarios/storage/database/inmem"
	"github.com/ficct/horarios/tests"
)

const testPwd = "Secr3t!pass"

var errMissingToken = envelope{Message: "missing or malformed jwt"}

type fixture struct {
	app     *echoapi.Server
	usrRepo user.Repository
	logs    *bytes.Buffer

	adminToken     string
	schedulerToken string
	viewerToken    string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	// set up DB & repos
	db := testutil.SeededDB(t)
	usrRepo := inmemdb.NewUserRepository(db)
	validate, translator := testutil.Validate()

	// set up server
	f := &fixture{usrRepo: usrRepo, logs: new(bytes.Buffer)}
	f.app = echoapi.NewServer(
		testutil.Config(),
		testutil.Logger(f.logs),
		user.NewService(usrRepo),
		inmemdb.NewScheduleRepository(db, validate),
		validate,
		translator,
	)

	testutil.CreateUser(t, usrRepo, "Admin", "admin", testPwd, []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, usrRepo, "Planner", "planner", testPwd, []string{user.RoleScheduler}, true)
	testutil.CreateUser(t, usrRepo, "Viewer", "viewer", testPwd, []string{user.RoleViewer}, true)
	f.adminToken = f.login(t, "admin")
	f.schedulerToken = f.login(t, "planner")
	f.viewerToken = f.login(t, "viewer")
	return f
}

func (f *fixture) login(t *testing.T, uname string) string {
	t.Helper()
	body := marchallObj(t, user.Credentials{Username: uname, Password: testPwd})
	req, rec := newRequest(http.MethodPost, "/api/auth/login", body)
	f.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login(%s) failed: %d %s", uname, rec.Code, rec.Body.String())
	}
	var data echoapi.LoginResponse
	decodeData(t, rec, &data)
	return data.Token
}

func (f *fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors echoapi.Response with the data left raw.
type envelope struct {
	Success   bool                `json:"success"`
	Data      json.RawMessage     `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Errors    map[string]string   `json:"errors,omitempty"`
	Conflicts []schedule.Conflict `json:"conflicts,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decodeEnvelope(): %v; body %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("decodeData(): unsuccessful response %s", rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decodeData(): %v", err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
