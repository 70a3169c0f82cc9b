// Package backendapi is the HTTP client of the scheduling REST backend.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/session"
	"github.com/ficct/horarios/core/user"
)

const requestIDHeader = "X-Request-ID"

// Client implements schedule.Backend over HTTP.
//
// Every response is expected in the {success, data, message, conflicts} envelope. A 401 ends the session
// and returns a *core.AuthError; an envelope with conflicts becomes a *schedule.ConflictError; any other
// failure a *core.TransportError. Nothing is retried.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Manager
	logger  core.Logger
}

var _ schedule.Backend = (*Client)(nil)

func NewClient(conf *core.Config, sess *session.Manager, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.Backend.BaseURL,
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		session: sess,
		logger:  logger,
	}
}

type envelope struct {
	Success   bool                `json:"success"`
	Data      json.RawMessage     `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Conflicts []schedule.Conflict `json:"conflicts,omitempty"`
}

type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     interface{}
	skipAuth bool
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(err, r.op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return core.NewTransportError(r.op, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, uuid.New().String())
	if !r.skipAuth {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewTransportError(r.op, 0, "", err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !r.skipAuth {
		authErr := core.NewAuthError("session expired, please log in again")
		if err := c.session.End(authErr); err != nil && c.logger != nil {
			c.logger.Error("ending session", err)
		}
		return authErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewTransportError(r.op, resp.StatusCode, "", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return core.NewTransportError(r.op, resp.StatusCode, "undecodable response", err)
	}
	if len(env.Conflicts) > 0 {
		return &schedule.ConflictError{Message: env.Message, Conflicts: env.Conflicts}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return core.NewTransportError(r.op, resp.StatusCode, msg, nil)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return core.NewTransportError(r.op, resp.StatusCode, "undecodable data", err)
		}
	}
	return nil
}

// Auth

type loginData struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login exchanges credentials for a token and begins the session.
func (c *Client) Login(ctx context.Context, creds user.Credentials) (session.Session, error) {
	var data loginData
	err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login", body: creds, skipAuth: true}, &data)
	if err != nil {
		return session.Session{}, err
	}
	s := session.Session{Token: data.Token, User: data.User, StartedAt: time.Now().UTC()}
	if err := c.session.Begin(s); err != nil {
		return session.Session{}, errors.Wrap(err, "starting session")
	}
	return s, nil
}

// Logout notifies the backend and always ends the local session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, request{op: "logout", method: http.MethodPost, path: "/auth/logout"}, nil)
	if core.IsAuth(err) {
		// session already ended
		return nil
	}
	if endErr := c.session.End(nil); endErr != nil && err == nil {
		err = endErr
	}
	return err
}

// Catalogs

func (c *Client) ListTerms(ctx context.Context) ([]schedule.AcademicTerm, error) {
	var terms []schedule.AcademicTerm
	err := c.do(ctx, request{op: "list terms", method: http.MethodGet, path: "/gestiones"}, &terms)
	return terms, err
}

func (c *Client) ListSubjects(ctx context.Context) ([]schedule.Subject, error) {
	var subjects []schedule.Subject
	err := c.do(ctx, request{op: "list subjects", method: http.MethodGet, path: "/materias"}, &subjects)
	return subjects, err
}

func (c *Client) ListTeachers(ctx context.Context) ([]schedule.Teacher, error) {
	var teachers []schedule.Teacher
	err := c.do(ctx, request{op: "list teachers", method: http.MethodGet, path: "/docentes"}, &teachers)
	return teachers, err
}

func (c *Client) ListClassrooms(ctx context.Context) ([]schedule.Classroom, error) {
	var rooms []schedule.Classroom
	err := c.do(ctx, request{op: "list classrooms", method: http.MethodGet, path: "/aulas"}, &rooms)
	return rooms, err
}

func (c *Client) ListGroups(ctx context.Context) ([]schedule.Group, error) {
	var groups []schedule.Group
	err := c.do(ctx, request{op: "list groups", method: http.MethodGet, path: "/grupos"}, &groups)
	return groups, err
}

func (c *Client) ListTimeSlots(ctx context.Context) ([]schedule.TimeSlot, error) {
	var slots []schedule.TimeSlot
	err := c.do(ctx, request{op: "list time slots", method: http.MethodGet, path: "/horarios"}, &slots)
	return slots, err
}

// DeleteGroup deletes a group; the backend cascades to its assignments.
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete group", method: http.MethodDelete, path: "/grupos/" + strconv.Itoa(id)}, nil)
}

// DeleteTerm deletes an academic term with its groups and assignments.
func (c *Client) DeleteTerm(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete term", method: http.MethodDelete, path: "/gestiones/" + strconv.Itoa(id)}, nil)
}

// Assignments

func (c *Client) ListAssignments(ctx context.Context, filter schedule.Filter) ([]schedule.Assignment, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var asgs []schedule.Assignment
	err := c.do(ctx, request{op: "list assignments", method: http.MethodGet, path: "/asignaciones", query: filter.Values()}, &asgs)
	return asgs, err
}

func (c *Client) CreateAssignment(ctx context.Context, na schedule.NewAssignment) (schedule.Assignment, error) {
	var asg schedule.Assignment
	err := c.do(ctx, request{op: "create assignment", method: http.MethodPost, path: "/asignaciones", body: na}, &asg)
	return asg, err
}

type slotsPayload struct {
	SlotIDs []int `json:"horarios"`
}

func (c *Client) UpdateAssignmentSlots(ctx context.Context, id int, slotIDs []int) (schedule.Assignment, error) {
	var asg schedule.Assignment
	err := c.do(ctx, request{
		op:     "update assignment slots",
		method: http.MethodPut,
		path:   fmt.Sprintf("/asignaciones/%d/horarios", id),
		body:   slotsPayload{SlotIDs: slotIDs},
	}, &asg)
	return asg, err
}

func (c *Client) DeleteAssignment(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete assignment", method: http.MethodDelete, path: "/asignaciones/" + strconv.Itoa(id)}, nil)
}

// Timetable fetches the timetable already organized by the backend.
func (c *Client) Timetable(ctx context.Context, filter schedule.Filter) (schedule.Timetable, error) {
	if err := filter.Validate(); err != nil {
		return schedule.Timetable{}, err
	}
	var tt schedule.Timetable
	err := c.do(ctx, request{op: "timetable", method: http.MethodGet, path: "/horario", query: filter.Values()}, &tt)
	return tt, err
}
