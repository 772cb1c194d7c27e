package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/controllers"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
	"crm-system/pkg/types"
	"crm-system/pkg/validation"
)

const (
	agentID   = "3f1c2b9a-5d4e-4a7b-9c1d-0e2f3a4b5c6d"
	managerID = "8a7b6c5d-4e3f-4a1b-8c9d-0e1f2a3b4c5d"
	requestID = "c0ffee00-1234-4abc-8def-001122334455"
)

type stubResolver map[string]authz.Actor

func (s stubResolver) ResolveActor(_ context.Context, userID string) (authz.Actor, error) {
	actor, ok := s[userID]
	if !ok {
		return authz.Actor{}, apperrors.ErrUnauthorized
	}
	return actor, nil
}

// stubRequests answers Move and Remove; the rest is unused here.
type stubRequests struct {
	moved   []dto.MoveRequestDTO
	removed []string
}

func (s *stubRequests) Create(context.Context, authz.Actor, dto.CreateRequestDTO) (*entities.RequestView, error) {
	return nil, apperrors.ErrBadRequest
}

func (s *stubRequests) FindOne(_ context.Context, _ authz.Actor, id string) (*entities.RequestView, error) {
	return nil, apperrors.NewNotFound("request %s not found", id)
}

func (s *stubRequests) List(context.Context, authz.Actor, types.Filter) ([]entities.RequestView, uint64, error) {
	return nil, 0, nil
}

func (s *stubRequests) Update(context.Context, authz.Actor, string, dto.UpdateRequestDTO) (*entities.RequestView, error) {
	return nil, apperrors.ErrBadRequest
}

func (s *stubRequests) Move(_ context.Context, actor authz.Actor, id string, payload dto.MoveRequestDTO) (*entities.RequestView, error) {
	if actor.Role == constants.RoleViewer {
		return nil, apperrors.NewForbidden("viewer cannot move requests")
	}
	s.moved = append(s.moved, payload)
	view := &entities.RequestView{}
	view.ID = id
	view.CurrentStatus = constants.RequestStatus(payload.ToStatus)
	return view, nil
}

func (s *stubRequests) Remove(_ context.Context, actor authz.Actor, id string) error {
	if !actor.IsPrivileged() {
		return apperrors.NewForbidden("only ADMIN or MANAGER can delete requests")
	}
	s.removed = append(s.removed, id)
	return nil
}

func (s *stubRequests) History(context.Context, authz.Actor, string) ([]entities.RequestEvent, error) {
	return nil, nil
}

type stubKanban struct{}

func (stubKanban) Board(context.Context, authz.Actor) ([]entities.KanbanColumn, error) {
	board := make([]entities.KanbanColumn, 0, len(constants.RequestStatuses))
	for _, s := range constants.RequestStatuses {
		board = append(board, entities.KanbanColumn{Status: s, Title: constants.StatusTitle(s), Items: []entities.RequestView{}})
	}
	return board, nil
}

func (stubKanban) Stats(context.Context, authz.Actor) (*entities.RequestStats, error) {
	return &entities.RequestStats{}, nil
}

type testServer struct {
	e        *echo.Echo
	jwt      service.JWTService
	requests *stubRequests
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	jwtSvc := service.NewJWTService("routes-test", time.Hour, 24*time.Hour)
	resolver := stubResolver{
		agentID:   {ID: agentID, Role: constants.RoleAgent},
		managerID: {ID: managerID, Role: constants.RoleManager},
	}
	requests := &stubRequests{}

	e := echo.New()
	e.Validator = validation.New()
	Register(e, Handlers{
		Requests: controllers.NewRequestController(requests, logger),
		Kanban:   controllers.NewKanbanController(stubKanban{}, logger),
	}, middleware.NewAuthMiddleware(jwtSvc, resolver, logger), logger)

	return &testServer{e: e, jwt: jwtSvc, requests: requests}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		access, _, err := s.jwt.GenerateTokens(userID, "")
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestSecureRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/kanban/board", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	_, refresh, err := s.jwt.GenerateTokens(agentID, "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/kanban/board", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+refresh)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens are not access tokens")
}

func TestBoardRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/kanban/board", agentID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status bool                    `json:"status"`
		Body   []entities.KanbanColumn `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Status)
	assert.Len(t, body.Body, 7)
}

func TestMoveRouteValidatesStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPatch, "/api/requests/"+requestID+"/move", agentID, `{"toStatus":"ON_HOLD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	assert.Empty(t, s.requests.moved)

	rec = s.do(t, http.MethodPatch, "/api/requests/"+requestID+"/move", agentID, `{"toStatus":"SOLD","feedback":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.requests.moved, 1)
	assert.Equal(t, "paid", *s.requests.moved[0].Feedback)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/requests/not-a-uuid", agentID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestDeleteRequestIsPrivileged(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/requests/"+requestID, agentID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, s.requests.removed)

	rec = s.do(t, http.MethodDelete, "/api/requests/"+requestID, managerID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{requestID}, s.requests.removed)
}
