package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/events"
	"crm-system/pkg/config"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

func newAuthFixture(t *testing.T) (*fixture, AuthServiceInterface, service.JWTService) {
	t.Helper()
	f := newFixture()
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	f.store.users["u1"] = entities.User{
		ID: "u1", FullName: "Sara", Email: "sara@example.com", Phone: utils.StringPtr("+966500000001"),
		Role: constants.RoleAgent, PasswordHash: hash, IsActive: true,
	}
	jwtSvc := service.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	auth := NewAuthService(fakeUsers{f.store}, f.cache, jwtSvc,
		config.AuthConfig{MaxLoginAttempts: 3, LockoutDuration: time.Minute}, f.bus, zap.NewNop())
	return f, auth, jwtSvc
}

func TestLoginByEmailOrPhone(t *testing.T) {
	_, auth, jwtSvc := newAuthFixture(t)
	ctx := context.Background()

	for _, login := range []string{"Sara@Example.com", "+966500000001"} {
		resp, err := auth.Login(ctx, dto.LoginDTO{Login: login, Password: "s3cret-pass"})
		require.NoError(t, err, login)

		claims, err := jwtSvc.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.False(t, claims.IsRefreshToken)
	}
}

func TestLoginLockout(t *testing.T) {
	f, auth, _ := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := auth.Login(ctx, dto.LoginDTO{Login: "sara@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
	assert.Contains(t, f.cache.values, fmt.Sprintf(constants.CacheKeyLockout, "sara@example.com"))

	_, err := auth.Login(ctx, dto.LoginDTO{Login: "sara@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
}

func TestLoginInactiveUser(t *testing.T) {
	f, auth, _ := newAuthFixture(t)
	u := f.store.users["u1"]
	u.IsActive = false
	f.store.users["u1"] = u

	_, err := auth.Login(context.Background(), dto.LoginDTO{Login: "sara@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	assert.Equal(t, "FORBIDDEN", apperrors.Kind(err))
}

func TestRefreshRequiresRefreshToken(t *testing.T) {
	_, auth, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, dto.LoginDTO{Login: "sara@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = auth.Refresh(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenIsNotRefresh)

	refreshed, err := auth.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestUserTeamChangeInvalidatesBothLeads(t *testing.T) {
	f := newFixture()
	admin := f.addUser("admin", constants.RoleAdmin, nil)
	m1 := f.addUser("m1", constants.RoleManager, nil)
	m2 := f.addUser("m2", constants.RoleManager, nil)
	agent := f.addUser("agent", constants.RoleAgent, utils.StringPtr(m1.ID))
	users := NewUserService(fakeUsers{f.store}, f.teams, f.bus, zap.NewNop())
	ctx := context.Background()

	_, err := f.teams.TeamOf(ctx, m1.ID)
	require.NoError(t, err)
	_, err = f.teams.TeamOf(ctx, m2.ID)
	require.NoError(t, err)

	updated, err := users.Update(ctx, admin, agent.ID, dto.UpdateUserDTO{
		AssistantID: null.StringFrom(m2.ID),
		Fields:      map[string]bool{"assistantId": true},
	})
	require.NoError(t, err)
	assert.Equal(t, m2.ID, utils.StringOrEmpty(updated.AssistantID))
	assert.NotContains(t, f.cache.values, fmt.Sprintf(constants.CacheKeyTeamMembers, m1.ID))
	assert.NotContains(t, f.cache.values, fmt.Sprintf(constants.CacheKeyTeamMembers, m2.ID))

	_, err = users.Update(ctx, admin, agent.ID, dto.UpdateUserDTO{
		AssistantID: null.StringFrom(agent.ID),
		Fields:      map[string]bool{"assistantId": true},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestResolveActor(t *testing.T) {
	f := newFixture()
	lead := utils.StringPtr("m1")
	f.addUser("agent", constants.RoleAgent, lead)
	users := NewUserService(fakeUsers{f.store}, f.teams, f.bus, zap.NewNop())
	ctx := context.Background()

	actor, err := users.ResolveActor(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAgent, actor.Role)
	assert.Equal(t, lead, actor.AssistantID)

	_, err = users.ResolveActor(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	u := f.store.users["agent"]
	u.IsActive = false
	f.store.users["agent"] = u
	_, err = users.ResolveActor(ctx, "agent")
	assert.ErrorIs(t, err, apperrors.ErrUserInactive)
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, book.SetSheetRow(sheet, cell, &r))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestClientImport(t *testing.T) {
	f := newFixture()
	agent := f.addUser("agent", constants.RoleAgent, nil)

	file := workbook(t, [][]interface{}{
		{"Name", "Phone", "City", "Notes"},
		{"Ahmed Ali", "0501234567", "Riyadh", "walk-in"},
		{"", "0507654321", "Jeddah", ""},
		{"No Phone", "", "", ""},
		{"Mona", "0551112222", "", ""},
	})

	result, err := f.clients.Import(context.Background(), agent, file)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Equal(t, 4, result.Skipped[1].Row)
	assert.Len(t, f.store.clients, 2)

	imports := 0
	for _, e := range f.bus.events {
		if a, ok := e.(events.AuditEvent); ok && a.ActionType == constants.AuditActionImport {
			imports++
		}
	}
	assert.Equal(t, 2, imports)
}

func TestClientImportRequiresHeaders(t *testing.T) {
	f := newFixture()
	agent := f.addUser("agent", constants.RoleAgent, nil)

	_, err := f.clients.Import(context.Background(), agent, workbook(t, [][]interface{}{{"Name", "City"}}))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.clients.Import(context.Background(), agent, bytes.NewBufferString("not a workbook"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAttachmentLifecycle(t *testing.T) {
	f := newFixture()
	agent := f.addUser("agent", constants.RoleAgent, nil)
	outsider := f.addUser("outsider", constants.RoleAgent, nil)
	f.addClient(clientC, agent.ID)
	ctx := context.Background()
	attachments := NewAttachmentService(fakeAttachments{f.store}, fakeRequests{f.store}, fakeClients{f.store},
		f.blobs, f.policy, f.bus, 5, zap.NewNop())

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	a, err := attachments.Upload(ctx, agent, entities.OwnerClient, clientC, bytes.NewReader(pdf), "id.pdf", int64(len(pdf)))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", a.MimeType)
	assert.Len(t, f.blobs.blobs, 1)

	_, err = attachments.Upload(ctx, agent, entities.OwnerClient, clientC, bytes.NewReader([]byte("plain text")), "a.txt", 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = attachments.URL(ctx, outsider, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	url, err := attachments.URL(ctx, agent, a.ID)
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/clients/")

	require.NoError(t, attachments.Delete(ctx, agent, a.ID))
	assert.Empty(t, f.blobs.blobs)
	assert.Empty(t, f.store.attachments)
}

func TestRemoveRequestDeletesBlobs(t *testing.T) {
	f := newFixture()
	manager := f.addUser("manager", constants.RoleManager, nil)
	f.addClient(clientC, manager.ID)
	ctx := context.Background()
	r := createRequest(t, f, manager, clientC)
	attachments := NewAttachmentService(fakeAttachments{f.store}, fakeRequests{f.store}, fakeClients{f.store},
		f.blobs, f.policy, f.bus, 5, zap.NewNop())

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err := attachments.Upload(ctx, manager, entities.OwnerRequest, r.ID, bytes.NewReader(png), "car.png", int64(len(png)))
	require.NoError(t, err)
	require.Len(t, f.blobs.blobs, 1)

	require.NoError(t, f.requests.Remove(ctx, manager, r.ID))
	assert.Empty(t, f.blobs.blobs)
}

func TestBankValidation(t *testing.T) {
	f := newFixture()
	admin := f.addUser("admin", constants.RoleAdmin, nil)
	banks := NewBankService(fakeBanks{f.store}, f.bus, zap.NewNop())
	ctx := context.Background()

	bank, err := banks.Create(ctx, admin, dto.CreateBankDTO{Name: "Al Rajhi", MaxTermMonths: 60})
	require.NoError(t, err)
	assert.True(t, bank.IsActive)

	_, err = banks.Create(ctx, admin, dto.CreateBankDTO{Name: "Al Rajhi", MaxTermMonths: 60})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = banks.Update(ctx, admin, bank.ID, dto.UpdateBankDTO{MaxTermMonths: null.IntFrom(500)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := banks.Update(ctx, admin, bank.ID, dto.UpdateBankDTO{IsActive: null.BoolFrom(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := banks.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}
