package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"loot-tracker/internal/applications/dto"
	"loot-tracker/internal/applications/models"
	"loot-tracker/internal/applications/services"
	authModels "loot-tracker/internal/auth/models"
	authServices "loot-tracker/internal/auth/services"
	killModels "loot-tracker/internal/bosskills/models"
	notifModels "loot-tracker/internal/notifications/models"
	userModels "loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tokenValidator map[string]*authModels.AuthenticatedUser

func (v tokenValidator) ValidateJWT(ctx context.Context, token string) (*authModels.AuthenticatedUser, error) {
	user, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return user, nil
}

type appStore struct {
	mu   sync.Mutex
	apps map[primitive.ObjectID]*models.Application
}

func (s *appStore) Create(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.ID = primitive.NewObjectID()
	app.Active = app.Status.Active()
	copied := *app
	s.apps[app.ID] = &copied
	return nil
}

func (s *appStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, apperrors.NotFound("application not found")
	}
	copied := *app
	return &copied, nil
}

func (s *appStore) List(ctx context.Context, filter models.ListFilter) ([]models.Application, int64, error) {
	return nil, 0, nil
}

func (s *appStore) Transition(ctx context.Context, id primitive.ObjectID, from, to models.Status, resolvedBy string, at time.Time) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, apperrors.NotFound("application not found")
	}
	if app.Status != from {
		return nil, apperrors.InvalidState("application is %s", app.Status)
	}
	app.Status = to
	app.Active = to.Active()
	app.ResolvedBy = resolvedBy
	copied := *app
	return &copied, nil
}

func (s *appStore) RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, exceptID primitive.ObjectID, resolvedBy string, at time.Time) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Application{}
	for id, app := range s.apps {
		if app.KillID == killID && app.ItemID == itemID && app.Status == models.StatusPending && id != exceptID {
			app.Status = models.StatusRejected
			app.Active = false
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *appStore) RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error) {
	return 0, nil
}

func (s *appStore) CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (s *appStore) WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	return 0, nil
}

type killStore struct {
	mu   sync.Mutex
	kill *killModels.BossKill
}

func (k *killStore) GetByID(ctx context.Context, id primitive.ObjectID) (*killModels.BossKill, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if id != k.kill.ID {
		return nil, apperrors.NotFound("boss kill not found")
	}
	copied := *k.kill
	copied.DroppedItems = append([]killModels.DroppedItem(nil), k.kill.DroppedItems...)
	return &copied, nil
}

func (k *killStore) AssignItem(ctx context.Context, killID primitive.ObjectID, itemID string, recipient primitive.ObjectID, recipientName string, at time.Time) (*killModels.BossKill, error) {
	k.mu.Lock()
	item, ok := k.kill.Item(itemID)
	if !ok {
		k.mu.Unlock()
		return nil, apperrors.InvalidItem("item %s is not part of this kill", itemID)
	}
	if item.Status != killModels.ItemPending {
		k.mu.Unlock()
		return nil, apperrors.Conflict("item %q is %s", item.Name, item.Status)
	}
	item.Status = killModels.ItemAssigned
	item.FinalRecipient = &recipient
	item.FinalRecipientName = recipientName
	k.kill.Status = killModels.Summarize(k.kill.DroppedItems)
	k.mu.Unlock()
	return k.GetByID(ctx, killID)
}

type noUsers struct{}

func (noUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*userModels.User, error) {
	return nil, apperrors.NotFound("user not found")
}

type discardNotifier struct{}

func (discardNotifier) Notify(ctx context.Context, msg notifModels.Message) error { return nil }

type routeFixture struct {
	api  humatest.TestAPI
	apps *appStore
	kill *killModels.BossKill
}

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()
	now := time.Now().UTC()
	kill := &killModels.BossKill{
		ID:       primitive.NewObjectID(),
		BossName: "Karanda",
		KillTime: now,
		DroppedItems: []killModels.DroppedItem{
			{ID: "helm", Name: "Griffon's Helmet", ApplyDeadline: now.Add(24 * time.Hour), Status: killModels.ItemPending},
			{ID: "ring", Name: "Ring of Cadry", ApplyDeadline: now.Add(24 * time.Hour), Status: killModels.ItemPending},
		},
		Attendees: []string{"Tanky", "Healz"},
		Status:    killModels.KillPending,
	}
	f := &routeFixture{
		apps: &appStore{apps: map[primitive.ObjectID]*models.Application{}},
		kill: kill,
	}

	policy, err := authServices.NewMemoryPolicy()
	require.NoError(t, err)
	auth := middleware.NewHumaAuthMiddleware(tokenValidator{
		"admin-token":  {UserID: primitive.NewObjectID().Hex(), Username: "gm", Role: authModels.RoleAdmin},
		"member-token": {UserID: primitive.NewObjectID().Hex(), Username: "tank", CharacterName: "Tanky", Role: authModels.RoleUser},
	}, policy)

	service := services.NewService(f.apps, &killStore{kill: kill}, noUsers{}, &database.SerialTxRunner{}, discardNotifier{})
	_, api := humatest.New(t)
	RegisterApplicationsRoutes(api, "/applications", service, auth)
	f.api = api
	return f
}

func (f *routeFixture) pending(t *testing.T, itemID, character string) *models.Application {
	t.Helper()
	app := &models.Application{
		UserID:        primitive.NewObjectID(),
		CharacterName: character,
		KillID:        f.kill.ID,
		BossName:      f.kill.BossName,
		ItemID:        itemID,
		Status:        models.StatusPending,
	}
	require.NoError(t, f.apps.Create(context.Background(), app))
	return app
}

func TestApproveRoute(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			f := newRouteFixture(t)
			winner := f.pending(t, "helm", "Tanky")
			loser := f.pending(t, "helm", "Healz")
			path := "/applications/" + winner.ID.Hex() + "/approve"

			resp := f.api.Do(method, path)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)

			resp = f.api.Do(method, path, "x-auth-token: member-token")
			assert.Equal(t, http.StatusForbidden, resp.Code)

			resp = f.api.Do(method, path, "x-auth-token: admin-token")
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

			var body dto.ResolveResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			require.NotNil(t, body.Application)
			assert.Equal(t, models.StatusApproved, body.Application.Status)
			assert.Equal(t, killModels.ItemAssigned, body.Item.Status)
			assert.Equal(t, "Tanky", body.Item.FinalRecipientName)
			require.Len(t, body.Rejected, 1)
			assert.Equal(t, loser.ID, body.Rejected[0].ID)

			resp = f.api.Do(method, path, "Authorization: Bearer admin-token")
			assert.Equal(t, http.StatusConflict, resp.Code)

			resp = f.api.Do(method, "/applications/not-an-id/approve", "x-auth-token: admin-token")
			assert.Equal(t, http.StatusNotFound, resp.Code)
		})
	}
}

func TestRejectRoute(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			f := newRouteFixture(t)
			app := f.pending(t, "ring", "Healz")
			path := "/applications/" + app.ID.Hex() + "/reject"

			resp := f.api.Do(method, path, "x-auth-token: member-token")
			assert.Equal(t, http.StatusForbidden, resp.Code)

			resp = f.api.Do(method, path, "x-auth-token: admin-token")
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			var body models.Application
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, models.StatusRejected, body.Status)

			resp = f.api.Do(method, path, "x-auth-token: admin-token")
			assert.Equal(t, http.StatusConflict, resp.Code)

			resp = f.api.Do(method, "/applications/"+primitive.NewObjectID().Hex()+"/reject", "x-auth-token: admin-token")
			assert.Equal(t, http.StatusNotFound, resp.Code)
		})
	}
}
