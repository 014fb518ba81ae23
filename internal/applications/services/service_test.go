package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"loot-tracker/internal/applications/models"
	authModels "loot-tracker/internal/auth/models"
	killModels "loot-tracker/internal/bosskills/models"
	notifModels "loot-tracker/internal/notifications/models"
	userModels "loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryApps enforces the same uniqueness rules as the partial indexes
type memoryApps struct {
	mu   sync.Mutex
	apps map[primitive.ObjectID]*models.Application
}

func newMemoryApps() *memoryApps {
	return &memoryApps{apps: make(map[primitive.ObjectID]*models.Application)}
}

func (m *memoryApps) Create(ctx context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.apps {
		if existing.Active && existing.UserID == app.UserID && existing.KillID == app.KillID && existing.ItemID == app.ItemID {
			return apperrors.Conflict("you already applied for this item")
		}
	}
	app.ID = primitive.NewObjectID()
	app.Active = app.Status.Active()
	copied := *app
	m.apps[app.ID] = &copied
	return nil
}

func (m *memoryApps) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, apperrors.NotFound("application not found")
	}
	copied := *app
	return &copied, nil
}

func (m *memoryApps) List(ctx context.Context, filter models.ListFilter) ([]models.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Application{}
	for _, app := range m.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.KillID != nil && app.KillID != *filter.KillID {
			continue
		}
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		out = append(out, *app)
	}
	return out, int64(len(out)), nil
}

func (m *memoryApps) resolve(app *models.Application, to models.Status, by string, at time.Time) {
	app.Status = to
	app.Active = to.Active()
	app.ResolvedBy = by
	app.ResolvedAt = &at
	app.UpdatedAt = at
}

func (m *memoryApps) Transition(ctx context.Context, id primitive.ObjectID, from, to models.Status, resolvedBy string, at time.Time) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, apperrors.NotFound("application not found")
	}
	if app.Status != from {
		return nil, apperrors.InvalidState("application is %s", app.Status)
	}
	m.resolve(app, to, resolvedBy, at)
	copied := *app
	return &copied, nil
}

func (m *memoryApps) RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, exceptID primitive.ObjectID, resolvedBy string, at time.Time) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Application{}
	for id, app := range m.apps {
		if app.KillID == killID && app.ItemID == itemID && app.Status == models.StatusPending && id != exceptID {
			m.resolve(app, models.StatusRejected, resolvedBy, at)
			out = append(out, *app)
		}
	}
	return out, nil
}

func (m *memoryApps) RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, app := range m.apps {
		if app.KillID == killID && app.Status == models.StatusPending {
			m.resolve(app, models.StatusRejected, resolvedBy, at)
			n++
		}
	}
	return n, nil
}

func (m *memoryApps) CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, app := range m.apps {
		if app.KillID == killID && app.Status == models.StatusApproved {
			n++
		}
	}
	return n, nil
}

func (m *memoryApps) WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, app := range m.apps {
		if app.UserID == userID && app.Status == models.StatusPending {
			m.resolve(app, models.StatusWithdrawn, "system", at)
			n++
		}
	}
	return n, nil
}

type memoryKills struct {
	mu    sync.Mutex
	kills map[primitive.ObjectID]*killModels.BossKill
}

func cloneKill(kill *killModels.BossKill) *killModels.BossKill {
	copied := *kill
	copied.DroppedItems = append([]killModels.DroppedItem(nil), kill.DroppedItems...)
	return &copied
}

func (m *memoryKills) GetByID(ctx context.Context, id primitive.ObjectID) (*killModels.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[id]
	if !ok {
		return nil, apperrors.NotFound("boss kill not found")
	}
	return cloneKill(kill), nil
}

func (m *memoryKills) AssignItem(ctx context.Context, killID primitive.ObjectID, itemID string, recipient primitive.ObjectID, recipientName string, at time.Time) (*killModels.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[killID]
	if !ok {
		return nil, apperrors.NotFound("boss kill not found")
	}
	item, ok := kill.Item(itemID)
	if !ok {
		return nil, apperrors.InvalidItem("item %s is not part of this kill", itemID)
	}
	if item.Status != killModels.ItemPending {
		return nil, apperrors.Conflict("item %q is %s", item.Name, item.Status)
	}
	item.Status = killModels.ItemAssigned
	item.FinalRecipient = &recipient
	item.FinalRecipientName = recipientName
	item.AssignedAt = &at
	kill.Status = killModels.Summarize(kill.DroppedItems)
	kill.Version++
	return cloneKill(kill), nil
}

type memoryUsers map[primitive.ObjectID]userModels.User

func (m memoryUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*userModels.User, error) {
	user, ok := m[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return &user, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notifModels.Message
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notifModels.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) recipientsOf(kind notifModels.Type) []primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []primitive.ObjectID
	for _, msg := range r.messages {
		if msg.Type == kind {
			out = append(out, msg.Recipients...)
		}
	}
	return out
}

type fixture struct {
	service  *Service
	apps     *memoryApps
	kills    *memoryKills
	users    memoryUsers
	notifier *recordingNotifier
	now      time.Time
	kill     *killModels.BossKill
	admin    *authModels.AuthenticatedUser
	tank     *authModels.AuthenticatedUser
	healer   *authModels.AuthenticatedUser
	rogue    *authModels.AuthenticatedUser
}

func member(users memoryUsers, username, character string) *authModels.AuthenticatedUser {
	id := primitive.NewObjectID()
	users[id] = userModels.User{ID: id, Username: username, CharacterName: character, Role: authModels.RoleUser}
	return &authModels.AuthenticatedUser{UserID: id.Hex(), Username: username, CharacterName: character, Role: authModels.RoleUser}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		apps:     newMemoryApps(),
		kills:    &memoryKills{kills: make(map[primitive.ObjectID]*killModels.BossKill)},
		users:    memoryUsers{},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC),
		admin:    &authModels.AuthenticatedUser{UserID: primitive.NewObjectID().Hex(), Username: "gm", Role: authModels.RoleAdmin},
	}
	f.tank = member(f.users, "tank", "Tanky")
	f.healer = member(f.users, "healer", "Healz")
	f.rogue = member(f.users, "rogue", "Rogue")

	deadline := f.now.Add(48 * time.Hour)
	f.kill = &killModels.BossKill{
		ID:       primitive.NewObjectID(),
		BossName: "Kzarka",
		KillTime: f.now,
		DroppedItems: []killModels.DroppedItem{
			{ID: "sword", Name: "Kzarka Longsword", ApplyDeadline: deadline, Status: killModels.ItemPending},
			{ID: "ring", Name: "Ring of Crescent", ApplyDeadline: deadline, Status: killModels.ItemPending},
		},
		Attendees: []string{"Tanky", "Healz", "Rogue"},
		Status:    killModels.KillPending,
		Version:   1,
	}
	f.kills.kills[f.kill.ID] = cloneKill(f.kill)

	f.service = NewService(f.apps, f.kills, f.users, &database.SerialTxRunner{}, f.notifier)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) submit(t *testing.T, user *authModels.AuthenticatedUser, itemID string) *models.Application {
	t.Helper()
	app, err := f.service.Submit(context.Background(), user, f.kill.ID, itemID, "")
	require.NoError(t, err)
	return app
}

func objectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app, err := f.service.Submit(ctx, f.tank, f.kill.ID, "sword", "  main tank  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "Kzarka Longsword", app.ItemName)
	assert.Equal(t, "Kzarka", app.BossName)
	assert.Equal(t, "main tank", app.Reason)

	outsider := &authModels.AuthenticatedUser{UserID: primitive.NewObjectID().Hex(), CharacterName: "Outsider"}
	lowercase := &authModels.AuthenticatedUser{UserID: f.healer.UserID, CharacterName: "healz"}

	tests := []struct {
		name   string
		user   *authModels.AuthenticatedUser
		killID primitive.ObjectID
		itemID string
		want   error
	}{
		{"NoSession", nil, f.kill.ID, "sword", apperrors.ErrUnauthenticated},
		{"UnknownKill", f.healer, primitive.NewObjectID(), "sword", apperrors.ErrNotFound},
		{"UnknownItem", f.healer, f.kill.ID, "shield", apperrors.ErrInvalidItem},
		{"NotAnAttendee", outsider, f.kill.ID, "sword", apperrors.ErrForbidden},
		{"Duplicate", f.tank, f.kill.ID, "sword", apperrors.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Submit(ctx, tt.user, tt.killID, tt.itemID, "")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("AttendanceIgnoresCase", func(t *testing.T) {
		_, err := f.service.Submit(ctx, lowercase, f.kill.ID, "sword", "")
		assert.NoError(t, err)
	})

	t.Run("DeadlinePassed", func(t *testing.T) {
		f.now = f.kill.DroppedItems[1].ApplyDeadline
		defer func() { f.now = time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC) }()
		_, err := f.service.Submit(ctx, f.rogue, f.kill.ID, "ring", "")
		assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)
	})

	t.Run("ItemAlreadyAssigned", func(t *testing.T) {
		_, err := f.service.AssignManually(ctx, f.admin, f.kill.ID, "ring", objectID(t, f.healer.UserID))
		require.NoError(t, err)
		_, err = f.service.Submit(ctx, f.rogue, f.kill.ID, "ring", "")
		assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)
	})
}

func TestApproveRejectsCompetitors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner := f.submit(t, f.tank, "sword")
	loser1 := f.submit(t, f.healer, "sword")
	loser2 := f.submit(t, f.rogue, "sword")
	other := f.submit(t, f.rogue, "ring")

	result, err := f.service.Approve(ctx, f.admin, winner.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Application)
	assert.Equal(t, models.StatusApproved, result.Application.Status)
	assert.Equal(t, f.admin.UserID, result.Application.ResolvedBy)
	assert.Equal(t, killModels.ItemAssigned, result.Item.Status)
	require.NotNil(t, result.Item.FinalRecipient)
	assert.Equal(t, winner.UserID, *result.Item.FinalRecipient)
	assert.Equal(t, "Tanky", result.Item.FinalRecipientName)
	assert.Equal(t, killModels.KillPending, result.Kill.Status, "the ring is still open")
	assert.Len(t, result.Rejected, 2)

	for _, id := range []primitive.ObjectID{loser1.ID, loser2.ID} {
		app, err := f.apps.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, app.Status)
		assert.False(t, app.Active)
	}
	untouched, err := f.apps.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, untouched.Status)

	assert.Equal(t, []primitive.ObjectID{winner.UserID}, f.notifier.recipientsOf(notifModels.TypeApplicationApproved))
	assert.ElementsMatch(t, []primitive.ObjectID{loser1.UserID, loser2.UserID}, f.notifier.recipientsOf(notifModels.TypeApplicationRejected))

	_, err = f.service.Approve(ctx, f.admin, loser1.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)

	_, err = f.service.Approve(ctx, f.admin, winner.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)

	approved, err := f.service.CountApprovedForKill(ctx, f.kill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), approved)

	result, err = f.service.Approve(ctx, f.admin, other.ID)
	require.NoError(t, err)
	assert.Equal(t, killModels.KillAssigned, result.Kill.Status)
}

func TestConcurrentApprovalsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.submit(t, f.tank, "sword")
	second := f.submit(t, f.healer, "sword")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []primitive.ObjectID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(ctx, f.admin, id)
		}(i, id)
	}
	wg.Wait()

	var failed error
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			failed = err
		}
	}
	assert.Equal(t, 1, succeeded)
	require.Error(t, failed)
	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(failed))

	approved, err := f.service.CountApprovedForKill(ctx, f.kill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), approved)
}

func TestAssignManually(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.submit(t, f.tank, "ring")
	own := f.submit(t, f.healer, "ring")

	result, err := f.service.AssignManually(ctx, f.admin, f.kill.ID, "ring", objectID(t, f.healer.UserID))
	require.NoError(t, err)
	assert.Nil(t, result.Application)
	assert.Equal(t, "Healz", result.Item.FinalRecipientName)
	assert.Len(t, result.Rejected, 2, "every pending application for the item is rejected")

	for _, id := range []primitive.ObjectID{pending.ID, own.ID} {
		app, err := f.apps.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, app.Status)
	}

	_, err = f.service.AssignManually(ctx, f.admin, f.kill.ID, "ring", objectID(t, f.tank.UserID))
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)

	_, err = f.service.AssignManually(ctx, f.admin, f.kill.ID, "shield", objectID(t, f.tank.UserID))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidItem), "got %v", err)

	_, err = f.service.AssignManually(ctx, f.admin, f.kill.ID, "sword", primitive.NewObjectID())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	rogueID := objectID(t, f.rogue.UserID)
	disabled := f.users[rogueID]
	disabled.Disabled = true
	f.users[rogueID] = disabled
	_, err = f.service.AssignManually(ctx, f.admin, f.kill.ID, "sword", rogueID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)
}

func TestRejectAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app := f.submit(t, f.tank, "sword")
	rejected, err := f.service.Reject(ctx, f.admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, []primitive.ObjectID{app.UserID}, f.notifier.recipientsOf(notifModels.TypeApplicationRejected))

	_, err = f.service.Reject(ctx, f.admin, app.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)
	_, err = f.service.Reject(ctx, f.admin, primitive.NewObjectID())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	again := f.submit(t, f.tank, "sword")

	_, err = f.service.Withdraw(ctx, f.healer, again.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden), "got %v", err)

	withdrawn, err := f.service.Withdraw(ctx, f.tank, again.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, withdrawn.Status)

	_, err = f.service.Withdraw(ctx, f.tank, again.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)

	f.submit(t, f.tank, "sword")
}

func TestResolveItemWithStaleApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.submit(t, f.tank, "sword")
	competitor := f.submit(t, f.healer, "sword")
	_, err := f.service.Withdraw(ctx, f.tank, stale.ID)
	require.NoError(t, err)

	_, err = f.service.ResolveItem(ctx, f.admin, f.kill.ID, "sword", stale.UserID, stale.CharacterName, stale)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)

	kill, err := f.kills.GetByID(ctx, f.kill.ID)
	require.NoError(t, err)
	item, ok := kill.Item("sword")
	require.True(t, ok)
	assert.Equal(t, killModels.ItemPending, item.Status)
	assert.Nil(t, item.FinalRecipient)

	app, err := f.apps.GetByID(ctx, competitor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Empty(t, f.notifier.recipientsOf(notifModels.TypeApplicationApproved))

	t.Run("OtherItem", func(t *testing.T) {
		_, err := f.service.ResolveItem(ctx, f.admin, f.kill.ID, "ring", competitor.UserID, competitor.CharacterName, competitor)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidItem), "got %v", err)

		kill, err := f.kills.GetByID(ctx, f.kill.ID)
		require.NoError(t, err)
		ring, _ := kill.Item("ring")
		assert.Equal(t, killModels.ItemPending, ring.Status)
	})
}

func TestRejectPendingForItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tank := f.submit(t, f.tank, "sword")
	healer := f.submit(t, f.healer, "sword")
	ring := f.submit(t, f.rogue, "ring")

	n, err := f.service.RejectPendingForItem(ctx, f.kill.ID, "sword", "system", f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []primitive.ObjectID{tank.ID, healer.ID} {
		app, err := f.apps.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, app.Status)
		assert.False(t, app.Active)
		assert.Equal(t, "system", app.ResolvedBy)
	}
	open, err := f.apps.GetByID(ctx, ring.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, open.Status)

	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, "item_closed:"+f.kill.ID.Hex()+":sword", f.notifier.messages[0].DedupeKey)
	assert.ElementsMatch(t, []primitive.ObjectID{tank.UserID, healer.UserID}, f.notifier.messages[0].Recipients)

	n, err = f.service.RejectPendingForItem(ctx, f.kill.ID, "sword", "system", f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.messages, 1)
}

func TestWithdrawPendingForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit(t, f.rogue, "sword")
	f.submit(t, f.rogue, "ring")
	kept := f.submit(t, f.tank, "ring")

	n, err := f.service.WithdrawPendingForUser(ctx, objectID(t, f.rogue.UserID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	app, err := f.apps.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)

	n, err = f.service.RejectPendingForKill(ctx, f.kill.ID, f.admin.UserID, f.now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMineAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.submit(t, f.tank, "sword")
	f.submit(t, f.healer, "sword")

	apps, total, err := f.service.Mine(ctx, f.tank, models.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, apps, 1)
	assert.Equal(t, mine.ID, apps[0].ID)

	_, _, err = f.service.List(ctx, models.ListFilter{Status: "lost"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)

	_, err = f.service.Get(ctx, f.healer, false, mine.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	got, err := f.service.Get(ctx, f.admin, true, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tanky", got.CharacterName)
}
