package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	authModels "loot-tracker/internal/auth/models"
	bossModels "loot-tracker/internal/bosses/models"
	"loot-tracker/internal/bosskills/dto"
	"loot-tracker/internal/bosskills/models"
	guildModels "loot-tracker/internal/guild/models"
	notifModels "loot-tracker/internal/notifications/models"
	userModels "loot-tracker/internal/users/models"
	walletModels "loot-tracker/internal/wallet/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryKills struct {
	mu    sync.Mutex
	kills map[primitive.ObjectID]*models.BossKill
}

func newMemoryKills() *memoryKills {
	return &memoryKills{kills: make(map[primitive.ObjectID]*models.BossKill)}
}

func cloneKill(kill *models.BossKill) *models.BossKill {
	copied := *kill
	copied.DroppedItems = append([]models.DroppedItem(nil), kill.DroppedItems...)
	copied.Attendees = append([]string(nil), kill.Attendees...)
	return &copied
}

func (m *memoryKills) Create(ctx context.Context, kill *models.BossKill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill.ID = primitive.NewObjectID()
	m.kills[kill.ID] = cloneKill(kill)
	return nil
}

func (m *memoryKills) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[id]
	if !ok {
		return nil, apperrors.NotFound("boss kill not found")
	}
	return cloneKill(kill), nil
}

func (m *memoryKills) List(ctx context.Context, filter models.ListFilter) ([]models.BossKill, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BossKill
	for _, kill := range m.kills {
		if filter.Status == "" || kill.Status == filter.Status {
			out = append(out, *cloneKill(kill))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryKills) UpdateDetails(ctx context.Context, id primitive.ObjectID, set map[string]interface{}, at time.Time) (*models.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[id]
	if !ok {
		return nil, apperrors.NotFound("boss kill not found")
	}
	if attendees, ok := set["attendees"].([]string); ok {
		kill.Attendees = attendees
	}
	if killTime, ok := set["kill_time"].(time.Time); ok {
		kill.KillTime = killTime
	}
	kill.UpdatedAt = at
	kill.Version++
	return cloneKill(kill), nil
}

func (m *memoryKills) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kills[id]; !ok {
		return apperrors.NotFound("boss kill not found")
	}
	delete(m.kills, id)
	return nil
}

func (m *memoryKills) ClaimExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var modified int64
	for _, kill := range m.kills {
		touched := false
		for i := range kill.DroppedItems {
			item := &kill.DroppedItems[i]
			if item.Status == models.ItemPending && !item.ApplyDeadline.After(now) && !item.Owned() {
				item.Status = models.ItemProcessing
				touched = true
			}
		}
		if touched {
			kill.Version++
			modified++
		}
	}
	return modified, nil
}

func (m *memoryKills) FindProcessing(ctx context.Context) ([]models.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BossKill
	for _, kill := range m.kills {
		for _, item := range kill.DroppedItems {
			if item.Status == models.ItemProcessing {
				out = append(out, *cloneKill(kill))
				break
			}
		}
	}
	return out, nil
}

func (m *memoryKills) FlipProcessing(ctx context.Context, killID primitive.ObjectID, at time.Time) (*models.BossKill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[killID]
	if !ok {
		return nil, apperrors.NotFound("boss kill not found")
	}
	for i := range kill.DroppedItems {
		if kill.DroppedItems[i].Status == models.ItemProcessing {
			kill.DroppedItems[i].Status = models.ItemExpired
		}
	}
	kill.Status = models.Summarize(kill.DroppedItems)
	kill.Version++
	return cloneKill(kill), nil
}

func (m *memoryKills) ListAuctionable(ctx context.Context) ([]models.AuctionableItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuctionableItem
	for _, kill := range m.kills {
		for _, item := range kill.DroppedItems {
			if item.Status == models.ItemExpired && !item.Owned() {
				out = append(out, models.AuctionableItem{KillID: kill.ID, ItemID: item.ID, ItemName: item.Name})
			}
		}
	}
	return out, nil
}

func (m *memoryKills) AddAttendee(ctx context.Context, killID primitive.ObjectID, characterName string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kill, ok := m.kills[killID]
	if !ok {
		return apperrors.NotFound("boss kill not found")
	}
	for _, attendee := range kill.Attendees {
		if attendee == characterName {
			return nil
		}
	}
	kill.Attendees = append(kill.Attendees, characterName)
	return nil
}

type memoryAttendees struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.AttendeeRequest
}

func (m *memoryAttendees) Create(ctx context.Context, req *models.AttendeeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.KillID == req.KillID && existing.UserID == req.UserID && existing.Status == models.AttendeePending {
			return apperrors.Conflict("an attendance request for this kill is already pending")
		}
	}
	req.ID = primitive.NewObjectID()
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memoryAttendees) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AttendeeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, apperrors.NotFound("attendance request not found")
	}
	copied := *req
	return &copied, nil
}

func (m *memoryAttendees) List(ctx context.Context, status models.AttendeeStatus, killID *primitive.ObjectID) ([]models.AttendeeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendeeRequest
	for _, req := range m.requests {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *memoryAttendees) Resolve(ctx context.Context, id primitive.ObjectID, status models.AttendeeStatus, resolvedBy string, at time.Time) (*models.AttendeeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, apperrors.NotFound("attendance request not found")
	}
	if req.Status != models.AttendeePending {
		return nil, apperrors.InvalidState("attendance request is already %s", req.Status)
	}
	req.Status = status
	req.ResolvedBy = resolvedBy
	req.ResolvedAt = &at
	copied := *req
	return &copied, nil
}

func (m *memoryAttendees) DeleteForKill(ctx context.Context, killID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, req := range m.requests {
		if req.KillID == killID {
			delete(m.requests, id)
		}
	}
	return nil
}

type staticBosses map[primitive.ObjectID]bossModels.Boss

func (s staticBosses) Get(ctx context.Context, id primitive.ObjectID) (*bossModels.Boss, error) {
	boss, ok := s[id]
	if !ok {
		return nil, apperrors.NotFound("boss not found")
	}
	return &boss, nil
}

type staticSettings map[string]int

func (s staticSettings) GetInt(ctx context.Context, key string) (int, error) {
	if value, ok := s[key]; ok {
		return value, nil
	}
	value, _ := guildModels.DefaultValue(key)
	return value.(int), nil
}

type directory struct {
	users []userModels.User
}

func (d *directory) FindByCharacterNames(ctx context.Context, names []string) ([]userModels.User, error) {
	var out []userModels.User
	for _, user := range d.users {
		for _, name := range names {
			if strings.EqualFold(user.CharacterName, name) {
				out = append(out, user)
			}
		}
	}
	return out, nil
}

func (d *directory) IDsByRole(ctx context.Context, roles ...authModels.Role) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for _, user := range d.users {
		for _, role := range roles {
			if user.Role == role {
				out = append(out, user.ID)
			}
		}
	}
	return out, nil
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

func (r *recordingNotifier) ofType(kind notifModels.Type) []notifModels.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifModels.Message
	for _, msg := range r.messages {
		if msg.Type == kind {
			out = append(out, msg)
		}
	}
	return out
}

type recordingRewarder struct {
	entries []walletModels.Entry
}

func (r *recordingRewarder) Credit(ctx context.Context, entry walletModels.Entry) (*walletModels.Transaction, error) {
	r.entries = append(r.entries, entry)
	return &walletModels.Transaction{UserID: entry.UserID, Amount: entry.Amount}, nil
}

type fixture struct {
	service   *Service
	kills     *memoryKills
	attendees *memoryAttendees
	notifier  *recordingNotifier
	rewarder  *recordingRewarder
	settings  staticSettings
	bossID    primitive.ObjectID
	admin     *authModels.AuthenticatedUser
	tank      userModels.User
	healer    userModels.User
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kills:     newMemoryKills(),
		attendees: &memoryAttendees{requests: make(map[primitive.ObjectID]*models.AttendeeRequest)},
		notifier:  &recordingNotifier{},
		rewarder:  &recordingRewarder{},
		settings:  staticSettings{},
		bossID:    primitive.NewObjectID(),
		now:       time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC),
	}
	adminUser := userModels.User{ID: primitive.NewObjectID(), CharacterName: "Leader", Role: authModels.RoleAdmin}
	f.tank = userModels.User{ID: primitive.NewObjectID(), CharacterName: "Tanky", Role: authModels.RoleUser}
	f.healer = userModels.User{ID: primitive.NewObjectID(), CharacterName: "Healz", Role: authModels.RoleUser}
	f.admin = &authModels.AuthenticatedUser{UserID: adminUser.ID.Hex(), CharacterName: "Leader", Role: authModels.RoleAdmin}

	f.service = NewService(
		f.kills,
		f.attendees,
		&database.SerialTxRunner{},
		staticBosses{f.bossID: {ID: f.bossID, Name: "Kzarka"}},
		f.settings,
		&directory{users: []userModels.User{adminUser, f.tank, f.healer}},
		f.notifier,
	)
	f.service.SetRewarder(f.rewarder)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) createKill(t *testing.T, items ...dto.ItemRequest) *models.BossKill {
	t.Helper()
	if len(items) == 0 {
		items = []dto.ItemRequest{{Name: "Kzarka Longsword"}, {Name: "Kzarka Shield"}}
	}
	kill, err := f.service.Create(context.Background(), f.admin, dto.CreateKillRequest{
		BossID:    f.bossID.Hex(),
		Items:     items,
		Attendees: []string{"Tanky", " Healz ", "tanky", "Pug"},
	})
	require.NoError(t, err)
	return kill
}

func TestCreateKill(t *testing.T) {
	f := newFixture(t)
	kill := f.createKill(t)

	assert.Equal(t, "Kzarka", kill.BossName)
	assert.Equal(t, models.KillPending, kill.Status)
	assert.Equal(t, []string{"Tanky", "Healz", "Pug"}, kill.Attendees)
	require.Len(t, kill.DroppedItems, 2)
	for _, item := range kill.DroppedItems {
		assert.Equal(t, models.ItemPending, item.Status)
		assert.Equal(t, f.now.Add(48*time.Hour), item.ApplyDeadline)
		assert.NotEmpty(t, item.ID)
	}
	assert.NotEqual(t, kill.DroppedItems[0].ID, kill.DroppedItems[1].ID)

	open := f.notifier.ofType(notifModels.TypeLootOpen)
	require.Len(t, open, 1)
	assert.ElementsMatch(t, []primitive.ObjectID{f.tank.ID, f.healer.ID}, open[0].Recipients)
	assert.Empty(t, f.rewarder.entries)
}

func TestCreateKillExplicitDeadlineAndDKP(t *testing.T) {
	f := newFixture(t)
	f.settings[guildModels.KeyDKPPerKill] = 5
	deadline := f.now.Add(2 * time.Hour)

	kill := f.createKill(t, dto.ItemRequest{Name: "Ring", ApplyDeadline: &deadline})
	assert.Equal(t, deadline, kill.DroppedItems[0].ApplyDeadline)

	require.Len(t, f.rewarder.entries, 2)
	for _, entry := range f.rewarder.entries {
		assert.Equal(t, walletModels.CurrencyDKP, entry.Currency)
		assert.Equal(t, int64(5), entry.Amount)
		assert.Contains(t, entry.IdempotencyKey, kill.ID.Hex())
	}
}

func TestCreateKillValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.admin, dto.CreateKillRequest{BossID: f.bossID.Hex(), Attendees: []string{"Tanky"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(ctx, f.admin, dto.CreateKillRequest{BossID: f.bossID.Hex(), Items: []dto.ItemRequest{{Name: "Ring"}}, Attendees: []string{"  "}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(ctx, f.admin, dto.CreateKillRequest{BossID: "nope", Items: []dto.ItemRequest{{Name: "Ring"}}, Attendees: []string{"Tanky"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(ctx, f.admin, dto.CreateKillRequest{BossID: primitive.NewObjectID().Hex(), Items: []dto.ItemRequest{{Name: "Ring"}}, Attendees: []string{"Tanky"}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExpireItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)

	kill := f.createKill(t,
		dto.ItemRequest{Name: "Overdue", ApplyDeadline: &past},
		dto.ItemRequest{Name: "Open", ApplyDeadline: &future},
	)

	expired, err := f.service.ExpireItems(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.service.Get(ctx, kill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemExpired, stored.DroppedItems[0].Status)
	assert.Equal(t, models.ItemPending, stored.DroppedItems[1].Status)
	assert.Equal(t, models.KillPending, stored.Status)

	expired, err = f.service.ExpireItems(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, expired)

	notices := f.notifier.ofType(notifModels.TypeItemsExpired)
	require.Len(t, notices, 1)
	assert.Equal(t, "items_expired:"+kill.ID.Hex(), notices[0].DedupeKey)

	auctionable, err := f.service.Auctionable(ctx)
	require.NoError(t, err)
	require.Len(t, auctionable, 1)
	assert.Equal(t, "Overdue", auctionable[0].ItemName)
}

func TestExpireItemsSkipsOwnedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.Add(-time.Hour)
	kill := f.createKill(t, dto.ItemRequest{Name: "Given", ApplyDeadline: &past})

	owner := f.tank.ID
	f.kills.kills[kill.ID].DroppedItems[0].Status = models.ItemAssigned
	f.kills.kills[kill.ID].DroppedItems[0].FinalRecipient = &owner

	expired, err := f.service.ExpireItems(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestExpireItemsFinishesInterruptedRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := f.now.Add(time.Hour)
	kill := f.createKill(t, dto.ItemRequest{Name: "Claimed", ApplyDeadline: &future})
	f.kills.kills[kill.ID].DroppedItems[0].Status = models.ItemProcessing

	expired, err := f.service.ExpireItems(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.service.Get(ctx, kill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemExpired, stored.DroppedItems[0].Status)
	assert.Equal(t, models.KillExpired, stored.Status)
}

func TestExpireItemsRejectsPendingApplications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)

	kill := f.createKill(t,
		dto.ItemRequest{Name: "Overdue", ApplyDeadline: &past},
		dto.ItemRequest{Name: "Open", ApplyDeadline: &future},
	)
	overdue := kill.DroppedItems[0].ID
	open := kill.DroppedItems[1].ID

	cascade := &fakeCascade{pending: map[string]int{
		cascadeKey(kill.ID, overdue): 2,
		cascadeKey(kill.ID, open):    1,
	}}
	f.service.SetApplications(cascade)

	t.Run("FailureLeavesItemsClaimed", func(t *testing.T) {
		cascade.failItem = apperrors.Conflict("write conflict")
		expired, err := f.service.ExpireItems(ctx, f.now)
		require.NoError(t, err)
		assert.Zero(t, expired)
		assert.Equal(t, models.ItemProcessing, f.kills.kills[kill.ID].DroppedItems[0].Status)
		assert.Empty(t, f.notifier.ofType(notifModels.TypeItemsExpired))
		cascade.failItem = nil
	})

	expired, err := f.service.ExpireItems(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.service.Get(ctx, kill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemExpired, stored.DroppedItems[0].Status)
	assert.NotContains(t, cascade.pending, cascadeKey(kill.ID, overdue), "an expired item has no pending applications")
	assert.Equal(t, 1, cascade.pending[cascadeKey(kill.ID, open)])
	assert.Equal(t, []string{"system:expire-items"}, cascade.closedBy)
}

type fakeCascade struct {
	approved int64
	rejected []primitive.ObjectID
	// pending counts open applications by kill and item
	pending  map[string]int
	closedBy []string
	failItem error
}

func cascadeKey(killID primitive.ObjectID, itemID string) string {
	return killID.Hex() + ":" + itemID
}

func (c *fakeCascade) RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, resolvedBy string, at time.Time) (int, error) {
	if c.failItem != nil {
		return 0, c.failItem
	}
	key := cascadeKey(killID, itemID)
	n := c.pending[key]
	delete(c.pending, key)
	c.closedBy = append(c.closedBy, resolvedBy)
	return n, nil
}

func (c *fakeCascade) CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error) {
	return c.approved, nil
}

func (c *fakeCascade) RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error) {
	c.rejected = append(c.rejected, killID)
	return 1, nil
}

func TestDeleteKill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cascade := &fakeCascade{}
	f.service.SetApplications(cascade)

	t.Run("BlockedByApprovedApplication", func(t *testing.T) {
		kill := f.createKill(t)
		cascade.approved = 1
		err := f.service.Delete(ctx, f.admin, kill.ID)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		cascade.approved = 0
	})

	t.Run("BlockedBySoldItem", func(t *testing.T) {
		kill := f.createKill(t)
		f.kills.kills[kill.ID].DroppedItems[1].Status = models.ItemSold
		err := f.service.Delete(ctx, f.admin, kill.ID)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("RejectsPendingApplications", func(t *testing.T) {
		kill := f.createKill(t)
		require.NoError(t, f.service.Delete(ctx, f.admin, kill.ID))
		assert.Contains(t, cascade.rejected, kill.ID)
		_, err := f.service.Get(ctx, kill.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAttendanceRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kill := f.createKill(t)

	attendee := &authModels.AuthenticatedUser{UserID: f.tank.ID.Hex(), CharacterName: "Tanky"}
	_, err := f.service.RequestAttendance(ctx, attendee, kill.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	latecomer := &authModels.AuthenticatedUser{UserID: primitive.NewObjectID().Hex(), CharacterName: "Latecomer"}
	req, err := f.service.RequestAttendance(ctx, latecomer, kill.ID, "was on voice")
	require.NoError(t, err)
	assert.Equal(t, models.AttendeePending, req.Status)
	assert.Len(t, f.notifier.ofType(notifModels.TypeAttendeeRequest), 1)

	_, err = f.service.RequestAttendance(ctx, latecomer, kill.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	resolved, err := f.service.ResolveAttendance(ctx, f.admin, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.AttendeeApproved, resolved.Status)

	stored, err := f.service.Get(ctx, kill.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasAttendee("Latecomer"))

	_, err = f.service.ResolveAttendance(ctx, f.admin, req.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestUpdateKill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kill := f.createKill(t)

	_, err := f.service.Update(ctx, kill.ID, dto.UpdateKillRequest{Attendees: []string{" "}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := f.service.Update(ctx, kill.ID, dto.UpdateKillRequest{Attendees: []string{"Tanky", "Newbie"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tanky", "Newbie"}, updated.Attendees)
	assert.Equal(t, kill.DroppedItems[0].ApplyDeadline, updated.DroppedItems[0].ApplyDeadline)
}
