package services

import (
	"context"
	"sync"
	"testing"
	"time"

	authModels "loot-tracker/internal/auth/models"
	notifModels "loot-tracker/internal/notifications/models"
	"loot-tracker/internal/votes/dto"
	"loot-tracker/internal/votes/models"
	"loot-tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryVotes struct {
	mu    sync.Mutex
	votes map[primitive.ObjectID]*models.Vote
}

func newMemoryVotes() *memoryVotes {
	return &memoryVotes{votes: make(map[primitive.ObjectID]*models.Vote)}
}

func clone(v *models.Vote) *models.Vote {
	c := *v
	c.Options = append([]models.Option(nil), v.Options...)
	c.Voters = append([]primitive.ObjectID(nil), v.Voters...)
	c.Winners = append([]string(nil), v.Winners...)
	return &c
}

func (m *memoryVotes) Create(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vote.ID = primitive.NewObjectID()
	m.votes[vote.ID] = clone(vote)
	return nil
}

func (m *memoryVotes) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vote, ok := m.votes[id]
	if !ok {
		return nil, apperrors.NotFound("vote not found")
	}
	return clone(vote), nil
}

func (m *memoryVotes) List(ctx context.Context, filter models.ListFilter) ([]models.Vote, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Vote{}
	for _, vote := range m.votes {
		if filter.Status == "" || vote.Status == filter.Status {
			out = append(out, *clone(vote))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryVotes) Cast(ctx context.Context, id primitive.ObjectID, optionID string, voter primitive.ObjectID, at time.Time) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vote, ok := m.votes[id]
	if !ok || vote.Status != models.StatusOpen || !vote.Deadline.After(at) || vote.HasVoted(voter) {
		return nil, apperrors.Conflict("ballot not accepted, the vote closed or you already voted")
	}
	option, ok := vote.Option(optionID)
	if !ok {
		return nil, apperrors.Conflict("ballot not accepted, the vote closed or you already voted")
	}
	option.Votes++
	vote.Voters = append(vote.Voters, voter)
	vote.VoterCount++
	return clone(vote), nil
}

func (m *memoryVotes) ClaimDue(ctx context.Context, now, staleBefore time.Time) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vote := range m.votes {
		due := vote.Status == models.StatusOpen && !vote.Deadline.After(now)
		stale := vote.Status == models.StatusClosing && vote.ClaimedAt != nil && vote.ClaimedAt.Before(staleBefore)
		if due || stale {
			vote.Status = models.StatusClosing
			claimed := now
			vote.ClaimedAt = &claimed
			return clone(vote), nil
		}
	}
	return nil, nil
}

func (m *memoryVotes) Close(ctx context.Context, id primitive.ObjectID, winners []string, at time.Time) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vote, ok := m.votes[id]
	if !ok || vote.Status != models.StatusClosing {
		return nil, apperrors.InvalidState("vote is no longer closing")
	}
	vote.Status = models.StatusClosed
	vote.Winners = winners
	vote.ClaimedAt = nil
	vote.ClosedAt = &at
	return clone(vote), nil
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

func member() *authModels.AuthenticatedUser {
	return &authModels.AuthenticatedUser{
		UserID:        primitive.NewObjectID().Hex(),
		Username:      "member",
		CharacterName: "Member",
		Role:          authModels.RoleUser,
	}
}

func newTestService(now time.Time) (*Service, *memoryVotes, *recordingNotifier) {
	store := newMemoryVotes()
	notifier := &recordingNotifier{}
	service := NewService(store, notifier)
	service.now = func() time.Time { return now }
	return service, store, notifier
}

func TestCreateVote(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(now)
	ctx := context.Background()
	admin := member()

	vote, err := service.Create(ctx, admin, dto.CreateVoteRequest{Title: "  Raid night  ", Options: []string{"Friday", "Saturday"}})
	require.NoError(t, err)
	assert.Equal(t, "Raid night", vote.Title)
	assert.Equal(t, models.StatusOpen, vote.Status)
	assert.Equal(t, now.Add(72*time.Hour), vote.Deadline)
	require.Len(t, vote.Options, 2)
	assert.NotEqual(t, vote.Options[0].ID, vote.Options[1].ID)

	tests := []struct {
		name string
		req  dto.CreateVoteRequest
	}{
		{"one option", dto.CreateVoteRequest{Title: "Raid night", Options: []string{"Friday"}}},
		{"duplicate options", dto.CreateVoteRequest{Title: "Raid night", Options: []string{"Friday", "friday"}}},
		{"missing title", dto.CreateVoteRequest{Options: []string{"Friday", "Saturday"}}},
		{"past deadline", dto.CreateVoteRequest{Title: "Raid night", Options: []string{"Friday", "Saturday"}, Deadline: ptr(now.Add(-time.Minute))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(ctx, admin, tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestCastBallots(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(now)
	ctx := context.Background()

	vote, err := service.Create(ctx, member(), dto.CreateVoteRequest{Title: "Raid night", Options: []string{"Friday", "Saturday"}, Deadline: ptr(now.Add(time.Hour))})
	require.NoError(t, err)
	friday := vote.Options[0].ID

	alice := member()
	updated, err := service.Cast(ctx, alice, vote.ID, friday)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Options[0].Votes)
	assert.Equal(t, 1, updated.VoterCount)

	_, err = service.Cast(ctx, alice, vote.ID, vote.Options[1].ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = service.Cast(ctx, member(), vote.ID, "nope")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Cast(ctx, member(), primitive.NewObjectID(), friday)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	service.now = func() time.Time { return now.Add(time.Hour) }
	_, err = service.Cast(ctx, member(), vote.ID, friday)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCloseDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service, store, notifier := newTestService(now)
	ctx := context.Background()

	due, err := service.Create(ctx, member(), dto.CreateVoteRequest{Title: "Raid night", Options: []string{"Friday", "Saturday"}, Deadline: ptr(now.Add(time.Hour))})
	require.NoError(t, err)
	later, err := service.Create(ctx, member(), dto.CreateVoteRequest{Title: "Loot rules", Options: []string{"DKP", "Roll"}, Deadline: ptr(now.Add(48 * time.Hour))})
	require.NoError(t, err)
	empty, err := service.Create(ctx, member(), dto.CreateVoteRequest{Title: "Guild name", Options: []string{"A", "B"}, Deadline: ptr(now.Add(time.Hour))})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := service.Cast(ctx, member(), due.ID, due.Options[1].ID)
		require.NoError(t, err)
	}
	_, err = service.Cast(ctx, member(), due.ID, due.Options[0].ID)
	require.NoError(t, err)

	closed, err := service.CloseDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	got, err := store.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, got.Status)
	assert.Equal(t, []string{due.Options[1].ID}, got.Winners)

	got, err = store.GetByID(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, got.Status)
	assert.Empty(t, got.Winners)

	got, err = store.GetByID(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notifModels.TypeVoteClosed, notifier.messages[0].Type)
	assert.Len(t, notifier.messages[0].Recipients, 4)
	assert.Contains(t, notifier.messages[0].Body, "Saturday")

	closed, err = service.CloseDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestTallyTies(t *testing.T) {
	vote := models.Vote{Options: []models.Option{{ID: "a", Votes: 2}, {ID: "b", Votes: 2}, {ID: "c", Votes: 1}}}
	assert.Equal(t, []string{"a", "b"}, vote.Tally())

	vote = models.Vote{Options: []models.Option{{ID: "a"}, {ID: "b"}}}
	assert.Empty(t, vote.Tally())
}
