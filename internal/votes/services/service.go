package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	authModels "loot-tracker/internal/auth/models"
	notifModels "loot-tracker/internal/notifications/models"
	"loot-tracker/internal/votes/dto"
	"loot-tracker/internal/votes/models"
	"loot-tracker/pkg/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultVoteDuration = 72 * time.Hour
	claimTimeout        = 10 * time.Minute
)

// Store is the persistence votes need
type Store interface {
	Create(ctx context.Context, vote *models.Vote) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vote, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Vote, int64, error)
	Cast(ctx context.Context, id primitive.ObjectID, optionID string, voter primitive.ObjectID, at time.Time) (*models.Vote, error)
	ClaimDue(ctx context.Context, now, staleBefore time.Time) (*models.Vote, error)
	Close(ctx context.Context, id primitive.ObjectID, winners []string, at time.Time) (*models.Vote, error)
}

// Notifier delivers in-app notifications
type Notifier interface {
	Notify(ctx context.Context, msg notifModels.Message) error
}

// Service runs guild votes
type Service struct {
	store    Store
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a new service instance
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, validate: validator.New(), now: time.Now}
}

// Create opens a vote
func (s *Service) Create(ctx context.Context, actor *authModels.AuthenticatedUser, req dto.CreateVoteRequest) (*models.Vote, error) {
	creator, err := primitive.ObjectIDFromHex(actor.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid session")
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	now := s.now()
	deadline := now.Add(defaultVoteDuration)
	if req.Deadline != nil {
		deadline = req.Deadline.UTC()
	}
	if !deadline.After(now) {
		return nil, apperrors.Validation("deadline must be in the future")
	}

	seen := make(map[string]bool, len(req.Options))
	options := make([]models.Option, 0, len(req.Options))
	for _, label := range req.Options {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" || seen[key] {
			return nil, apperrors.Validation("options must be distinct and non-empty")
		}
		seen[key] = true
		options = append(options, models.Option{ID: uuid.New().String(), Label: label})
	}

	vote := &models.Vote{
		Title:         req.Title,
		Description:   req.Description,
		Options:       options,
		Deadline:      deadline,
		Status:        models.StatusOpen,
		CreatedBy:     creator,
		CreatedByName: actor.CharacterName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, vote); err != nil {
		return nil, err
	}
	slog.Info("Vote opened", "vote_id", vote.ID.Hex(), "deadline", deadline, "options", len(options))
	return vote, nil
}

// Cast records the caller's ballot
func (s *Service) Cast(ctx context.Context, user *authModels.AuthenticatedUser, id primitive.ObjectID, optionID string) (*models.Vote, error) {
	voter, err := primitive.ObjectIDFromHex(user.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid session")
	}

	vote, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if vote.Status != models.StatusOpen || !now.Before(vote.Deadline) {
		return nil, apperrors.InvalidState("vote is closed")
	}
	if _, ok := vote.Option(optionID); !ok {
		return nil, apperrors.Validation("unknown option %q", optionID)
	}
	if vote.HasVoted(voter) {
		return nil, apperrors.Conflict("you already voted")
	}

	return s.store.Cast(ctx, id, optionID, voter, now)
}

// Get returns one vote
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Vote, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a page of votes
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.Vote, int64, error) {
	switch filter.Status {
	case "", models.StatusOpen, models.StatusClosing, models.StatusClosed:
	default:
		return nil, 0, apperrors.Validation("unknown vote status %q", filter.Status)
	}
	return s.store.List(ctx, filter)
}

// CloseDue closes every vote whose deadline passed and returns how many it closed. Each
// vote is claimed before it is tallied so overlapping sweeps never close one twice.
func (s *Service) CloseDue(ctx context.Context, now time.Time) (int, error) {
	closed := 0
	for {
		vote, err := s.store.ClaimDue(ctx, now, now.Add(-claimTimeout))
		if err != nil {
			return closed, err
		}
		if vote == nil {
			return closed, nil
		}

		done, err := s.store.Close(ctx, vote.ID, vote.Tally(), now)
		if err != nil {
			return closed, fmt.Errorf("closing vote %s: %w", vote.ID.Hex(), err)
		}
		closed++
		slog.Info("Vote closed", "vote_id", done.ID.Hex(), "voters", done.VoterCount, "winners", done.Winners)
		s.notifyClosed(ctx, done)
	}
}

func (s *Service) notifyClosed(ctx context.Context, vote *models.Vote) {
	if s.notifier == nil || len(vote.Voters) == 0 {
		return
	}

	labels := make([]string, 0, len(vote.Winners))
	for _, id := range vote.Winners {
		if option, ok := vote.Option(id); ok {
			labels = append(labels, option.Label)
		}
	}
	result := "no winner"
	if len(labels) > 0 {
		result = strings.Join(labels, ", ")
	}

	err := s.notifier.Notify(ctx, notifModels.Message{
		Recipients: vote.Voters,
		Type:       notifModels.TypeVoteClosed,
		Priority:   notifModels.PriorityNormal,
		Title:      "Vote closed",
		Body:       fmt.Sprintf("%s: %s", vote.Title, result),
		Metadata:   map[string]string{"vote_id": vote.ID.Hex()},
		DedupeKey:  "vote_closed:" + vote.ID.Hex(),
	})
	if err != nil {
		slog.Warn("Failed to notify voters", "vote_id", vote.ID.Hex(), "error", err)
	}
}
