package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
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
	"loot-tracker/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KillStore is the boss kill persistence the service needs
type KillStore interface {
	Create(ctx context.Context, kill *models.BossKill) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.BossKill, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.BossKill, int64, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, set map[string]interface{}, at time.Time) (*models.BossKill, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ClaimExpired(ctx context.Context, now time.Time) (int64, error)
	FindProcessing(ctx context.Context) ([]models.BossKill, error)
	FlipProcessing(ctx context.Context, killID primitive.ObjectID, at time.Time) (*models.BossKill, error)
	ListAuctionable(ctx context.Context) ([]models.AuctionableItem, error)
	AddAttendee(ctx context.Context, killID primitive.ObjectID, characterName string, at time.Time) error
}

// AttendeeStore is the attendance request persistence the service needs
type AttendeeStore interface {
	Create(ctx context.Context, req *models.AttendeeRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.AttendeeRequest, error)
	List(ctx context.Context, status models.AttendeeStatus, killID *primitive.ObjectID) ([]models.AttendeeRequest, error)
	Resolve(ctx context.Context, id primitive.ObjectID, status models.AttendeeStatus, resolvedBy string, at time.Time) (*models.AttendeeRequest, error)
	DeleteForKill(ctx context.Context, killID primitive.ObjectID) error
}

// BossReader looks up catalogue entries
type BossReader interface {
	Get(ctx context.Context, id primitive.ObjectID) (*bossModels.Boss, error)
}

// SettingsReader reads integer guild settings
type SettingsReader interface {
	GetInt(ctx context.Context, key string) (int, error)
}

// UserDirectory resolves characters and roles to accounts
type UserDirectory interface {
	FindByCharacterNames(ctx context.Context, names []string) ([]userModels.User, error)
	IDsByRole(ctx context.Context, roles ...authModels.Role) ([]primitive.ObjectID, error)
}

// Notifier sends in-app notifications
type Notifier interface {
	Notify(ctx context.Context, msg notifModels.Message) error
}

// Rewarder credits currency to attendees
type Rewarder interface {
	Credit(ctx context.Context, entry walletModels.Entry) (*walletModels.Transaction, error)
}

// ApplicationCascade is what deleting a kill or expiring its items needs from applications
type ApplicationCascade interface {
	CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error)
	RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error)
	RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, resolvedBy string, at time.Time) (int, error)
}

// expirySweeper is recorded as the resolver of applications closed by ExpireItems
const expirySweeper = "system:expire-items"

// Service handles boss kills, the dropped item lifecycle outside of approval, and
// attendance requests
type Service struct {
	kills        KillStore
	attendees    AttendeeStore
	tx           database.TxRunner
	bosses       BossReader
	settings     SettingsReader
	users        UserDirectory
	notifier     Notifier
	rewarder     Rewarder
	applications ApplicationCascade
	validate     *validator.Validate
	now          func() time.Time
}

// NewService creates a new service instance
func NewService(kills KillStore, attendees AttendeeStore, tx database.TxRunner, bosses BossReader, settings SettingsReader, users UserDirectory, notifier Notifier) *Service {
	return &Service{
		kills:     kills,
		attendees: attendees,
		tx:        tx,
		bosses:    bosses,
		settings:  settings,
		users:     users,
		notifier:  notifier,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// SetRewarder wires the wallet used for per-kill DKP
func (s *Service) SetRewarder(rewarder Rewarder) {
	s.rewarder = rewarder
}

// SetApplications wires the applications cascade used when deleting kills and expiring items
func (s *Service) SetApplications(applications ApplicationCascade) {
	s.applications = applications
}

// Create records a kill. Every item opens for applications until its deadline.
func (s *Service) Create(ctx context.Context, actor *authModels.AuthenticatedUser, req dto.CreateKillRequest) (*models.BossKill, error) {
	req.Attendees = normalizeNames(req.Attendees)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	bossID, err := primitive.ObjectIDFromHex(req.BossID)
	if err != nil {
		return nil, apperrors.Validation("invalid boss_id")
	}
	boss, err := s.bosses.Get(ctx, bossID)
	if err != nil {
		return nil, err
	}

	hours, err := s.settings.GetInt(ctx, guildModels.KeyApplyDeadlineHours)
	if err != nil {
		return nil, err
	}

	now := s.now()
	killTime := now
	if req.KillTime != nil {
		killTime = req.KillTime.UTC()
	}
	defaultDeadline := killTime.Add(time.Duration(hours) * time.Hour)

	items := make([]models.DroppedItem, len(req.Items))
	for i, item := range req.Items {
		deadline := defaultDeadline
		if item.ApplyDeadline != nil {
			deadline = item.ApplyDeadline.UTC()
		}
		items[i] = models.DroppedItem{
			ID:            uuid.New().String(),
			Name:          strings.TrimSpace(item.Name),
			Type:          strings.TrimSpace(item.Type),
			ApplyDeadline: deadline,
			Status:        models.ItemPending,
		}
	}

	kill := &models.BossKill{
		BossID:       boss.ID,
		BossName:     boss.Name,
		KillTime:     killTime,
		DroppedItems: items,
		Attendees:    req.Attendees,
		Screenshots:  req.Screenshots,
		Status:       models.Summarize(items),
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if err := s.kills.Create(ctx, kill); err != nil {
		return nil, err
	}

	slog.Info("Boss kill recorded",
		"kill_id", kill.ID.Hex(),
		"boss", kill.BossName,
		"items", len(items),
		"attendees", len(kill.Attendees),
		"by", actor.UserID)

	s.announce(ctx, kill)
	return kill, nil
}

// announce tells attendees with accounts that loot is open and credits per-kill DKP
func (s *Service) announce(ctx context.Context, kill *models.BossKill) {
	members, err := s.users.FindByCharacterNames(ctx, kill.Attendees)
	if err != nil {
		slog.Error("Failed to resolve kill attendees", "kill_id", kill.ID.Hex(), "error", err)
		return
	}
	if len(members) == 0 {
		return
	}

	recipients := make([]primitive.ObjectID, len(members))
	for i, member := range members {
		recipients[i] = member.ID
	}

	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: recipients,
		Type:       notifModels.TypeLootOpen,
		Title:      fmt.Sprintf("%s loot is open", kill.BossName),
		Body:       fmt.Sprintf("%d items can be applied for until %s", len(kill.DroppedItems), kill.DroppedItems[0].ApplyDeadline.Format(time.RFC3339)),
		Metadata:   map[string]string{"kill_id": kill.ID.Hex()},
		DedupeKey:  "loot_open:" + kill.ID.Hex(),
	})
	if err != nil {
		slog.Error("Failed to notify kill attendees", "kill_id", kill.ID.Hex(), "error", err)
	}

	if s.rewarder == nil {
		return
	}
	dkp, err := s.settings.GetInt(ctx, guildModels.KeyDKPPerKill)
	if err != nil || dkp <= 0 {
		return
	}
	for _, member := range members {
		_, err := s.rewarder.Credit(ctx, walletModels.Entry{
			UserID:         member.ID,
			Currency:       walletModels.CurrencyDKP,
			Amount:         int64(dkp),
			Kind:           walletModels.KindGrant,
			Reference:      "kill:" + kill.ID.Hex(),
			IdempotencyKey: "kill:" + kill.ID.Hex() + ":dkp:" + member.ID.Hex(),
			CreatedBy:      kill.CreatedBy,
		})
		if err != nil {
			slog.Error("Failed to credit kill DKP", "kill_id", kill.ID.Hex(), "user_id", member.ID.Hex(), "error", err)
		}
	}
}

// Get returns one kill
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.BossKill, error) {
	return s.kills.GetByID(ctx, id)
}

// List returns a page of kills
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.BossKill, int64, error) {
	switch filter.Status {
	case "", models.KillPending, models.KillAssigned, models.KillExpired:
	default:
		return nil, 0, apperrors.Validation("unknown kill status %q", filter.Status)
	}
	return s.kills.List(ctx, filter)
}

// Update edits the kill time, attendees or screenshots. Item deadlines are not moved.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, req dto.UpdateKillRequest) (*models.BossKill, error) {
	if req.Attendees != nil {
		req.Attendees = normalizeNames(req.Attendees)
		if len(req.Attendees) == 0 {
			return nil, apperrors.Validation("attendees cannot be empty")
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	set := map[string]interface{}{}
	if req.KillTime != nil {
		set["kill_time"] = req.KillTime.UTC()
	}
	if req.Attendees != nil {
		set["attendees"] = req.Attendees
	}
	if req.Screenshots != nil {
		set["screenshots"] = req.Screenshots
	}
	if len(set) == 0 {
		return s.kills.GetByID(ctx, id)
	}
	return s.kills.UpdateDetails(ctx, id, set, s.now())
}

// Delete removes a kill nobody received loot from. Pending applications are rejected.
func (s *Service) Delete(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		kill, err := s.kills.GetByID(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range kill.DroppedItems {
			switch item.Status {
			case models.ItemAssigned, models.ItemAuctioned, models.ItemSold:
				return apperrors.Conflict("item %q is %s", item.Name, item.Status)
			}
		}

		if s.applications != nil {
			approved, err := s.applications.CountApprovedForKill(ctx, id)
			if err != nil {
				return err
			}
			if approved > 0 {
				return apperrors.Conflict("kill has %d approved applications", approved)
			}
			if _, err := s.applications.RejectPendingForKill(ctx, id, actor.UserID, s.now()); err != nil {
				return err
			}
		}

		if err := s.attendees.DeleteForKill(ctx, id); err != nil {
			return err
		}
		return s.kills.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("Boss kill deleted", "kill_id", id.Hex(), "by", actor.UserID)
	return nil
}

// ExpireItems moves every pending, unowned item past its deadline to expired. Items are
// first claimed as processing, then flipped, so an interrupted run is finished by the
// next one. It returns the number of items expired.
func (s *Service) ExpireItems(ctx context.Context, now time.Time) (int, error) {
	claimed, err := s.kills.ClaimExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	kills, err := s.kills.FindProcessing(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, kill := range kills {
		var closing []string
		for _, item := range kill.DroppedItems {
			if item.Status == models.ItemProcessing {
				closing = append(closing, item.ID)
			}
		}
		flipped := len(closing)

		// applications close before the flip so a failed run is retried from FindProcessing
		if err := s.closeApplications(ctx, kill.ID, closing, now); err != nil {
			slog.Error("Failed to close applications of expiring items", "kill_id", kill.ID.Hex(), "error", err)
			continue
		}

		updated, err := s.kills.FlipProcessing(ctx, kill.ID, now)
		if err != nil {
			slog.Error("Failed to expire claimed items", "kill_id", kill.ID.Hex(), "error", err)
			continue
		}
		expired += flipped
		s.notifyExpired(ctx, updated, flipped)
	}

	if expired > 0 {
		metrics.ItemsExpired.Add(float64(expired))
		slog.Info("Expired dropped items", "items", expired, "kills", len(kills), "claimed_kills", claimed)
	}
	return expired, nil
}

func (s *Service) closeApplications(ctx context.Context, killID primitive.ObjectID, itemIDs []string, now time.Time) error {
	if s.applications == nil {
		return nil
	}
	for _, itemID := range itemIDs {
		if _, err := s.applications.RejectPendingForItem(ctx, killID, itemID, expirySweeper, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notifyExpired(ctx context.Context, kill *models.BossKill, count int) {
	admins, err := s.users.IDsByRole(ctx, authModels.RoleAdmin, authModels.RoleModerator)
	if err != nil {
		slog.Error("Failed to resolve admins for expiry notice", "kill_id", kill.ID.Hex(), "error", err)
		return
	}
	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: admins,
		Type:       notifModels.TypeItemsExpired,
		Title:      fmt.Sprintf("%s loot expired", kill.BossName),
		Body:       fmt.Sprintf("%d unclaimed items can now be auctioned", count),
		Metadata:   map[string]string{"kill_id": kill.ID.Hex()},
		DedupeKey:  "items_expired:" + kill.ID.Hex(),
	})
	if err != nil {
		slog.Error("Failed to send expiry notice", "kill_id", kill.ID.Hex(), "error", err)
	}
}

// Auctionable lists expired items without an owner or a live auction
func (s *Service) Auctionable(ctx context.Context) ([]models.AuctionableItem, error) {
	return s.kills.ListAuctionable(ctx)
}

// RequestAttendance asks to add the caller's character to a kill
func (s *Service) RequestAttendance(ctx context.Context, user *authModels.AuthenticatedUser, killID primitive.ObjectID, reason string) (*models.AttendeeRequest, error) {
	userID, err := primitive.ObjectIDFromHex(user.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid session")
	}

	kill, err := s.kills.GetByID(ctx, killID)
	if err != nil {
		return nil, err
	}
	if kill.HasAttendee(user.CharacterName) {
		return nil, apperrors.Conflict("%s is already an attendee", user.CharacterName)
	}

	now := s.now()
	req := &models.AttendeeRequest{
		KillID:        killID,
		UserID:        userID,
		CharacterName: user.CharacterName,
		Reason:        strings.TrimSpace(reason),
		Status:        models.AttendeePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.attendees.Create(ctx, req); err != nil {
		return nil, err
	}

	admins, err := s.users.IDsByRole(ctx, authModels.RoleAdmin, authModels.RoleModerator)
	if err == nil {
		err = s.notifier.Notify(ctx, notifModels.Message{
			Recipients: admins,
			Type:       notifModels.TypeAttendeeRequest,
			Title:      "Attendance request",
			Body:       fmt.Sprintf("%s asks to be added to the %s kill", user.CharacterName, kill.BossName),
			Metadata:   map[string]string{"kill_id": killID.Hex(), "request_id": req.ID.Hex()},
		})
	}
	if err != nil {
		slog.Error("Failed to notify about attendance request", "request_id", req.ID.Hex(), "error", err)
	}
	return req, nil
}

// ResolveAttendance approves or rejects a pending request. Approval adds the character
// to the kill's attendees in the same transaction.
func (s *Service) ResolveAttendance(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID, approve bool) (*models.AttendeeRequest, error) {
	status := models.AttendeeRejected
	if approve {
		status = models.AttendeeApproved
	}

	var resolved *models.AttendeeRequest
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		req, err := s.attendees.Resolve(ctx, id, status, actor.UserID, now)
		if err != nil {
			return err
		}
		if approve {
			if err := s.kills.AddAttendee(ctx, req.KillID, req.CharacterName, now); err != nil {
				return err
			}
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: []primitive.ObjectID{resolved.UserID},
		Type:       notifModels.TypeAttendeeResolved,
		Title:      "Attendance request " + string(resolved.Status),
		Metadata:   map[string]string{"kill_id": resolved.KillID.Hex()},
	})
	if err != nil {
		slog.Error("Failed to notify attendance resolution", "request_id", id.Hex(), "error", err)
	}
	return resolved, nil
}

// ListAttendance lists attendance requests
func (s *Service) ListAttendance(ctx context.Context, status models.AttendeeStatus, killID *primitive.ObjectID) ([]models.AttendeeRequest, error) {
	switch status {
	case "", models.AttendeePending, models.AttendeeApproved, models.AttendeeRejected:
	default:
		return nil, apperrors.Validation("unknown attendance status %q", status)
	}
	return s.attendees.List(ctx, status, killID)
}

// normalizeNames trims names and drops blanks and case-insensitive duplicates
func normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
