package services

import (
	"context"
	"fmt"
	"time"

	"loot-tracker/internal/scheduler/models"
)

// Job names
const (
	JobExpireItems          = "expire-items"
	JobSettleAuctions       = "settle-auctions"
	JobDisableInactiveUsers = "disable-inactive-users"
	JobCloseVotes           = "close-votes"
)

// ItemExpirer expires dropped items whose application deadline passed
type ItemExpirer interface {
	ExpireItems(ctx context.Context, now time.Time) (int, error)
}

// AuctionSettler settles auctions past their end time
type AuctionSettler interface {
	SettleDue(ctx context.Context, now time.Time) (int, error)
}

// InactiveUserDisabler disables members who have not logged in for too long
type InactiveUserDisabler interface {
	DisableInactive(ctx context.Context, now time.Time) (int, error)
}

// VoteCloser closes votes past their deadline
type VoteCloser interface {
	CloseDue(ctx context.Context, now time.Time) (int, error)
}

// Sweepers are the services the system jobs drive. Nil sweepers get no job.
type Sweepers struct {
	Items    ItemExpirer
	Auctions AuctionSettler
	Users    InactiveUserDisabler
	Votes    VoteCloser
}

// SystemJobs returns the fixed job table
func SystemJobs(s Sweepers) []models.Job {
	var jobs []models.Job
	if s.Items != nil {
		jobs = append(jobs, models.Job{
			Name:        JobExpireItems,
			Description: "Expires dropped items nobody was assigned before the application deadline",
			Schedule:    "0 0 * * * *",
			Timeout:     10 * time.Minute,
			Run:         counted(s.Items.ExpireItems, "items expired"),
		})
	}
	if s.Auctions != nil {
		jobs = append(jobs, models.Job{
			Name:        JobSettleAuctions,
			Description: "Settles auctions whose end time passed",
			Schedule:    "0 * * * * *",
			Timeout:     55 * time.Second,
			Run:         counted(s.Auctions.SettleDue, "auctions settled"),
		})
	}
	if s.Users != nil {
		jobs = append(jobs, models.Job{
			Name:        JobDisableInactiveUsers,
			Description: "Disables members inactive for longer than the guild allows",
			Schedule:    "0 30 3 * * *",
			Timeout:     10 * time.Minute,
			Run:         counted(s.Users.DisableInactive, "users disabled"),
		})
	}
	if s.Votes != nil {
		jobs = append(jobs, models.Job{
			Name:        JobCloseVotes,
			Description: "Closes votes whose deadline passed and tallies the result",
			Schedule:    "0 */20 * * * *",
			Timeout:     5 * time.Minute,
			Run:         counted(s.Votes.CloseDue, "votes closed"),
		})
	}
	return jobs
}

func counted(sweep func(ctx context.Context, now time.Time) (int, error), what string) models.RunFunc {
	return func(ctx context.Context, now time.Time) (string, error) {
		n, err := sweep(ctx, now)
		if err != nil {
			return fmt.Sprintf("%d %s before failing", n, what), err
		}
		return fmt.Sprintf("%d %s", n, what), nil
	}
}
