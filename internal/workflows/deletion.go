package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DeletionInput is the input for the account deletion workflow.
type DeletionInput struct {
	UserID      string
	RequestedAt time.Time
}

// AccountDeletionWorkflow deactivates the account, purges the user's
// feedback and avatar, then erases the profile row. If a later step fails,
// the profile is reactivated (saga compensation) so the account stays usable.
func AccountDeletionWorkflow(ctx workflow.Context, input DeletionInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting account deletion workflow", "userID", input.UserID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Deactivate the profile so logins stop immediately
	err := workflow.ExecuteActivity(ctx, "DeactivateProfile", input.UserID).Get(ctx, nil)
	if err != nil {
		return err
	}

	// Step 2: Purge all feedback the user submitted
	var purged int64
	err = workflow.ExecuteActivity(ctx, "PurgeFeedback", input.UserID).Get(ctx, &purged)
	if err != nil {
		logger.Warn("feedback purge failed, reactivating profile", "error", err)
		// Compensate: reactivate the account
		_ = workflow.ExecuteActivity(ctx, "ReactivateProfile", input.UserID).Get(ctx, nil)
		return err
	}

	// Step 3: Remove the stored avatar (best effort)
	_ = workflow.ExecuteActivity(ctx, "DeleteAvatar", input.UserID).Get(ctx, nil)

	// Step 4: Erase the profile row and announce the deletion
	err = workflow.ExecuteActivity(ctx, "EraseProfile", input.UserID).Get(ctx, nil)
	if err != nil {
		logger.Warn("profile erase failed, reactivating profile", "error", err)
		_ = workflow.ExecuteActivity(ctx, "ReactivateProfile", input.UserID).Get(ctx, nil)
		return err
	}

	// Step 5: Farewell notification, never blocks the deletion
	_ = workflow.ExecuteActivity(ctx, "SendFarewell", input.UserID).Get(ctx, nil)

	logger.Info("Account deleted", "userID", input.UserID, "feedbackPurged", purged)
	return nil
}
