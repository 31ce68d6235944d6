// Package temporal starts account deletion workflows on a Temporal cluster.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/parksafe/parksafe/internal/workflows"
)

// Scheduler hands account deletions to the workflow engine. It implements
// ports.DeletionScheduler.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// New dials the Temporal frontend.
func New(hostPort, namespace, taskQueue string) (*Scheduler, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return &Scheduler{client: c, taskQueue: taskQueue}, nil
}

// ScheduleAccountDeletion starts the deletion workflow for a user. The
// workflow ID is derived from the user ID, so a second request while a
// deletion is already running attaches to the running workflow instead of
// starting another one.
func (s *Scheduler) ScheduleAccountDeletion(ctx context.Context, userID string) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        "account-deletion-" + userID,
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.AccountDeletionWorkflow, workflows.DeletionInput{
		UserID:      userID,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("start deletion workflow: %w", err)
	}
	return run.GetID(), nil
}

// Close tears down the Temporal connection.
func (s *Scheduler) Close() {
	s.client.Close()
}
