package http

import (
	"github.com/nats-io/nats.go"

	"github.com/parksafe/parksafe/internal/adapters/postgres"
	"github.com/parksafe/parksafe/internal/adapters/valkey"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/auth"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Markers   *usecases.MarkerService
	Accounts  *usecases.AccountService
	Feedback  *usecases.FeedbackService
	Auth      *auth.Manager
	Scheduler ports.DeletionScheduler
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
