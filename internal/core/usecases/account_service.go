package usecases

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

var usernameRx = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

// AccountService handles registration, login, profiles and account
// deletion.
type AccountService struct {
	profiles  ports.ProfileRepository
	feedback  ports.FeedbackRepository
	tokens    *auth.Manager
	publisher ports.EventPublisher
}

// NewAccountService creates a new AccountService. The publisher may be
// nil; deletion events are then not broadcast.
func NewAccountService(
	profiles ports.ProfileRepository,
	feedback ports.FeedbackRepository,
	tokens *auth.Manager,
	publisher ports.EventPublisher,
) *AccountService {
	return &AccountService{profiles: profiles, feedback: feedback, tokens: tokens, publisher: publisher}
}

// Register creates a profile and returns it with a signed access token.
// Duplicate email or username surfaces as ports.ErrConflict.
func (s *AccountService) Register(ctx context.Context, email, username, password string) (*domain.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))

	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	if len(password) < 8 {
		return nil, "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	profile := &domain.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Sign(profile.ID)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// Login verifies credentials and returns the profile with a fresh
// access token. Unknown emails and wrong passwords both come back as
// ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(password, profile.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !profile.Active {
		return nil, "", ErrAccountDisabled
	}

	token, err := s.tokens.Sign(profile.ID)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// Profile returns the profile for a user id.
func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}

// UpdateProfile applies a patch to the user's profile and returns the
// stored result.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if patch.DisplayName != nil && len(*patch.DisplayName) > 80 {
		return nil, fmt.Errorf("display name too long (max 80 characters)")
	}
	if patch.AvatarURL != nil && *patch.AvatarURL != "" {
		u := *patch.AvatarURL
		if len(u) > 512 {
			return nil, fmt.Errorf("avatar url too long (max 512 characters)")
		}
		if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
			return nil, fmt.Errorf("avatar url must be http(s)")
		}
	}
	if patch.HomeLocation != nil && !patch.HomeLocation.Valid() {
		return nil, fmt.Errorf("home location out of range")
	}
	return s.profiles.Update(ctx, userID, patch)
}

// UsernameAvailable reports whether the username is free to take.
// Syntactically invalid names are rejected with an error.
func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if err := validateUsername(username); err != nil {
		return false, err
	}
	exists, err := s.profiles.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// DeactivateAccount flags the profile inactive. First step of the
// deletion workflow, reversible by ReactivateAccount.
func (s *AccountService) DeactivateAccount(ctx context.Context, userID string) error {
	return s.profiles.SetActive(ctx, userID, false)
}

// ReactivateAccount clears the inactive flag (deletion compensation).
func (s *AccountService) ReactivateAccount(ctx context.Context, userID string) error {
	return s.profiles.SetActive(ctx, userID, true)
}

// PurgeFeedback removes all feedback a user has submitted.
func (s *AccountService) PurgeFeedback(ctx context.Context, userID string) (int64, error) {
	return s.feedback.DeleteByUser(ctx, userID)
}

// EraseProfile removes the profile row and announces the deletion.
func (s *AccountService) EraseProfile(ctx context.Context, userID string) error {
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return err
	}
	if s.publisher != nil {
		_ = s.publisher.PublishAccountDeleted(ctx, &domain.AccountDeleted{UserID: userID, At: time.Now()})
	}
	return nil
}

// DeleteAccount removes the account and everything attached to it,
// synchronously. The workflow engine runs the same steps with
// compensation when it is configured.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.profiles.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.feedback.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("purge feedback: %w", err)
	}
	if err := s.EraseProfile(ctx, userID); err != nil {
		return fmt.Errorf("erase profile: %w", err)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") || len(email) > 254 {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validateUsername(username string) error {
	if !usernameRx.MatchString(username) {
		return fmt.Errorf("username must be 3-24 characters of a-z, 0-9 or _")
	}
	return nil
}
