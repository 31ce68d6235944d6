package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/auth"
)

// AuthRequired validates the bearer token and stores the user id in
// c.Locals("userID") for downstream handlers.
func AuthRequired(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return errUnauthorized(c, "missing bearer token")
		}
		claims, err := deps.Auth.Parse(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return errUnauthorized(c, "token expired")
			}
			return errUnauthorized(c, "invalid token")
		}
		c.Locals("userID", claims.UserID)
		return c.Next()
	}
}

type registerBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler creates a new account and returns it with a token.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body registerBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		profile, token, err := deps.Accounts.Register(c.Context(), body.Email, body.Username, body.Password)
		if err != nil {
			if errors.Is(err, ports.ErrConflict) {
				return errConflict(c, "email or username already registered")
			}
			return errBadRequest(c, err.Error())
		}

		return c.Status(201).JSON(fiber.Map{
			"profile": profile,
			"token":   token,
		})
	}
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and returns a fresh token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body loginBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		profile, token, err := deps.Accounts.Login(c.Context(), body.Email, body.Password)
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidCredentials) {
				return errUnauthorized(c, "invalid email or password")
			}
			if errors.Is(err, usecases.ErrAccountDisabled) {
				return errForbidden(c, "account is disabled")
			}
			return errInternal(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"profile": profile,
			"token":   token,
		})
	}
}

// MeHandler returns the authenticated user's profile.
func MeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)
		profile, err := deps.Accounts.Profile(c.Context(), userID)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, "profile not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(profile)
	}
}

// UpdateProfileHandler applies a partial update to the user's profile.
func UpdateProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		var patch domain.ProfilePatch
		if err := c.BodyParser(&patch); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		profile, err := deps.Accounts.UpdateProfile(c.Context(), userID, patch)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, "profile not found")
			}
			return errBadRequest(c, err.Error())
		}
		return c.JSON(profile)
	}
}

// UsernameAvailableHandler reports whether a username is free to take.
// GET /v1/usernames/available?username=anna_kut
func UsernameAvailableHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := c.Query("username")
		if username == "" {
			return errBadRequest(c, "username query parameter is required")
		}

		available, err := deps.Accounts.UsernameAvailable(c.Context(), username)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"username":  username,
			"available": available,
		})
	}
}

// DeleteAccountHandler removes the authenticated user's account. When a
// workflow scheduler is wired the deletion runs as a durable workflow;
// otherwise it runs synchronously.
func DeleteAccountHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		if deps.Scheduler != nil {
			workflowID, err := deps.Scheduler.ScheduleAccountDeletion(c.Context(), userID)
			if err != nil {
				LoggerFromCtx(c.UserContext()).Warn("deletion workflow start failed",
					"user_id", userID, "error", err)
				return errInternal(c, err.Error())
			}
			return c.Status(202).JSON(fiber.Map{
				"status":      "scheduled",
				"workflow_id": workflowID,
			})
		}

		if err := deps.Accounts.DeleteAccount(c.Context(), userID); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, "profile not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	}
}

type feedbackBody struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Rating   int    `json:"rating"`
}

// SubmitFeedbackHandler stores a feedback entry for the authenticated user.
func SubmitFeedbackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		var body feedbackBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		fb, err := deps.Feedback.Submit(c.Context(), userID, body.Category, body.Message, body.Rating)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(fb)
	}
}

// ListMyFeedbackHandler returns the authenticated user's feedback, newest first.
func ListMyFeedbackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		entries, err := deps.Feedback.ListByUser(c.Context(), userID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"feedback": entries,
			"count":    len(entries),
		})
	}
}
