package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	h "gatherhub/internal/delivery/http/helpers"
	"gatherhub/internal/domain"
)

const guestTokenExpiry = 24 * time.Hour

// AuthController mints synthetic guest sessions. Full account registration
// and login live behind an external identity provider and are not part of
// this service.
type AuthController struct {
	issuer domain.TokenIssuer
	logger *slog.Logger
}

// NewAuthController creates an AuthController.
func NewAuthController(issuer domain.TokenIssuer, logger *slog.Logger) *AuthController {
	return &AuthController{issuer: issuer, logger: logger}
}

type guestLoginResponse struct {
	Token string          `json:"token"`
	User  *domain.Session `json:"user"`
}

// GuestLogin issues a 24h token for a fresh guest identity. Guest ids are
// synthetic and never persisted; the role claim keeps them out of mutations.
func (c *AuthController) GuestLogin(w http.ResponseWriter, r *http.Request) {
	sess := &domain.Session{
		UserID: "guest-" + uuid.NewString(),
		Name:   "Guest User",
		Role:   domain.RoleGuest,
	}
	token, err := c.issuer.Issue(sess, guestTokenExpiry)
	if err != nil {
		c.logger.Error("guest token issue failed", "error", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "failed to create guest session")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, guestLoginResponse{Token: token, User: sess})
}
