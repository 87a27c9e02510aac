package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"wastecollect-backend/internal/middleware"
	"wastecollect-backend/internal/models"
	"wastecollect-backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// UserStore is the user persistence the handlers need
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveFCMToken(ctx context.Context, userID, token, deviceType string) error
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string               `json:"token"`
	User  *models.UserResponse `json:"user"`
}

// Login handles POST /api/auth/login
func Login(users UserStore, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		log.Printf("🔐 Login attempt for: %s", email)

		user, err := users.GetUserByEmail(r.Context(), email)
		if err != nil {
			log.Printf("❌ Failed to load user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if user == nil {
			log.Printf("❌ User not found: %s", email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := middleware.IssueToken(jwtSecret, middleware.UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, time.Now())
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		utils.RespondSuccess(w, http.StatusOK, "Login successful", LoginResponse{
			Token: token,
			User:  &userResponse,
		})
	}
}
