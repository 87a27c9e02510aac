package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"wastecollect-backend/internal/database"
	"wastecollect-backend/internal/models"
	"wastecollect-backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // admin, collector, resident or user
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"` // ios or android
}

// CreateUser handles POST /api/users (admin only)
func CreateUser(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 REQUEST: POST /api/users - Create new user")

		var req CreateUserRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		req.Name = strings.TrimSpace(req.Name)
		if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password, name, and role are required")
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		if !models.IsValidRole(req.Role) {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'admin', 'collector', 'resident', or 'user'")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		now := time.Now().Unix()
		user := &models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Password:  string(hashedPassword),
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := users.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, database.ErrEmailTaken) {
				utils.RespondError(w, http.StatusConflict, "User with this email already exists")
				return
			}
			log.Printf("❌ Database error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Printf("✅ User created: %s (%s)", user.Email, user.Role)
		utils.RespondSuccess(w, http.StatusCreated, "User created successfully", user.ToUserResponse())
	}
}

// RegisterFCMToken handles POST /api/users/fcm-token for the calling user
func RegisterFCMToken(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req RegisterFCMTokenRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			utils.RespondError(w, http.StatusBadRequest, "Device type must be 'ios' or 'android'")
			return
		}

		if err := users.SaveFCMToken(r.Context(), actor.ID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Failed to save FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save token")
			return
		}

		log.Printf("✅ FCM token registered for user %s (%s)", actor.ID, req.DeviceType)
		utils.RespondSuccess(w, http.StatusOK, "Token registered", nil)
	}
}
