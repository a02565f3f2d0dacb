package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/logger"
	"github.com/northcart/ecommerce-api/models"
)

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=40"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/signup
func SignupHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid signup payload: "+err.Error()))
			return
		}

		email := models.NormalizeEmail(req.Email)

		var count int64
		if err := db.Model(&models.User{}).
			Where("email = ? OR username = ?", email, req.Username).
			Count(&count).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		if count > 0 {
			httperr.Abort(c, httperr.Conflict("username or email already registered"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		user := models.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        email,
			PasswordHash: string(hash),
			Roles:        []string{models.RoleUser},
			FullName:     req.FullName,
			Address: models.Address{
				Street:  req.Street,
				City:    req.City,
				State:   req.State,
				Country: req.Country,
			},
		}

		if err := db.Create(&user).Error; err != nil {
			// Unique index races surface here when two signups collide.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				httperr.Abort(c, httperr.Conflict("username or email already registered"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		log := logger.Get()
		log.Info().Str("user_id", user.ID).Msg("user registered")
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// POST /auth/login
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid login payload: "+err.Error()))
			return
		}

		var user models.User
		err := db.Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Same response as a bad password: do not reveal which failed.
				httperr.Abort(c, &httperr.Error{Status: http.StatusUnauthorized, Message: "invalid email or password"})
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			httperr.Abort(c, &httperr.Error{Status: http.StatusUnauthorized, Message: "invalid email or password"})
			return
		}

		token, err := IssueSessionToken(jwtSecret, &user)
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordResetConfirm struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetTokenSink delivers a password-reset token to its owner, normally via
// the mail relay. The token is a credential and must never reach the logs.
type ResetTokenSink func(email, token string)

// POST /auth/password-reset
//
// Always answers 202 so the endpoint cannot be used to probe for accounts.
// Delivery of the reset token is the sink's job; a nil sink discards it.
func PasswordResetRequestHandler(db *gorm.DB, jwtSecret string, deliver ResetTokenSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req passwordResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid payload: "+err.Error()))
			return
		}

		var user models.User
		err := db.Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
		if err == nil {
			token, terr := IssueScopedToken(jwtSecret, user.ID, PurposePasswordReset)
			if terr == nil {
				if deliver != nil {
					deliver(user.Email, token)
				}
				log := logger.Get()
				log.Debug().Str("user_id", user.ID).Msg("password reset token issued")
			}
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "if the account exists, a reset link has been sent"})
	}
}

// POST /auth/password-reset/confirm
func PasswordResetConfirmHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req passwordResetConfirm
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid payload: "+err.Error()))
			return
		}

		claims, err := ParseToken(jwtSecret, req.Token)
		if err != nil {
			httperr.Abort(c, httperr.InvalidToken())
			return
		}
		purpose, _ := claims["purpose"].(string)
		userID, _ := claims["user_id"].(string)
		if purpose != PurposePasswordReset || userID == "" {
			httperr.Abort(c, httperr.InvalidToken())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		res := db.Model(&models.User{}).Where("id = ?", userID).
			Update("password_hash", string(hash))
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.NotFound("user"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}
