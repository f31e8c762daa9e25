package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"botoapp/user/internal/metrics"
	"botoapp/user/internal/middleware"
	"botoapp/user/internal/models"
	"botoapp/user/internal/notify"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/utils"

	"go.uber.org/zap"
)

var (
	generateOTP  = utils.GenerateOTP
	hashPassword = utils.HashPassword
)

// AuthSettings holds the account policy knobs read from configuration.
type AuthSettings struct {
	AppName         string
	OTPLifespan     time.Duration
	TokenLifespan   time.Duration
	MaxLoginAttempt int
}

// AuthHandler manages registration, token and password endpoints.
type AuthHandler struct {
	Users     UserRepository
	Pending   PendingUserRepository
	Tokens    TokenRepository
	Issuer    *utils.TokenIssuer
	Notifier  Notifier
	Templates *notify.Templates
	Settings  AuthSettings
	Logger    *zap.Logger
	Now       func() time.Time
}

func (h *AuthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *AuthHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *AuthHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger().Error(msg, zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, msg)
}

// enqueue renders tpl and hands it to the notifier. Failures are logged only.
func (h *AuthHandler) enqueue(ctx context.Context, channel notify.Channel, to, tpl string, data notify.TemplateData) {
	data.AppName = h.Settings.AppName
	subject, body, err := h.Templates.Render(tpl, data)
	if err != nil {
		h.logger().Error("failed to render notification", zap.String("template", tpl), zap.Error(err))
		return
	}
	msg := notify.Message{Channel: channel, To: to, Subject: subject, Body: body}
	if err := h.Notifier.Enqueue(ctx, msg); err != nil {
		h.logger().Error("failed to enqueue notification", zap.String("template", tpl), zap.Error(err))
	}
}

func (h *AuthHandler) notifyPasswordChanged(ctx context.Context, user *models.User) {
	if user.EmailAddress() == "" {
		return
	}
	h.enqueue(ctx, notify.ChannelEmail, user.EmailAddress(), notify.TemplatePasswordChanged, notify.TemplateData{Name: user.Firstname})
}

// RegisterHandler stages a registration and texts the verification OTP.
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*RegisterRequest](r)
	ctx := r.Context()

	existing, err := h.Users.GetUserByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		h.internalError(w, "failed to look up phone", err)
		return
	}
	if existing != nil {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"phone": "Phone number already exists"})
		return
	}

	otp, err := generateOTP()
	if err != nil {
		h.internalError(w, "failed to generate otp", err)
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		h.internalError(w, "failed to hash password", err)
		return
	}

	pending := &models.PendingUser{Phone: req.Phone, VerificationCode: otp, PasswordHash: hash, CreatedAt: h.now()}
	if err := h.Pending.Upsert(ctx, pending); err != nil {
		h.internalError(w, "failed to stage registration", err)
		return
	}
	metrics.OTPsIssued.WithLabelValues(string(models.TokenPurposeAccountVerification)).Inc()

	h.enqueue(ctx, notify.ChannelSMS, req.Phone, notify.TemplateAccountVerification, notify.TemplateData{
		OTP:     otp,
		Minutes: int(h.Settings.OTPLifespan / time.Minute),
	})
	utils.JSONMessage(w, http.StatusOK, "OTP sent for verification!")
}

// VerifyAccountHandler promotes a pending registration once its OTP checks out.
func (h *AuthHandler) VerifyAccountHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*VerifyAccountRequest](r)
	ctx := r.Context()

	pending, err := h.Pending.GetByPhoneAndCode(ctx, req.Phone, string(req.OTP))
	if err != nil && !errors.Is(err, repositories.ErrPendingUserNotFound) {
		h.internalError(w, "failed to look up registration", err)
		return
	}
	if pending == nil || !pending.IsValid(h.now(), h.Settings.OTPLifespan) {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"otp": "Verification failed. Invalid OTP or Number"})
		return
	}

	user := &models.User{
		Phone:        pending.Phone,
		PasswordHash: pending.PasswordHash,
		IsActive:     true,
		Verified:     true,
		Roles:        models.RoleList{models.RoleCustomer},
	}
	if err := h.Pending.Promote(ctx, pending, user); err != nil {
		h.internalError(w, "failed to create account", err)
		return
	}
	h.logger().Info("account verified", zap.String("user_id", user.ID))
	utils.JSONMessage(w, http.StatusOK, "Acount Verification Successful")
}

func noActiveAccount(w http.ResponseWriter) {
	utils.JSONDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
}

// LoginHandler exchanges credentials for a refresh/access pair, applying the
// failed-attempt lockout.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*LoginRequest](r)
	ctx := r.Context()

	var (
		user *models.User
		err  error
	)
	if req.Phone != "" {
		user, err = h.Users.GetUserByPhone(ctx, req.Phone)
	} else {
		user, err = h.Users.GetUserByEmail(ctx, req.Email)
	}
	if errors.Is(err, repositories.ErrUserNotFound) {
		noActiveAccount(w)
		return
	}
	if err != nil {
		h.internalError(w, "failed to look up user", err)
		return
	}

	if user.IsLocked {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"phone": "Account locked - Contact Admin"})
		return
	}
	if !user.IsActive {
		noActiveAccount(w)
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		metrics.LoginFailures.Inc()
		attempts, locked, err := h.Users.RecordLoginFailure(ctx, user.ID, h.Settings.MaxLoginAttempt)
		if err != nil {
			h.internalError(w, "failed to record login attempt", err)
			return
		}
		if locked {
			metrics.AccountLockouts.Inc()
			h.logger().Warn("account locked", zap.String("user_id", user.ID), zap.Int("attempts", attempts))
		}
		noActiveAccount(w)
		return
	}

	if user.FailedLoginAttempts != 0 {
		user.FailedLoginAttempts = 0
		if err := h.Users.SaveFields(ctx, user, "failed_login_attempts"); err != nil {
			h.internalError(w, "failed to reset login attempts", err)
			return
		}
	}

	if !user.Verified {
		utils.JSONDetail(w, http.StatusUnauthorized, "Account not verified.")
		return
	}

	pair, err := h.Issuer.IssuePair(user)
	if err != nil {
		h.internalError(w, "failed to sign token", err)
		return
	}
	now := h.now()
	user.LastLogin = &now
	if err := h.Users.SaveFields(ctx, user, "last_login"); err != nil {
		h.internalError(w, "failed to record login", err)
		return
	}
	utils.JSON(w, http.StatusOK, pair)
}

func tokenNotValid(w http.ResponseWriter) {
	utils.JSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Token is invalid or expired",
		"code":   "token_not_valid",
	})
}

// RefreshHandler mints a new access token from a refresh token.
func (h *AuthHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*RefreshRequest](r)

	claims, err := h.Issuer.Parse(req.Refresh, utils.TokenTypeRefresh)
	if err != nil {
		tokenNotValid(w)
		return
	}
	user, err := h.Users.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		tokenNotValid(w)
		return
	}
	if err != nil {
		h.internalError(w, "failed to look up user", err)
		return
	}
	if !user.IsActive || user.IsLocked {
		noActiveAccount(w)
		return
	}

	access, err := h.Issuer.IssueAccess(user)
	if err != nil {
		h.internalError(w, "failed to sign token", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"access": access})
}

// VerifyTokenHandler reports whether a token of either type is still valid.
func (h *AuthHandler) VerifyTokenHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*VerifyTokenRequest](r)
	if _, err := h.Issuer.Parse(req.Token, ""); err != nil {
		tokenNotValid(w)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{})
}

// MeHandler returns the authenticated user.
func (h *AuthHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}
