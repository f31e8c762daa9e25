package handlers

import (
	"errors"
	"net/http"
	"time"

	"botoapp/user/internal/metrics"
	"botoapp/user/internal/middleware"
	"botoapp/user/internal/models"
	"botoapp/user/internal/notify"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/utils"
)

// InitiatePasswordResetHandler texts a reset OTP to a registered, active phone.
func (h *AuthHandler) InitiatePasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*PhoneRequest](r)
	ctx := r.Context()

	user, err := h.Users.GetUserByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		h.internalError(w, "failed to look up phone", err)
		return
	}
	if user == nil || !user.IsActive {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"phone": "Phone number not registered."})
		return
	}

	otp, err := generateOTP()
	if err != nil {
		h.internalError(w, "failed to generate otp", err)
		return
	}
	token := &models.Token{UserID: user.ID, Token: otp, Purpose: models.TokenPurposePasswordReset, CreatedAt: h.now()}
	if err := h.Tokens.Upsert(ctx, token); err != nil {
		h.internalError(w, "failed to store reset token", err)
		return
	}
	metrics.OTPsIssued.WithLabelValues(string(models.TokenPurposePasswordReset)).Inc()

	h.enqueue(ctx, notify.ChannelSMS, user.Phone, notify.TemplatePasswordReset, notify.TemplateData{
		OTP:     otp,
		Minutes: int(h.Settings.TokenLifespan / time.Minute),
	})
	utils.JSONMessage(w, http.StatusOK, "Temporary password sent to your mobile!")
}

func invalidResetOTP(w http.ResponseWriter) {
	utils.JSON(w, http.StatusBadRequest, map[string]any{"success": false, "errors": "Invalid password reset otp"})
}

// CreatePasswordHandler sets a new password from a reset OTP.
func (h *AuthHandler) CreatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*CreatePasswordRequest](r)
	ctx := r.Context()

	token, err := h.Tokens.GetByTokenAndPurpose(ctx, string(req.OTP), models.TokenPurposePasswordReset)
	if err != nil && !errors.Is(err, repositories.ErrTokenNotFound) {
		h.internalError(w, "failed to look up reset token", err)
		return
	}
	if token == nil || !token.IsValid(h.now(), h.Settings.TokenLifespan) {
		invalidResetOTP(w)
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		h.internalError(w, "failed to hash password", err)
		return
	}
	switch err := h.Tokens.RedeemPasswordReset(ctx, token, hash); {
	case errors.Is(err, repositories.ErrTokenNotFound), errors.Is(err, repositories.ErrUserNotFound):
		invalidResetOTP(w)
		return
	case err != nil:
		h.internalError(w, "failed to reset password", err)
		return
	}

	if user, err := h.Users.GetUserByID(ctx, token.UserID); err == nil {
		h.notifyPasswordChanged(ctx, user)
	}
	utils.JSONMessage(w, http.StatusOK, "Password successfully reset")
}

// ChangePasswordHandler updates the authenticated user's password.
func (h *AuthHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*ChangePasswordRequest](r)
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.JSONDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	if req.OldPassword != nil && !utils.CheckPassword(user.PasswordHash, *req.OldPassword) {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"old_password": "Old password is incorrect."})
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		h.internalError(w, "failed to hash password", err)
		return
	}
	user.PasswordHash = hash
	if err := h.Users.SaveFields(r.Context(), user, "password_hash"); err != nil {
		h.internalError(w, "failed to update password", err)
		return
	}

	h.notifyPasswordChanged(r.Context(), user)
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Your password has been updated."})
}
