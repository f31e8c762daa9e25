package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"botoapp/user/internal/models"
	"botoapp/user/internal/utils"
)

const (
	msgRequired     = "This field is required."
	msgInvalidPhone = "Incorrect phone number."
)

// cleanPhoneField normalizes *phone in place, recording a field error on failure.
func cleanPhoneField(errs models.FieldErrors, phone *string) {
	if strings.TrimSpace(*phone) == "" {
		errs["phone"] = msgRequired
		return
	}
	cleaned, err := utils.CleanPhone(*phone)
	if errors.Is(err, utils.ErrInvalidPhone) {
		errs["phone"] = msgInvalidPhone
		return
	}
	*phone = cleaned
}

func fieldErrorsOrNil(errs models.FieldErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// OTPCode accepts the code as a JSON string or number. Numbers are
// zero-padded to six digits, so 12345 matches "012345".
type OTPCode string

const otpDigits = 6

func (c *OTPCode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = OTPCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	digits := n.String()
	if len(digits) < otpDigits && strings.Trim(digits, "0123456789") == "" {
		digits = strings.Repeat("0", otpDigits-len(digits)) + digits
	}
	*c = OTPCode(digits)
	return nil
}

type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	errs := models.FieldErrors{}
	cleanPhoneField(errs, &r.Phone)
	if r.Password == "" {
		errs["password"] = msgRequired
	} else if msg := utils.PasswordLengthMessage(r.Password, 6, 0); msg != "" {
		errs["password"] = msg
	}
	return fieldErrorsOrNil(errs)
}

type VerifyAccountRequest struct {
	OTP   OTPCode `json:"otp"`
	Phone string  `json:"phone"`
}

func (r *VerifyAccountRequest) Validate() error {
	errs := models.FieldErrors{}
	if r.OTP == "" {
		errs["otp"] = msgRequired
	}
	cleanPhoneField(errs, &r.Phone)
	return fieldErrorsOrNil(errs)
}

// LoginRequest accepts either phone or email as the identifier.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	errs := models.FieldErrors{}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	switch {
	case strings.TrimSpace(r.Phone) != "":
		cleanPhoneField(errs, &r.Phone)
	case r.Email == "":
		errs["phone"] = msgRequired
	}
	if r.Password == "" {
		errs["password"] = msgRequired
	}
	return fieldErrorsOrNil(errs)
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (r *RefreshRequest) Validate() error {
	if strings.TrimSpace(r.Refresh) == "" {
		return models.FieldErrors{"refresh": msgRequired}
	}
	return nil
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

func (r *VerifyTokenRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return models.FieldErrors{"token": msgRequired}
	}
	return nil
}

type PhoneRequest struct {
	Phone string `json:"phone"`
}

func (r *PhoneRequest) Validate() error {
	errs := models.FieldErrors{}
	cleanPhoneField(errs, &r.Phone)
	return fieldErrorsOrNil(errs)
}

type CreatePasswordRequest struct {
	OTP         OTPCode `json:"otp"`
	NewPassword string  `json:"new_password"`
}

func (r *CreatePasswordRequest) Validate() error {
	errs := models.FieldErrors{}
	if r.OTP == "" {
		errs["otp"] = msgRequired
	}
	if r.NewPassword == "" {
		errs["new_password"] = msgRequired
	}
	return fieldErrorsOrNil(errs)
}

type ChangePasswordRequest struct {
	OldPassword *string `json:"old_password"`
	NewPassword string  `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	errs := models.FieldErrors{}
	if r.OldPassword != nil {
		if msg := utils.PasswordLengthMessage(*r.OldPassword, 0, 128); msg != "" {
			errs["old_password"] = msg
		}
	}
	if r.NewPassword == "" {
		errs["new_password"] = msgRequired
	} else if msg := utils.PasswordLengthMessage(r.NewPassword, 5, 128); msg != "" {
		errs["new_password"] = msg
	}
	return fieldErrorsOrNil(errs)
}

// UpdateUserRequest lists the fields a client may change. Unknown fields,
// password included, are ignored by the decoder.
type UpdateUserRequest struct {
	Firstname *string   `json:"firstname"`
	Lastname  *string   `json:"lastname"`
	Roles     *[]string `json:"roles"`
}

func (r *UpdateUserRequest) Validate() error {
	errs := models.FieldErrors{}
	if r.Firstname != nil && len(*r.Firstname) > 255 {
		errs["firstname"] = "Ensure this field has no more than 255 characters."
	}
	if r.Lastname != nil && len(*r.Lastname) > 255 {
		errs["lastname"] = "Ensure this field has no more than 255 characters."
	}
	if r.Roles != nil {
		if len(*r.Roles) > models.MaxRoles {
			errs["roles"] = "Ensure this field has no more than 6 elements."
		}
		for _, role := range *r.Roles {
			if !models.IsKnownRole(role) {
				errs["roles"] = `"` + role + `" is not a valid choice.`
				break
			}
		}
	}
	return fieldErrorsOrNil(errs)
}
