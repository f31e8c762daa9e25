package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"botoapp/user/internal/middleware"
	"botoapp/user/internal/models"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxImageSize = 5 << 20

type UserHandler struct {
	Users       UserRepository
	Images      ImageStore
	Logger      *zap.Logger
	PageSize    int
	MaxPageSize int
}

func (h *UserHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *UserHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger().Error(msg, zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, msg)
}

func notFound(w http.ResponseWriter) {
	utils.JSONDetail(w, http.StatusNotFound, "Not found.")
}

// scopedUser loads the {id} user when the caller may see it. Non-admins only see themselves.
func (h *UserHandler) scopedUser(w http.ResponseWriter, r *http.Request) (*models.User, *models.User, bool) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		utils.JSONDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return nil, nil, false
	}
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.JSONError(w, http.StatusBadRequest, "User ID is required")
		return nil, nil, false
	}
	if !caller.HasAdminAccess() && userID != caller.ID {
		notFound(w)
		return nil, nil, false
	}

	user, err := h.Users.GetUserByID(r.Context(), userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		notFound(w)
		return nil, nil, false
	}
	if err != nil {
		h.internalError(w, "failed to retrieve user", err)
		return nil, nil, false
	}
	return caller, user, true
}

// ListUsersHandler pages through the users visible to the caller.
func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		utils.JSONDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	qs := r.URL.Query()

	page, pageSize, ok := parsePaging(qs, h.PageSize, h.MaxPageSize)
	if !ok {
		utils.JSONDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	q := repositories.UserQuery{
		Search:   strings.TrimSpace(qs.Get("search")),
		Ordering: qs.Get("ordering"),
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	}
	if !caller.HasAdminAccess() {
		q.OnlyID = caller.ID
	}
	if raw := qs.Get("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"verified": "Enter a valid boolean."})
			return
		}
		q.Verified = &v
	}

	users, total, err := h.Users.ListUsers(r.Context(), q)
	if err != nil {
		h.internalError(w, "failed to list users", err)
		return
	}

	resp, ok := newPage(r, users, total, page, pageSize)
	if !ok {
		utils.JSONDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// GetUserHandler retrieves a user by ID
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	_, user, ok := h.scopedUser(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// UpdateUserHandler updates profile fields. Roles only change when an admin asks.
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*UpdateUserRequest](r)
	caller, user, ok := h.scopedUser(w, r)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Firstname != nil {
		updates["firstname"] = *req.Firstname
	}
	if req.Lastname != nil {
		updates["lastname"] = *req.Lastname
	}
	if req.Roles != nil && len(*req.Roles) > 0 && caller.HasAdminAccess() {
		updates["roles"] = models.RoleList(*req.Roles)
	}

	updated, err := h.Users.UpdateUser(r.Context(), user.ID, updates)
	if errors.Is(err, repositories.ErrUserNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.internalError(w, "failed to update user", err)
		return
	}
	utils.JSON(w, http.StatusOK, updated)
}

// UploadImageHandler replaces the user's avatar with the multipart "image" file.
func (h *UserHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if h.Images == nil {
		utils.JSONDetail(w, http.StatusServiceUnavailable, "Image storage is not configured.")
		return
	}
	_, user, ok := h.scopedUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"image": "Upload a valid image no larger than 5 MB."})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"image": "No file was submitted."})
		return
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"image": "Upload a valid image no larger than 5 MB."})
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil || len(data) > MaxImageSize {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"image": "Upload a valid image no larger than 5 MB."})
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		utils.JSONFieldErrors(w, http.StatusBadRequest, map[string]string{"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."})
		return
	}

	key := "media/users/" + user.ID + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	url, err := h.Images.Upload(r.Context(), key, contentType, data)
	if err != nil {
		h.internalError(w, "failed to store image", err)
		return
	}

	previous := user.Image
	updated, err := h.Users.UpdateUser(r.Context(), user.ID, map[string]any{"image": url})
	if err != nil {
		h.internalError(w, "failed to update user", err)
		return
	}
	if oldKey, ok := h.Images.KeyFromURL(previous); ok {
		if err := h.Images.Delete(r.Context(), oldKey); err != nil {
			h.logger().Warn("failed to delete previous image", zap.String("key", oldKey), zap.Error(err))
		}
	}
	utils.JSON(w, http.StatusOK, updated)
}

// DeleteUserHandler deletes a user by ID. Routed behind RequireAdmin.
func (h *UserHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		utils.JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.Users.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			notFound(w)
		} else {
			h.internalError(w, "failed to delete user", err)
		}
		return
	}
	h.logger().Info("user deleted", zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
