package handlers

import (
	"github.com/gin-gonic/gin"

	"sipitali-server/internal/models"
	"sipitali-server/internal/services"
	"sipitali-server/internal/utils"
)

// UserHandler handles user management requests.
type UserHandler struct {
	Users *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// CreateUser handles creating a new user of any role (admin only).
func (h *UserHandler) CreateUser(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req services.CreateUserInput
	if !utils.BindJSON(c, &req) {
		return
	}

	user, err := h.Users.Create(c.Request.Context(), cl, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "User created successfully", gin.H{"user": user})
}

// GetUsers lists users, optionally filtered by ?role=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	users, err := h.Users.List(c.Request.Context(), cl, models.Role(c.Query("role")))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Users retrieved successfully", gin.H{"users": users})
}

// GetUserByID handles fetching a single user by ID.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User retrieved successfully", gin.H{"user": user})
}

// UpdateUser handles updating a user's details.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req services.UpdateUserInput
	if !utils.BindJSON(c, &req) {
		return
	}

	user, err := h.Users.Update(c.Request.Context(), cl, c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User updated successfully", gin.H{"user": user})
}

// UpsertDoctorProfile creates or replaces a doctor's clinical profile.
func (h *UserHandler) UpsertDoctorProfile(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req services.DoctorProfileInput
	if !utils.BindJSON(c, &req) {
		return
	}

	profile, err := h.Users.UpsertDoctorProfile(c.Request.Context(), cl, c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor profile saved successfully", gin.H{"doctorProfile": profile})
}

// DeleteUser handles deleting a user.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), cl, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

// GetDoctors lists doctors for the booking picker.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	doctors, err := h.Users.ListDoctors(c.Request.Context(), cl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctors retrieved successfully", gin.H{"doctors": doctors})
}
