package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

type UserController struct {
	DB     *gorm.DB
	Matrix *permissions.Matrix
}

func NewUserController(db *gorm.DB, matrix *permissions.Matrix) *UserController {
	return &UserController{DB: db, Matrix: matrix}
}

type createUserRequest struct {
	Name       string   `json:"name" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=8"`
	Role       string   `json:"role" binding:"required"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,min=0"`
}

// CreateUser registers a staff account. Assigning admin needs users.manage_roles.
func (uc *UserController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	role, ok := permissions.ParseRole(req.Role)
	if !ok {
		utils.RespondAppError(c, apperrors.Validation("unknown role %q", req.Role))
		return
	}
	if role == permissions.RoleAdmin && !uc.Matrix.HasPermission(middlewares.CurrentRole(c), permissions.UsersManageRoles) {
		utils.RespondAppError(c, apperrors.Forbidden("only administrators can create admin accounts"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var count int64
	if err := uc.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if count > 0 {
		utils.RespondAppError(c, apperrors.Conflict("email %s is already registered", email))
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	user := models.User{
		Name:       strings.TrimSpace(req.Name),
		Email:      email,
		Password:   hashed,
		Role:       string(role),
		HourlyRate: req.HourlyRate,
		IsActive:   true,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User created", user)
}

// Login exchanges credentials for a JWT.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	err := uc.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondAppError(c, err)
		return
	}
	if err != nil || !user.IsActive || !utils.CheckPassword(user.Password, input.Password) {
		utils.RespondAppError(c, apperrors.Unauthorized("invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":       token,
		"user":        user,
		"permissions": uc.Matrix.Permissions(user.PermissionRole()),
	})
}

func (uc *UserController) Logout(c *gin.Context) {
	utils.BlacklistToken(c.GetString(middlewares.ContextToken))
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// Me returns the caller's profile and permission set.
func (uc *UserController) Me(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)
	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondAppError(c, apperrors.NotFound("user %d not found", userID))
			return
		}
		utils.RespondAppError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{
		"user":        user,
		"permissions": uc.Matrix.Permissions(user.PermissionRole()),
	})
}

func (uc *UserController) ListUsers(c *gin.Context) {
	q := uc.DB.Order("name ASC")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := uc.loadUser(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User", user)
}

type updateUserRequest struct {
	Name       *string  `json:"name" binding:"omitempty,min=1"`
	Email      *string  `json:"email" binding:"omitempty,email"`
	Password   *string  `json:"password" binding:"omitempty,min=8"`
	Role       *string  `json:"role"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,min=0"`
	IsActive   *bool    `json:"is_active"`
}

// UpdateUser edits a staff account. Changing a role, or touching an admin
// account, needs users.manage_roles.
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.loadUser(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	callerRole := middlewares.CurrentRole(c)
	canManageRoles := uc.Matrix.HasPermission(callerRole, permissions.UsersManageRoles)
	if user.PermissionRole() == permissions.RoleAdmin && !canManageRoles {
		utils.RespondAppError(c, apperrors.Forbidden("only administrators can edit admin accounts"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.RespondAppError(c, apperrors.Validation("name must not be blank"))
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			var count int64
			if err := uc.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				utils.RespondAppError(c, err)
				return
			}
			if count > 0 {
				utils.RespondAppError(c, apperrors.Conflict("email %s is already registered", email))
				return
			}
			updates["email"] = email
		}
	}
	if req.Password != nil {
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		updates["password"] = hashed
	}
	if req.Role != nil {
		role, ok := permissions.ParseRole(*req.Role)
		if !ok {
			utils.RespondAppError(c, apperrors.Validation("unknown role %q", *req.Role))
			return
		}
		if string(role) != user.Role {
			if !canManageRoles {
				utils.RespondAppError(c, apperrors.Forbidden("changing roles requires %s", permissions.UsersManageRoles))
				return
			}
			if user.ID == middlewares.CurrentUserID(c) {
				utils.RespondAppError(c, apperrors.Validation("you cannot change your own role"))
				return
			}
			updates["role"] = string(role)
		}
	}
	if req.HourlyRate != nil {
		updates["hourly_rate"] = *req.HourlyRate
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		if !*req.IsActive && user.ID == middlewares.CurrentUserID(c) {
			utils.RespondAppError(c, apperrors.Validation("you cannot deactivate your own account"))
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		utils.RespondJSON(c, http.StatusOK, "User unchanged", user)
		return
	}

	if err := uc.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if user, err = uc.loadUser(id); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("User %d updated by user %d", user.ID, middlewares.CurrentUserID(c))
	utils.RespondJSON(c, http.StatusOK, "User updated", user)
}

// DeleteUser deactivates an account. Rows stay so orders keep their server and cashier.
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id == middlewares.CurrentUserID(c) {
		utils.RespondAppError(c, apperrors.Validation("you cannot deactivate your own account"))
		return
	}
	user, err := uc.loadUser(id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if user.IsActive {
		if err := uc.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
			utils.RespondAppError(c, err)
			return
		}
		user.IsActive = false
		utils.InfoLogger.Printf("User %d (%s) deactivated by user %d", user.ID, user.Email, middlewares.CurrentUserID(c))
	}
	utils.RespondJSON(c, http.StatusOK, "User deactivated", user)
}

func (uc *UserController) loadUser(id uint) (*models.User, error) {
	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}
