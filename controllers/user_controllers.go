package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

type registerRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	PhoneNumber string `json:"phone_number" binding:"required,max=32"`
	Email       string `json:"email" binding:"omitempty,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Address     string `json:"address"`
	City        string `json:"city"`
}

// Register creates a regular user. A role in the body is ignored.
func (uc *UserController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	user, err := uc.Users.Register(c.Request.Context(), services.NewUser{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
		Address:     req.Address,
		City:        req.City,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{"user_id": user.ID})
}

func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	res, err := uc.Users.Login(c.Request.Context(), input.PhoneNumber, input.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", res)
}

// Me returns the caller's own profile.
func (uc *UserController) Me(c *gin.Context) {
	user := middlewares.CurrentUser(c)
	if user == nil {
		utils.RespondError(c, utils.NewError(utils.KindUnauthenticated, "could not validate credentials"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile", user.Profile())
}

func (uc *UserController) GetUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	user, err := uc.Users.Get(c.Request.Context(), middlewares.CurrentUser(c), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User", user.Profile())
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	users, err := uc.Users.List(c.Request.Context(), middlewares.CurrentUser(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	out := make([]interface{}, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	utils.RespondJSON(c, http.StatusOK, "List of users", out)
}

// CreateUser is the admin path for creating users with an explicit role.
func (uc *UserController) CreateUser(c *gin.Context) {
	var req struct {
		registerRequest
		Role string `json:"role" binding:"omitempty,oneof=admin user"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	user, err := uc.Users.CreateUser(c.Request.Context(), middlewares.CurrentUser(c), services.NewUser{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Address:     req.Address,
		City:        req.City,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User created", user.Profile())
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=255"`
		PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
		Email       *string `json:"email" binding:"omitempty,email"`
		Password    *string `json:"password" binding:"omitempty,min=6"`
		Role        *string `json:"role" binding:"omitempty,oneof=admin user"`
		Address     *string `json:"address"`
		City        *string `json:"city"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	user, err := uc.Users.Update(c.Request.Context(), middlewares.CurrentUser(c), userID, services.UserUpdate{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Address:     req.Address,
		City:        req.City,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User updated", user.Profile())
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := uc.Users.Delete(c.Request.Context(), middlewares.CurrentUser(c), userID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User deleted", nil)
}
