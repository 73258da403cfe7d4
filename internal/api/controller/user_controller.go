package controller

import (
	"net/http"
	"strings"

	"ctarcade/Game-Arcade/internal/api/models"
	"ctarcade/Game-Arcade/internal/api/response"
	"ctarcade/Game-Arcade/internal/api/service"

	"github.com/gin-gonic/gin"
)

// identityKey is where middleware stores the resolved identity in the
// request context.
const identityKey = "identity"

// UserController handles user-related HTTP requests.
type UserController struct {
	userService service.UserService
}

// NewUserController creates a new UserController.
func NewUserController(userService service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Register handles the user registration endpoint.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err := uc.userService.Register(c.Request.Context(), &req)
	if err != nil {
		response.ErrorResponse(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessResponse(c, gin.H{"message": "User created successfully"})
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := uc.userService.Login(c.Request.Context(), &req)
	if err != nil {
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}

	response.SuccessResponse(c, resp)
}

// GuestLogin mints a guest identity and token.
func (uc *UserController) GuestLogin(c *gin.Context) {
	resp, err := uc.userService.GuestLogin(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, resp)
}

// RequireAuth validates the Bearer token and stores the identity for
// downstream handlers.
func (uc *UserController) RequireAuth(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing credentials")
		c.Abort()
		return
	}
	identity, err := uc.userService.ValidateToken(token)
	if err != nil {
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		c.Abort()
		return
	}
	c.Set(identityKey, identity)
	c.Next()
}

// IdentityFrom fetches the identity set by RequireAuth.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Browsers cannot set headers on websocket dials, so the token may
	// arrive as a query parameter instead.
	return c.Query("token")
}
