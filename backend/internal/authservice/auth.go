package authservice

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"wallServer/backend/internal/store"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type Handlers struct {
	users *store.UserStore
	// 关掉之后 /register 直接 403，登录也绝不会顺手建号
	allowRegister bool
}

func NewHandlers(users *store.UserStore, allowRegister bool) *Handlers {
	return &Handlers{users: users, allowRegister: allowRegister}
}

func (h *Handlers) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	u, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// 用户不存在时明确报出来，不做静默建号；
			// 想要新账号必须走 /register
			c.JSON(http.StatusUnauthorized, gin.H{"code": "USER_NOT_FOUND", "message": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "get user failed"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "BAD_CREDENTIALS", "message": "wrong username or password"})
		return
	}

	accessToken, _, err := SignAccessToken(u.ID, u.Username, 30*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "sign access token failed"})
		return
	}
	refreshToken, _, err := SignRefreshToken(u.ID, u.Username, 7*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "sign refresh token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"expiresIn":    30 * 60, // 秒
		"tokenType":    "Bearer",
		"user": gin.H{
			"id":       u.ID,
			"username": u.Username,
		},
	})
}

func (h *Handlers) Register(c *gin.Context) {
	if !h.allowRegister {
		c.JSON(http.StatusForbidden, gin.H{"code": "REGISTER_DISABLED", "message": "registration is disabled"})
		return
	}
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "username and password required"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "hash password failed"})
		return
	}
	userID, err := h.users.CreateUser(c.Request.Context(), req.Username, passwordHash)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"code": "USERNAME_TAKEN", "message": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID})
}

func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	claims, err := ParseToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "BAD_TOKEN", "message": "refreshToken invalid"})
		return
	}
	if claims.Type != "refresh" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "BAD_TOKEN", "message": "refreshToken type mismatch"})
		return
	}

	accessToken, _, err := SignAccessToken(claims.UserID, claims.Username, 30*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "sign access token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"expiresIn":   30 * 60,
		"tokenType":   "Bearer",
		"user": gin.H{
			"username": claims.Username,
		},
	})
}
