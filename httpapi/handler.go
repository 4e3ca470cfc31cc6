package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/gin-gonic/gin"
)

// Handler serves the account endpoints.
type Handler struct {
	engine *goGate.Engine
	logger *slog.Logger
}

// New returns a Handler. A nil logger discards output.
func New(engine *goGate.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{engine: engine, logger: logger}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/signup", h.signup)
	r.POST("/verify", h.verify)
	r.POST("/verify/resend", h.resend)
	r.POST("/login", h.login)
	r.POST("/password/forgot", h.forgotPassword)
	r.POST("/password/reset", h.resetPassword)
	r.GET("/me", gin.WrapH(middleware.Guard(h.engine)(http.HandlerFunc(me))))
}

type accountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

func toAccountResponse(a *goGate.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Username: a.Username, Active: a.IsActive}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.engine.Signup(c.Request.Context(), goGate.SignupRequest{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.fail(c, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": toAccountResponse(res.Account)})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.engine.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.fail(c, "verify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": toAccountResponse(res.Account)})
}

type emailRequest struct {
	Email string `json:"email"`
}

type codeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) resend(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.engine.ResendCode(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, "resend", err)
		return
	}
	c.JSON(http.StatusAccepted, codeResponse{ExpiresAt: res.ExpiresAt})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Account     accountResponse `json:"account"`
	AccessToken string          `json:"access_token,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.engine.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	out := loginResponse{Account: toAccountResponse(res.Account), AccessToken: res.AccessToken}
	if res.AccessToken != "" {
		exp := res.AccessTokenExpiresAt
		out.ExpiresAt = &exp
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.engine.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, "forgot_password", err)
		return
	}
	c.JSON(http.StatusAccepted, codeResponse{ExpiresAt: res.ExpiresAt})
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req) {
		return
	}
	if err := h.engine.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.fail(c, "reset_password", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(gin.H{
		"id":        claims.AccountID,
		"username":  claims.Username,
		"superuser": claims.Superuser,
	})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}
