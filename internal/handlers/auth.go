package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/services"
)

type AuthHandler struct {
	authService  services.AuthService
	oauthService services.OAuthService
	userService  services.UserService
}

func NewAuthHandler(authService services.AuthService, oauthService services.OAuthService, userService services.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, oauthService: oauthService, userService: userService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	user, pair, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "register_failed", err)
		return
	}
	RespondCreated(c, gin.H{"user": user, "tokens": pair})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	user, pair, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "login_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user, "tokens": pair})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "refresh_failed", err)
		return
	}
	RespondOK(c, pair)
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	if err := ah.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		RespondError(c, http.StatusBadRequest, "logout_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (ah *AuthHandler) OAuthInit(c *gin.Context) {
	var req struct {
		Provider    string `json:"provider"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	init, err := ah.oauthService.InitFlow(req.Provider, req.RedirectURI)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "oauth_init_failed", err)
		return
	}
	RespondOK(c, init)
}

func (ah *AuthHandler) OAuthCallback(c *gin.Context) {
	var req struct {
		Provider     string `json:"provider"`
		Code         string `json:"code"`
		CodeVerifier string `json:"code_verifier"`
		RedirectURI  string `json:"redirect_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	user, err := ah.oauthService.CompleteFlow(c.Request.Context(), req.Provider, req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "oauth_failed", err)
		return
	}
	pair, err := ah.authService.IssueTokens(c.Request.Context(), user)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "token_issue_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user, "tokens": pair})
}

func (ah *AuthHandler) OAuthProviders(c *gin.Context) {
	RespondOK(c, gin.H{"providers": ah.oauthService.Providers()})
}

func (ah *AuthHandler) GetProfile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	user, err := ah.userService.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "profile_not_found", err)
		return
	}
	RespondOK(c, user)
}

func (ah *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	user, err := ah.userService.UpdateProfile(c.Request.Context(), rd.UserID, req.FullName)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "profile_update_failed", err)
		return
	}
	RespondOK(c, user)
}
