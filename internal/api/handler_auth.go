package api

import (
	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Signup handles POST /api/iot/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "phone and password are required")
		return
	}

	pendingID, err := h.store.StartSignup(c.Request.Context(), req.Phone, req.Password, req.Name)
	if err != nil {
		fail(c, err, "signup failed for phone "+req.Phone)
		return
	}
	ok(c, "OTP sent", gin.H{"user_id": pendingID})
}

type verifySignupRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Otp    string `json:"otp" binding:"required"`
}

// VerifySignupOtp handles POST /api/iot/verify_signup_otp.
func (h *Handler) VerifySignupOtp(c *gin.Context) {
	var req verifySignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id and otp are required")
		return
	}

	userID, err := h.store.VerifySignupOtp(c.Request.Context(), req.UserID, req.Otp)
	if err != nil {
		fail(c, err, "signup verification failed")
		return
	}
	ok(c, "Signup verified", gin.H{"user_id": userID})
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/iot/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "phone and password are required")
		return
	}

	user, err := h.store.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		fail(c, err, "login failed")
		return
	}
	ok(c, "Login successful", gin.H{"user_id": user.ID, "name": user.Name})
}

// Logout handles POST /api/iot/logout. Sessions are client-side; this
// is an acknowledgment only.
func (h *Handler) Logout(c *gin.Context) {
	ok(c, "Logged out", nil)
}

type forgotPasswordRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ForgotPasswordSendOtp handles POST /api/iot/forgot_password_send_otp.
func (h *Handler) ForgotPasswordSendOtp(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "phone required")
		return
	}

	userID, err := h.store.StartForgotPassword(c.Request.Context(), req.Phone)
	if err != nil {
		fail(c, err, "forgot password otp failed for phone "+req.Phone)
		return
	}
	ok(c, "OTP sent", gin.H{"user_id": userID})
}

type verifyForgotRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Otp         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// VerifyForgotOtp handles POST /api/iot/verify_forgot_otp.
func (h *Handler) VerifyForgotOtp(c *gin.Context) {
	var req verifyForgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id, otp and new_password are required")
		return
	}

	if err := h.store.VerifyForgotOtp(c.Request.Context(), req.UserID, req.Otp, req.NewPassword); err != nil {
		fail(c, err, "forgot otp verification failed")
		return
	}
	ok(c, "Password updated successfully", nil)
}

type resendRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// ResendSignupOtp handles POST /api/iot/resend_signup_otp.
func (h *Handler) ResendSignupOtp(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id required")
		return
	}

	if err := h.store.ResendSignupOtp(c.Request.Context(), req.UserID); err != nil {
		fail(c, err, "resend signup otp failed")
		return
	}
	ok(c, "OTP resent successfully", nil)
}

// ResendForgotOtp handles POST /api/iot/resend_forgot_otp.
func (h *Handler) ResendForgotOtp(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id required")
		return
	}

	if err := h.store.ResendForgotOtp(c.Request.Context(), req.UserID); err != nil {
		fail(c, err, "resend forgot otp failed")
		return
	}
	ok(c, "OTP resent successfully", nil)
}
