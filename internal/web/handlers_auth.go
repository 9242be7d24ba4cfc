package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/validate"
)

const msgResetInvalid = "Password reset token is invalid or has expired."

func (s *Server) handleLoginForm(c *gin.Context) {
	s.render(c, http.StatusOK, "auth/login", gin.H{
		"pageTitle": "Login",
		"oldEmail":  "",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var form validate.LoginForm
	err := bindForm(c, &form)
	var user domain.User
	if err == nil {
		user, err = s.auth.Authenticate(c.Request.Context(), form.Email, form.Password)
	}
	if err != nil {
		status := http.StatusUnauthorized
		if domain.IsValidation(err) {
			status = http.StatusUnprocessableEntity
		} else if !domain.IsUnauthorized(err) {
			s.fail(c, err)
			return
		}
		s.render(c, status, "auth/login", gin.H{
			"pageTitle":    "Login",
			"path":         "/login",
			"oldEmail":     form.Email,
			"errorMessage": domain.MessageOf(err, "Invalid email or password."),
			"errorField":   fieldOf(err),
		})
		return
	}

	sess := sessionOf(c)
	if err := s.sessions.Renew(sess); err != nil {
		s.fail(c, err)
		return
	}
	sess.SetUser(user.ID)
	s.log.Info("user logged in", zap.Int64("user_id", user.ID))
	s.redirect(c, "/")
}

func (s *Server) handleSignupForm(c *gin.Context) {
	s.render(c, http.StatusOK, "auth/signup", gin.H{
		"pageTitle": "Signup",
		"old":       validate.SignupForm{},
	})
}

func (s *Server) handleSignup(c *gin.Context) {
	var form validate.SignupForm
	err := bindForm(c, &form)
	if err == nil {
		_, err = s.auth.Signup(c.Request.Context(), form)
	}
	if domain.IsValidation(err) || domain.IsConflict(err) {
		field := fieldOf(err)
		if domain.IsConflict(err) {
			field = "email"
		}
		s.render(c, http.StatusUnprocessableEntity, "auth/signup", gin.H{
			"pageTitle":    "Signup",
			"path":         "/signup",
			"old":          validate.SignupForm{Name: form.Name, Email: form.Email},
			"errorMessage": domain.MessageOf(err, "Signup failed."),
			"errorField":   field,
		})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.flash(c, session.FlashSuccess, "Signup succeeded! Please log in.")
	s.redirect(c, "/login")
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.sessions.Destroy(c.Request.Context(), c.Writer, sessionOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, "/")
}

func (s *Server) handleResetForm(c *gin.Context) {
	s.render(c, http.StatusOK, "auth/reset-password", gin.H{
		"pageTitle": "Reset Password",
	})
}

// handleReset mails a reset link. Unknown addresses get the same answer as
// known ones.
func (s *Server) handleReset(c *gin.Context) {
	var form validate.ResetForm
	err := bindForm(c, &form)
	if err == nil {
		err = s.auth.RequestReset(c.Request.Context(), form.Email)
	}
	switch {
	case err == nil, domain.IsNotFound(err):
		s.flash(c, session.FlashSuccess, "If an account with that email exists, a reset link has been sent.")
	case domain.IsValidation(err):
		s.flash(c, session.FlashError, domain.MessageOf(err, "Please provide your email."))
	default:
		s.log.Error("request password reset", zap.Error(err))
		s.flash(c, session.FlashError, "An unexpected error occurred. Please try again later.")
	}
	s.redirect(c, "/reset-password")
}

func (s *Server) handleNewPasswordForm(c *gin.Context) {
	token := c.Param("token")
	user, err := s.auth.CheckResetToken(c.Request.Context(), token)
	if domain.IsExpired(err) {
		s.flash(c, session.FlashError, msgResetInvalid)
		s.redirect(c, "/reset-password")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "auth/new-password", gin.H{
		"pageTitle":     "New Password",
		"path":          "/new-password",
		"userID":        user.ID,
		"passwordToken": token,
	})
}

func (s *Server) handleNewPassword(c *gin.Context) {
	var form validate.NewPasswordForm
	err := bindForm(c, &form)
	if err == nil {
		err = s.auth.ResetPassword(c.Request.Context(), form)
	}
	switch {
	case err == nil:
		s.flash(c, session.FlashSuccess, "Password updated successfully. Please log in.")
		s.redirect(c, "/login")
	case domain.IsValidation(err) && fieldOf(err) != "userId" && fieldOf(err) != "passwordToken":
		s.flash(c, session.FlashError, domain.MessageOf(err, "Invalid password."))
		s.redirect(c, "/reset-password/"+url.PathEscape(form.Token))
	case domain.IsValidation(err), domain.IsExpired(err):
		s.flash(c, session.FlashError, msgResetInvalid)
		s.redirect(c, "/reset-password")
	default:
		s.fail(c, err)
	}
}
