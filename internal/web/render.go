package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/session"
)

// saveSession persists the session before the response is written so the
// cookie reaches the client.
func (s *Server) saveSession(c *gin.Context) {
	sess := sessionOf(c)
	if sess == nil {
		return
	}
	if err := s.sessions.Save(c.Request.Context(), c.Writer, sess); err != nil {
		s.log.Error("save session", zap.Error(err))
	}
}

func (s *Server) flash(c *gin.Context, kind, msg string) {
	if sess := sessionOf(c); sess != nil {
		sess.AddFlash(kind, msg)
	}
}

// pageData merges data over the values every page needs and consumes the
// pending flash messages.
func (s *Server) pageData(c *gin.Context, data gin.H) gin.H {
	_, loggedIn := userOf(c)
	h := gin.H{
		"path":            c.Request.URL.Path,
		"isAuthenticated": loggedIn,
		"csrfToken":       csrf.Token(c.Request),
		"errorMessage":    "",
		"successMessage":  "",
		"errorField":      "",
	}
	if sess := sessionOf(c); sess != nil {
		if msgs := sess.Flashes(session.FlashError); len(msgs) > 0 {
			h["errorMessage"] = msgs[0]
		}
		if msgs := sess.Flashes(session.FlashSuccess); len(msgs) > 0 {
			h["successMessage"] = msgs[0]
		}
	}
	for k, v := range data {
		h[k] = v
	}
	return h
}

func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	h := s.pageData(c, data)
	s.saveSession(c)
	c.HTML(status, name, h)
}

func (s *Server) redirect(c *gin.Context, location string) {
	s.saveSession(c)
	c.Redirect(http.StatusFound, location)
}

// json writes {"message": msg}.
func (s *Server) json(c *gin.Context, status int, msg string) {
	s.saveSession(c)
	c.JSON(status, gin.H{"message": msg})
}

func (s *Server) renderError(c *gin.Context, status int) {
	switch status {
	case http.StatusNotFound:
		s.render(c, status, "errors/404", gin.H{"pageTitle": "Page Not Found", "path": "/404"})
	case http.StatusForbidden:
		s.render(c, status, "errors/403", gin.H{"pageTitle": "Forbidden", "message": "You are not allowed to do that."})
	default:
		s.render(c, http.StatusInternalServerError, "errors/500", gin.H{"pageTitle": "Error!", "path": "/500"})
	}
}

// fail renders the error page matching err's domain code. Unexpected
// errors are logged and shown as 500.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case domain.IsNotFound(err):
		s.renderError(c, http.StatusNotFound)
	case domain.IsForbidden(err):
		s.render(c, http.StatusForbidden, "errors/403", gin.H{
			"pageTitle": "Forbidden",
			"message":   domain.MessageOf(err, "You are not allowed to do that."),
		})
	default:
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		s.renderError(c, http.StatusInternalServerError)
	}
}

func (s *Server) handleNotFound(c *gin.Context) {
	s.renderError(c, http.StatusNotFound)
}
