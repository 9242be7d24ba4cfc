package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/validate"
)

// Context keys.
const (
	keySession = "session"
	keyUser    = "user"
)

const (
	csrfHeader = "X-CSRF-Token"
	csrfCookie = "storefront.csrf"
)

// requestLog logs one line per request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			s.log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			s.log.Warn("request", fields...)
		default:
			s.log.Info("request", fields...)
		}
	}
}

// observe records request metrics by route pattern.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.metrics.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) recovered(c *gin.Context, err any) {
	s.log.Error("panic serving request", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
	s.renderError(c, http.StatusInternalServerError)
	c.Abort()
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' data:; script-src 'self' https://js.stripe.com; frame-src https://js.stripe.com")
		c.Next()
	}
}

// sanitize strips NUL bytes and caps the length of every query, path and
// form value. Bodies are limited to maxUploadBytes.
func (s *Server) sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request

		q := r.URL.Query()
		cleanValues(q, validate.MaxQueryValue)
		r.URL.RawQuery = q.Encode()

		for i := range c.Params {
			c.Params[i].Value = validate.Clean(c.Params[i].Value, validate.MaxParamValue)
		}

		if hasBody(r.Method) {
			r.Body = http.MaxBytesReader(c.Writer, r.Body, maxUploadBytes)
			var err error
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				err = r.ParseMultipartForm(maxUploadBytes)
			} else {
				err = r.ParseForm()
			}
			if err != nil {
				s.log.Debug("unreadable request body", zap.Error(err))
				c.AbortWithStatus(http.StatusBadRequest)
				return
			}
			cleanValues(r.PostForm, validate.MaxBodyValue)
			if r.MultipartForm != nil {
				cleanValues(r.MultipartForm.Value, validate.MaxBodyValue)
			}
		}
		// Form merges query and body; rebuild it from the cleaned parts.
		r.Form = nil
		c.Next()
	}
}

func cleanValues(values map[string][]string, max int) {
	for k, vs := range values {
		for i, v := range vs {
			vs[i] = validate.Clean(v, max)
		}
		values[k] = vs
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// session attaches the visitor's session and saves it if the handler did
// not write a response through the render helpers.
func (s *Server) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.sessions.Load(c.Request.Context(), c.Request)
		if err != nil {
			s.log.Error("load session", zap.Error(err))
			s.renderError(c, http.StatusInternalServerError)
			c.Abort()
			return
		}
		c.Set(keySession, sess)
		c.Next()
		if !c.Writer.Written() {
			s.saveSession(c)
		}
	}
}

// loadUser resolves the session's user. A session pointing at a deleted
// account is logged out.
func (s *Server) loadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionOf(c)
		if sess != nil && sess.LoggedIn() {
			u, err := s.auth.User(c.Request.Context(), sess.UserID())
			switch {
			case err == nil:
				c.Set(keyUser, u)
			case domain.IsNotFound(err):
				sess.SetUser(0)
			default:
				s.fail(c, err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// csrf wraps gorilla/csrf. Safe methods pass through and mint the token the
// templates embed; other requests must echo it in the _csrf form field or an
// X-CSRF-Token (or csrf-token) header.
func (s *Server) csrf() gin.HandlerFunc {
	key := s.cfg.CSRFKey
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	protect := csrf.Protect(key,
		csrf.FieldName("_csrf"),
		csrf.RequestHeader(csrfHeader),
		csrf.CookieName(csrfCookie),
		csrf.Path("/"),
		csrf.Secure(s.cfg.SecureCookies),
		csrf.SameSite(csrf.SameSiteLaxMode),
		// Rejections are rendered below, inside gin.
		csrf.ErrorHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})),
	)
	return func(c *gin.Context) {
		if t := c.GetHeader("csrf-token"); t != "" && c.GetHeader(csrfHeader) == "" {
			c.Request.Header.Set(csrfHeader, t)
		}
		if !s.cfg.SecureCookies {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}
		passed := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)
		if passed {
			c.Next()
			return
		}

		s.log.Warn("csrf token rejected", zap.String("path", c.Request.URL.Path))
		if c.Request.Method == http.MethodDelete {
			s.json(c, http.StatusForbidden, "Invalid CSRF token")
		} else {
			s.render(c, http.StatusForbidden, "errors/403", gin.H{
				"pageTitle": "Forbidden",
				"message":   "Invalid or missing CSRF token.",
			})
		}
		c.Abort()
	}
}

// requireAuth sends anonymous visitors to the login page.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userOf(c); ok {
			c.Next()
			return
		}
		if c.Request.Method == http.MethodDelete {
			s.json(c, http.StatusUnauthorized, "Please log in to access this page.")
		} else {
			s.flash(c, session.FlashError, "Please log in to access this page.")
			s.redirect(c, "/login")
		}
		c.Abort()
	}
}

func sessionOf(c *gin.Context) *session.Session {
	v, ok := c.Get(keySession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

func userOf(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(keyUser)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

// fieldOf returns the form field a validation error refers to.
func fieldOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
