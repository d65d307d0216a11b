package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

const (
	sessionKey   = "session"
	renewWithin  = 24 * time.Hour
	NewTokenHead = "X-New-Token"
)

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(cfg config.AuthConfig) *Tokens {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(cfg.JWTSecret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(sess model.Session) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": string(sess.Role),
		"pid":  sess.PersonID,
		"name": sess.Name,
		"exp":  t.now().Add(t.ttl).Unix(),
	}).SignedString(t.secret)
}

// Parse returns the session carried by a valid token and its expiry.
func (t *Tokens) Parse(raw string) (model.Session, time.Time, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return model.Session{}, time.Time{}, fmt.Errorf("invalid token: %w", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	role, _ := claims["role"].(string)
	pid, _ := claims["pid"].(string)
	name, _ := claims["name"].(string)
	sess := model.Session{Role: model.Role(role), PersonID: pid, Name: name}
	if !sess.Valid() {
		return model.Session{}, time.Time{}, fmt.Errorf("invalid token: bad session claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return model.Session{}, time.Time{}, fmt.Errorf("invalid token: no expiry")
	}
	return sess, exp.Time, nil
}

// JWTAuth puts the request's session in the context. A token with less than a day
// left is renewed through the X-New-Token header.
func (t *Tokens) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		sess, exp, err := t.Parse(auth[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(sessionKey, sess)

		if exp.Sub(t.now()) < renewWithin {
			if renewed, err := t.Issue(sess); err == nil {
				c.Header(NewTokenHead, renewed)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after JWTAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Session(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// Session returns the caller's session; the zero value when JWTAuth did not run.
func Session(c *gin.Context) model.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(model.Session); ok {
			return sess
		}
	}
	return model.Session{}
}
