package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/store"
)

type AuthService struct {
	store     store.Store
	adminCode string
	adminHash []byte
}

// NewAuthService checks the admin code against cfg.AdminCodeHash when set, otherwise
// against the plain cfg.AdminCode.
func NewAuthService(st store.Store, cfg config.AuthConfig) *AuthService {
	s := &AuthService{store: st, adminCode: cfg.AdminCode}
	if cfg.AdminCodeHash != "" {
		s.adminHash = []byte(cfg.AdminCodeHash)
	}
	return s
}

// Login resolves a credential to a session: the admin code first, then an exact
// zone-number match on the roster.
func (s *AuthService) Login(ctx context.Context, credential string) (model.Session, error) {
	value := strings.TrimSpace(credential)
	if value == "" {
		metrics.Login("rejected")
		return model.Session{}, ErrInvalidCredential
	}
	if s.isAdminCode(value) {
		metrics.Login("admin")
		return model.AdminSession(), nil
	}

	members, err := s.store.GetMembers(ctx)
	if err != nil {
		logger.Warn("login: roster degraded", "err", err)
	}
	if p, ok := model.FindByZone(members, value); ok {
		metrics.Login("member")
		return model.MemberSession(p), nil
	}
	metrics.Login("rejected")
	return model.Session{}, ErrInvalidCredential
}

func (s *AuthService) isAdminCode(v string) bool {
	if len(s.adminHash) > 0 {
		return bcrypt.CompareHashAndPassword(s.adminHash, []byte(v)) == nil
	}
	return s.adminCode != "" && subtle.ConstantTimeCompare([]byte(s.adminCode), []byte(v)) == 1
}

// HashAdminCode produces a value for auth.admin_code_hash.
func HashAdminCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", invalid("empty admin code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin code: %w", err)
	}
	return string(hash), nil
}
