package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

// AuthConfig holds the token and hashing settings of AuthService.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	AutoVerify     bool
}

// AuthService registers users and issues, rotates and revokes tokens.
type AuthService struct {
	Cfg      AuthConfig
	Users    UserStore
	Tokens   TokenStore
	Denylist utils.Denylist
}

func NewAuthService(cfg AuthConfig, users UserStore, tokens TokenStore, deny utils.Denylist) *AuthService {
	if deny == nil {
		deny = utils.NewMemoryDenylist()
	}
	return &AuthService{Cfg: cfg, Users: users, Tokens: tokens, Denylist: deny}
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Address  model.Address `json:"address"`
}

// TokenPart is a token and its expiry.
type TokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Session is the result of a login or refresh.
type Session struct {
	User    model.User `json:"user"`
	Access  TokenPart  `json:"access"`
	Refresh TokenPart  `json:"refresh"`
}

// Register creates a customer. The account is unverified unless
// AutoVerify is set; no tokens are issued here.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !usernamePattern.MatchString(username) {
		return model.User{}, invalid("username", "must be 3-50 characters of letters, digits or underscore")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return model.User{}, err
	}
	if n := len(in.Password); n < minPasswordLength || n > maxPasswordLength {
		return model.User{}, invalid("password", "must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}
	hash, err := utils.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		IsVerified:   s.Cfg.AutoVerify,
		Address:      trimAddress(in.Address),
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func trimAddress(a model.Address) model.Address {
	return model.Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// Login checks credentials first and the verification flag second, so a
// wrong password never reveals whether the account is verified.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return Session{}, access.ErrUnverified
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token", "is required")
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := s.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	// a concurrent refresh with the same token loses here
	if err := s.Tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidRefresh
		}
		return Session{}, err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	if !u.IsVerified {
		return Session{}, access.ErrUnverified
	}
	return s.issue(ctx, u)
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	at, err := utils.NewAccessToken(s.Cfg.JWTSecret, u.ID, u.Role, s.Cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	rt, err := utils.NewRefreshToken(s.Cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := s.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return Session{}, err
	}
	return Session{
		User:    u,
		Access:  TokenPart{Token: at.Token, Expires: at.Exp},
		Refresh: TokenPart{Token: rt.Raw, Expires: rt.Exp},
	}, nil
}

// Logout revokes refreshRaw when given. Without one, every refresh token of
// the bearer is revoked. The bearer's access token is deny-listed either way.
func (s *AuthService) Logout(ctx context.Context, bearer *utils.AccessClaims, refreshRaw string) error {
	refreshRaw = strings.TrimSpace(refreshRaw)
	if bearer == nil && refreshRaw == "" {
		return invalid("refresh_token", "provide an Authorization header or refresh_token")
	}
	if refreshRaw != "" {
		hash := utils.HashRefreshRaw(refreshRaw)
		if _, err := s.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if err := s.Tokens.RevokeByHash(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
	} else if err := s.Tokens.RevokeAllForUser(ctx, bearer.UserID); err != nil {
		return err
	}
	if bearer != nil {
		if err := s.Denylist.Deny(ctx, bearer.ID, time.Until(bearer.Exp)); err != nil {
			obs.Logger.Warn("deny-list write failed", "jti", bearer.ID, "error", err)
		}
	}
	return nil
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	return s.Users.GetByID(ctx, userID)
}

// EnsureAdmin makes sure a verified admin with email exists, creating it
// with password when missing. An empty email is a no-op.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != model.RoleAdmin {
			if err := s.Users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
				return err
			}
		}
		if !u.IsVerified {
			return s.Users.SetVerified(ctx, u.ID, true)
		}
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	if len(password) < minPasswordLength {
		return invalid("ADMIN_PASSWORD", "must be at least %d characters", minPasswordLength)
	}
	hash, err := utils.HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	admin := model.User{
		Username:     adminUsername(email),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsVerified:   true,
	}
	if err := s.Users.Create(ctx, &admin); err != nil {
		return err
	}
	obs.Logger.Info("admin account created", "user_id", admin.ID, "email", email)
	return nil
}

func adminUsername(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 50 {
		name = name[:50]
	}
	if len(name) < 3 {
		name = "admin_" + name
	}
	return name
}
