package services

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/config"
	"github.com/pvolkov/filecrate/internal/models"
	"github.com/pvolkov/filecrate/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService maps provider profiles to local accounts and drives token
// issuance. Tokens are stateless, so the only revocation lever is the account
// itself: Refresh and the request gate both reload it from the database.
type AuthService struct {
	db    *gorm.DB
	cfg   *config.Config
	codec *token.Codec
}

func NewAuthService(db *gorm.DB, cfg *config.Config, codec *token.Codec) *AuthService {
	return &AuthService{db: db, cfg: cfg, codec: codec}
}

// ResolveProfile returns the account linked to the Yandex identity, creating
// a CLIENT account on first sight. A duplicate-key error on insert means a
// concurrent callback won the race, so the account is looked up again.
func (s *AuthService) ResolveProfile(profile *YandexProfile) (*models.User, error) {
	var user models.User
	err := s.db.Where("yandex_id = ?", profile.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("user lookup failed", err)
	}

	yandexID := profile.ID
	user = models.User{
		ID:       uuid.New(),
		YandexID: &yandexID,
		Login:    profile.Login,
		IsActive: true,
		Role:     models.RoleClient,
	}
	if profile.DefaultEmail != "" {
		email := profile.DefaultEmail
		user.Email = &email
	}
	if profile.RealName != "" {
		name := profile.RealName
		user.Name = &name
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.User
			if err := s.db.Where("yandex_id = ?", profile.ID).First(&existing).Error; err != nil {
				return nil, apperr.Internal("user creation failed", err)
			}
			return &existing, nil
		}
		return nil, apperr.Internal("user creation failed", err)
	}

	slog.Info("new user created from oauth", "user_id", user.ID.String(), "login", user.Login)
	return &user, nil
}

// TokenPair issues a fresh access+refresh pair for the user.
func (s *AuthService) TokenPair(user *models.User) (token.Pair, error) {
	return s.codec.IssuePair(user.ID)
}

// Refresh verifies a refresh token and issues a new pair. The account is
// loaded fresh so deactivated or soft-deleted users cannot refresh.
func (s *AuthService) Refresh(raw string) (token.Pair, error) {
	claims, err := s.codec.Verify(raw, token.PurposeRefresh)
	if err != nil {
		return token.Pair{}, err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", claims.Subject).Error; err != nil {
		return token.Pair{}, apperr.Unauthorized("invalid token")
	}
	if !user.IsActive {
		return token.Pair{}, apperr.Unauthorized("invalid token")
	}

	return s.codec.IssuePair(user.ID)
}

// SuperLogin exchanges the bootstrap superuser credentials for a token pair.
func (s *AuthService) SuperLogin(login, password string) (token.Pair, error) {
	var user models.User
	err := s.db.Where("login = ? AND password_hash <> ''", login).First(&user).Error
	if err != nil {
		return token.Pair{}, apperr.Unauthorized("invalid login or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return token.Pair{}, apperr.Unauthorized("invalid login or password")
	}
	if !user.IsActive {
		return token.Pair{}, apperr.Unauthorized("invalid login or password")
	}

	return s.codec.IssuePair(user.ID)
}

// SeedSuperuser creates the configured admin account if it does not exist.
func (s *AuthService) SeedSuperuser() error {
	if s.cfg.SuperuserLogin == "" || s.cfg.SuperuserPassword == "" {
		return nil
	}

	var existing models.User
	err := s.db.Unscoped().Where("login = ? AND password_hash <> ''", s.cfg.SuperuserLogin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.SuperuserPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		ID:           uuid.New(),
		Login:        s.cfg.SuperuserLogin,
		PasswordHash: string(hash),
		IsActive:     true,
		Role:         models.RoleAdmin,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return err
	}

	slog.Info("superuser seeded", "login", user.Login)
	return nil
}
