package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/config"
	"golang.org/x/oauth2"
)

const (
	yandexAuthURL  = "https://oauth.yandex.ru/authorize"
	yandexTokenURL = "https://oauth.yandex.ru/token"
	yandexInfoURL  = "https://login.yandex.ru/info"
)

// YandexProfile is the subset of the provider profile the resolver needs.
// Login is guaranteed by the provider contract; the rest is optional.
type YandexProfile struct {
	ID           string `json:"id"`
	Login        string `json:"login"`
	DefaultEmail string `json:"default_email"`
	RealName     string `json:"real_name"`
}

// YandexService drives the three-legged OAuth flow: redirect with state,
// code-for-token exchange, profile fetch. Any provider-side failure is a
// BadRequest; the flow is never retried, the caller restarts it.
type YandexService struct {
	oauth      *oauth2.Config
	infoURL    string
	httpClient *http.Client
}

func NewYandexService(cfg *config.Config) *YandexService {
	return &YandexService{
		oauth: &oauth2.Config{
			ClientID:     cfg.YandexClientID,
			ClientSecret: cfg.YandexClientSecret,
			RedirectURL:  cfg.YandexRedirectURI,
			Scopes:       []string{"login:info"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  yandexAuthURL,
				TokenURL: yandexTokenURL,
			},
		},
		infoURL:    yandexInfoURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL returns the provider authorization URL and the random state value
// the caller must pin in a short-lived cookie.
func (s *YandexService) AuthURL() (string, string) {
	state := uuid.NewString()
	return s.oauth.AuthCodeURL(state), state
}

// HandleCallback validates the callback parameters against the cookie state
// and walks the remaining flow steps: token exchange, then profile fetch.
func (s *YandexService) HandleCallback(ctx context.Context, code, state, cookieState string) (*YandexProfile, error) {
	if code == "" || state == "" || cookieState == "" || state != cookieState {
		slog.Error("invalid state parameter on oauth callback")
		return nil, apperr.BadRequest("invalid state parameter")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Error("yandex token exchange failed", "error", err)
		return nil, apperr.BadRequest("failed to get access token from yandex")
	}

	return s.fetchProfile(ctx, tok.AccessToken)
}

func (s *YandexService) fetchProfile(ctx context.Context, accessToken string) (*YandexProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.infoURL+"?format=json", nil)
	if err != nil {
		return nil, apperr.Internal("failed to build profile request", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("yandex user info request failed", "error", err)
		return nil, apperr.BadRequest("failed to get user info from yandex")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("yandex user info error", "status", resp.StatusCode)
		return nil, apperr.BadRequest("failed to get user info from yandex")
	}

	var profile YandexProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Error("yandex user info decode failed", "error", err)
		return nil, apperr.BadRequest("failed to get user info from yandex")
	}
	if profile.ID == "" || profile.Login == "" {
		return nil, apperr.BadRequest("yandex profile is incomplete")
	}

	return &profile, nil
}
