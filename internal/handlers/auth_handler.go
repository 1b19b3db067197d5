package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/dto"
	"github.com/pvolkov/filecrate/internal/services"
	"github.com/pvolkov/filecrate/internal/token"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	authService   *services.AuthService
	yandexService *services.YandexService
}

func NewAuthHandler(authService *services.AuthService, yandexService *services.YandexService) *AuthHandler {
	return &AuthHandler{authService: authService, yandexService: yandexService}
}

// Refresh exchanges a refresh token for a brand-new pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return apperr.Unauthorized("invalid token")
	}

	pair, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse(pair))
}

// SuperLogin authenticates the seeded superuser with login and password.
func (h *AuthHandler) SuperLogin(c *fiber.Ctx) error {
	var req dto.SuperLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	pair, err := h.authService.SuperLogin(req.Login, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse(pair))
}

// YandexLogin starts the OAuth flow: pin the state in a short-lived cookie
// and redirect the browser to the provider.
func (h *AuthHandler) YandexLogin(c *fiber.Ctx) error {
	url, state := h.yandexService.AuthURL()

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(url, fiber.StatusFound)
}

// YandexCallback finishes the OAuth flow: validate state, exchange the code,
// resolve the identity and hand back a token pair (also set as cookies).
func (h *AuthHandler) YandexCallback(c *fiber.Ctx) error {
	if provErr := c.Query("error"); provErr != "" {
		return apperr.BadRequest("yandex error: " + provErr)
	}

	profile, err := h.yandexService.HandleCallback(
		c.Context(),
		c.Query("code"),
		c.Query("state"),
		c.Cookies(stateCookie),
	)
	if err != nil {
		return err
	}

	user, err := h.authService.ResolveProfile(profile)
	if err != nil {
		return err
	}

	pair, err := h.authService.TokenPair(user)
	if err != nil {
		return err
	}

	c.ClearCookie(stateCookie)
	setTokenCookies(c, pair)
	return c.JSON(dto.TokenResponse(pair))
}

func setTokenCookies(c *fiber.Ctx, pair token.Pair) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
