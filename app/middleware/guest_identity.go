package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	GuestCookieName   = "cpiu_guest_id"
	guestTokenPrefix  = "guest_"
	guestCookieMaxAge = 30 * 24 * time.Hour
)

var guestTokenPattern = regexp.MustCompile(`^guest_[a-f0-9]{32}$`)

// GuestIdentity gives every anonymous shopper a stable token kept in a cookie.
// Logged-in shoppers are left alone.
func GuestIdentity(secureCookie bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := GetCustomerIDFromContext(c); ok {
			return c.Next()
		}

		token := c.Cookies(GuestCookieName)
		if !guestTokenPattern.MatchString(token) {
			token = NewGuestToken()
			c.Cookie(&fiber.Cookie{
				Name:     GuestCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(guestCookieMaxAge.Seconds()),
				Secure:   secureCookie,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals("guest_token", token)
		return c.Next()
	}
}

// NewGuestToken returns guest_ followed by 32 hex characters
func NewGuestToken() string {
	return guestTokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetGuestTokenFromContext extracts the guest token set by GuestIdentity
func GetGuestTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals("guest_token").(string)
	return token, ok && token != ""
}
