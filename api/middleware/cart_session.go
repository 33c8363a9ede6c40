package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

const cartSessionHeader = "X-Cart-Session"

const cartCookieMaxAge = 60 * 60 * 24 * 365

// CartSession resolves the shopper's cart session from the cookie or the
// X-Cart-Session header and mints one when neither is present.
func CartSession(cfg config.CartConfig, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = "vi_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := strings.TrimSpace(r.Header.Get(cartSessionHeader))
			if session == "" {
				if c, err := r.Cookie(name); err == nil {
					session = strings.TrimSpace(c.Value)
				}
			}
			minted := !validSession(session)
			if minted {
				session = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    session,
					Path:     "/",
					MaxAge:   cartCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(cartSessionHeader, session)

			ctx := WithCartSession(r.Context(), session)
			if minted {
				ctx = withCartSessionMinted(ctx)
			}
			if logg != nil {
				ctx = logg.WithSessionID(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSession(session string) bool {
	if session == "" {
		return false
	}
	_, err := uuid.Parse(session)
	return err == nil
}
