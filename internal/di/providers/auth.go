package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
)

// SessionKey wraps the session token key bytes.
type SessionKey []byte

// ProvideSessionKey loads or generates the session token key.
func ProvideSessionKey(i do.Injector) (SessionKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.SessionKeyPath())
	if err != nil {
		return nil, err
	}
	cfg.Auth.SessionKey = key

	log.Info("Session key loaded", "session_duration", cfg.Auth.SessionDuration)
	return SessionKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[SessionKey](i)

	return auth.NewTokenService([]byte(key), cfg.Auth.SessionDuration)
}
