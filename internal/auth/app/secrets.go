package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixelgrove/lensgate/pkg/cryptox"
	"github.com/pixelgrove/lensgate/pkg/csrfx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
)

// secrets holds the three HMAC keys the service signs with. The access and
// refresh keys must be disjoint so that one token class can never validate
// as the other; the CSRF key is separate again so session hashes leak
// nothing about the signing keys.
type secrets struct {
	access  []byte
	refresh []byte
	csrf    []byte
}

// loadSecrets resolves the signing keys from config.
//
// In dev, missing keys are generated fresh on every start so the service
// comes up with zero configuration; everyone is logged out on restart. Any
// other environment refuses to boot without explicit keys.
func loadSecrets(cfg Config, logger *slog.Logger) (secrets, error) {
	s := secrets{
		access:  []byte(cfg.AccessSecret),
		refresh: []byte(cfg.RefreshSecret),
		csrf:    []byte(cfg.CSRFSecret),
	}

	missing := len(s.access) == 0 || len(s.refresh) == 0 || len(s.csrf) == 0
	if missing {
		if cfg.Env != "dev" {
			return secrets{}, errors.New(
				"AUTH_ACCESS_SECRET, AUTH_REFRESH_SECRET and AUTH_CSRF_SECRET are required outside dev")
		}

		if len(s.access) == 0 {
			s.access = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		}
		if len(s.refresh) == 0 {
			s.refresh = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		}
		if len(s.csrf) == 0 {
			s.csrf = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		}

		logger.Warn("generated ephemeral signing secrets; all sessions are invalidated on restart")
	}

	if len(s.access) < jwtx.MinSecretLength {
		return secrets{}, fmt.Errorf("AUTH_ACCESS_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	}
	if len(s.refresh) < jwtx.MinSecretLength {
		return secrets{}, fmt.Errorf("AUTH_REFRESH_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	}
	if len(s.csrf) < csrfx.MinSecretLength {
		return secrets{}, fmt.Errorf("AUTH_CSRF_SECRET must be at least %d bytes", csrfx.MinSecretLength)
	}

	return s, nil
}
