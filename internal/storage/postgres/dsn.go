package postgres

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/game-schedule/schedule-backend/config"
)

// DSN combines the remote endpoint with the access key. URL-style endpoints
// get the key as their password; keyword/value endpoints get a password pair.
func DSN(cfg *config.RemoteConfig) (string, error) {
	if cfg.URL == "" || cfg.AccessKey == "" {
		return "", fmt.Errorf("remote endpoint and access key are required")
	}

	if strings.HasPrefix(cfg.URL, "postgres://") || strings.HasPrefix(cfg.URL, "postgresql://") {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("invalid remote endpoint: %w", err)
		}
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, cfg.AccessKey)
		if u.Query().Get("sslmode") == "" {
			q := u.Query()
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	return fmt.Sprintf("%s password='%s'", cfg.URL, strings.ReplaceAll(cfg.AccessKey, "'", `\'`)), nil
}
