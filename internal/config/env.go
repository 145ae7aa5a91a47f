package config

import (
	"fmt"
	"strings"
)

// Validate checks that the keys required by the selected drivers are set.
func (c Config) Validate() error {
	missing := make([]string, 0)
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("JWT_SECRET", c.JWTSecret)
	switch c.StoreDriver {
	case "mongo":
		require("MONGO_URI", c.MongoURI)
		require("DB_NAME", c.DBName)
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be mongo or memory, got %q", c.StoreDriver)
	}
	if c.SMTPHost != "" {
		require("SMTP_USER", c.SMTPUser)
		require("SMTP_PASSWORD", c.SMTPPassword)
	}

	if len(missing) > 0 {
		return fmt.Errorf("ENV %s is required", strings.Join(missing, ", "))
	}
	return nil
}
