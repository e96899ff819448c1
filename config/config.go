package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "telegram-haggle-bot"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory, then from a .env in the working directory. Errors are
// ignored since neither file has to exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load()
}

// Required returns the names of required environment variables that are not
// set.
func Required() []string {
	var missing []string
	for _, name := range []string{"BOT_TOKEN", "APPRAISAL_API_URL", "HAGGLE_TOKEN_KEY"} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
