package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries everything the server needs at startup. Values come from
// defaults, an optional .env file, and ACTIVITYHUB_* environment variables,
// in increasing priority.
type Config struct {
	Addr   string
	DBPath string

	SessionHashKey  string
	SessionBlockKey string
	CSRFKey         string

	BcryptCost int
	PageSize   int

	// Dev disables the Secure flag on cookies so local HTTP works.
	Dev bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "activityhub.db")
	v.SetDefault("session_hash_key", "dev-only-hash-key-change-in-prod!")
	v.SetDefault("session_block_key", "dev-only-block-key-32-bytes-long")
	v.SetDefault("csrf_key", "dev-only-csrf-key-32-bytes-long!")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("page_size", 9)
	v.SetDefault("dev", true)

	// Load .env if present; environment still wins over it.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("ACTIVITYHUB")
	v.AutomaticEnv()

	return &Config{
		Addr:            v.GetString("addr"),
		DBPath:          v.GetString("db_path"),
		SessionHashKey:  v.GetString("session_hash_key"),
		SessionBlockKey: v.GetString("session_block_key"),
		CSRFKey:         v.GetString("csrf_key"),
		BcryptCost:      v.GetInt("bcrypt_cost"),
		PageSize:        v.GetInt("page_size"),
		Dev:             v.GetBool("dev"),
	}, nil
}
