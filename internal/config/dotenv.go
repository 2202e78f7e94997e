package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory if one exists.
// Values already present in the environment win, so exported variables
// always override file contents. A missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load()
}
