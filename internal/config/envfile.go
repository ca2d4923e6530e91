package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const passwordEnvKey = "TELEGRAM_BOT_PASSWORD"

// EnvFile writes rotated secrets back to the dotenv file so they survive a
// process restart. Existing keys in the file are preserved.
type EnvFile struct {
	path string
}

func NewEnvFile(path string) *EnvFile {
	if path == "" {
		path = ".env"
	}
	return &EnvFile{path: path}
}

func (f *EnvFile) StoreSecret(secret string) error {
	env, err := godotenv.Read(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", f.path, err)
		}
		env = map[string]string{}
	}
	env[passwordEnvKey] = secret
	if err := godotenv.Write(env, f.path); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
