package config

import "github.com/ilyakaznacheev/cleanenv"

// ApplyEnv overrides fields tagged env from the environment. Unset variables
// leave the current value alone.
func ApplyEnv(cfg *Config) error {
	return cleanenv.ReadEnv(cfg)
}
