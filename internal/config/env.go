package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvHierarchy loads credentials from up to three .env files, in the
// order described by spec §6.4: domain-local, then core, then root. Later
// files win on key collisions. A missing file at any layer is ignored.
//
// domainDir may be empty when the recipe declares no domain.
func LoadEnvHierarchy(domainDir, coreDir, rootDir string) error {
	layers := []string{}
	if domainDir != "" {
		layers = append(layers, filepath.Join(domainDir, ".env"))
	}
	if coreDir != "" {
		layers = append(layers, filepath.Join(coreDir, ".env"))
	}
	if rootDir != "" {
		layers = append(layers, filepath.Join(rootDir, ".env"))
	}

	for _, path := range layers {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vars {
			os.Setenv(k, v)
		}
	}
	return nil
}

// RequireEnv fetches a required environment variable, failing loudly (per
// §6.4 and §7's Configuration error kind) only at the point of use rather
// than at startup.
func RequireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", &MissingCredentialError{Name: name}
	}
	return v, nil
}

// MissingCredentialError reports a required credential that was never set.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return "missing required credential: " + e.Name
}
