package common

import (
	"fmt"
	"os"

	"custody-ledger-go/internal/models"

	"gopkg.in/yaml.v2"
)

type seedFile struct {
	Users []models.SeedUser `yaml:"users"`
}

// LoadSeedUsers reads the users.yaml seed file consumed by cmd/setup.
func LoadSeedUsers(path string) ([]models.SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read seed file %s: %w", path, err)
	}

	var parsed seedFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse seed file %s: %w", path, err)
	}

	for i, u := range parsed.Users {
		if u.Email == "" {
			return nil, fmt.Errorf("seed user %d has no email", i)
		}
		if u.Password == "" {
			return nil, fmt.Errorf("seed user %s has no password", u.Email)
		}
	}

	return parsed.Users, nil
}
