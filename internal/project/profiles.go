package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// DefaultProfilesPath returns ~/.pcbdrill/profiles.json.
func DefaultProfilesPath() string {
	return filepath.Join(model.DefaultConfigDir(), "profiles.json")
}

// SaveCustomProfiles saves custom post-processor profiles to a JSON file.
func SaveCustomProfiles(path string, profiles []model.GCodeProfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	for i := range profiles {
		profiles[i].IsBuiltIn = false
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCustomProfiles loads custom profiles from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadCustomProfiles(path string) ([]model.GCodeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.GCodeProfile{}, nil
		}
		return nil, err
	}

	var profiles []model.GCodeProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	for i := range profiles {
		profiles[i].IsBuiltIn = false
		if profiles[i].Name == "" {
			return nil, fmt.Errorf("profile %d in %s has no name", i+1, path)
		}
	}
	return profiles, nil
}

// ResolveProfile returns the named profile, custom ones first. Unknown names
// give the Generic profile and found=false.
func ResolveProfile(path, name string) (profile model.GCodeProfile, found bool, err error) {
	custom, err := LoadCustomProfiles(path)
	if err != nil {
		return model.GetProfile(name), false, err
	}
	for _, p := range custom {
		if p.Name == name {
			return p, true, nil
		}
	}
	for _, n := range model.GetProfileNames() {
		if n == name {
			return model.GetProfile(name), true, nil
		}
	}
	return model.GetProfile(name), false, nil
}
