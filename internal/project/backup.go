package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
)

const backupVersion = "1.0.0"

// BackupData bundles everything an operator configures, so a machine setup
// can be moved to another workstation in one file.
type BackupData struct {
	Version   string               `json:"version"`
	CreatedAt string               `json:"created_at"`
	Settings  FileConfig           `json:"settings"`
	Racks     rack.Registry        `json:"racks"`
	Profiles  []model.GCodeProfile `json:"profiles,omitempty"`
}

// ExportAllData writes settings, rack registry and custom profiles to path.
func ExportAllData(exportPath string, settings model.Settings, racks rack.Registry, profiles []model.GCodeProfile) error {
	backup := BackupData{
		Version:   backupVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Settings:  ToConfig(settings),
		Racks:     racks,
		Profiles:  profiles,
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ImportAllData reads a backup file. The caller decides where to apply it.
func ImportAllData(importPath string) (BackupData, error) {
	data, err := os.ReadFile(importPath)
	if err != nil {
		return BackupData{}, fmt.Errorf("failed to read backup file: %w", err)
	}
	var backup BackupData
	if err := json.Unmarshal(data, &backup); err != nil {
		return BackupData{}, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if backup.Version == "" {
		return BackupData{}, fmt.Errorf("invalid backup file: missing version field")
	}
	if backup.Racks.Racks == nil {
		backup.Racks.Racks = map[string][]rack.ToolDef{}
	}
	return backup, nil
}

// RestoreAllData writes a backup into the settings, rack and profile files.
func RestoreAllData(backup BackupData, settingsPath, rackPath, profilesPath string) error {
	settings := backup.Settings.Apply(model.DefaultSettings())
	if err := Validate(settings); err != nil {
		return fmt.Errorf("backup settings are invalid: %w", err)
	}
	if err := SaveSettings(settingsPath, settings); err != nil {
		return err
	}
	if err := rack.WriteRegistry(rackPath, backup.Racks); err != nil {
		return err
	}
	if len(backup.Profiles) > 0 {
		if err := SaveCustomProfiles(profilesPath, backup.Profiles); err != nil {
			return fmt.Errorf("failed to write profiles: %w", err)
		}
	}
	return nil
}
