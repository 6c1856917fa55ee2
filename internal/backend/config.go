package backend

import (
	"fmt"

	"smartexpense/internal/config"
	"smartexpense/internal/core"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                  backendType,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
		SeedDemo:              appConfig.SeedDemoData,
		DemoUser:              core.UserID(appConfig.DemoUserID),
		SeedMonth:             core.Today(),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleCredentialsFile == "" {
			return fmt.Errorf("Google credentials file is required for sheets backend")
		}
	case MemoryBackend:
	}

	if c.SeedDemo && c.DemoUser == "" {
		return fmt.Errorf("demo user is required when seeding demo data")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
