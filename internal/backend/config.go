package backend

import (
	"errors"
	"fmt"

	"tourledger/internal/config"
	"tourledger/internal/sheets/google"
)

func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		ShowsTab:                 appConfig.SheetTabs.Shows,
		RevenueTab:               appConfig.SheetTabs.Revenue,
		ExpensesTab:              appConfig.SheetTabs.Expenses,
		SettlementsTab:           appConfig.SheetTabs.Settlements,

		DataDirectory: appConfig.DataDir,
	}, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return errors.New("service account JSON or file is required for sheets backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypes())
	}
	return nil
}

// SheetsConfig is the hosted sheet portion of c, shared with the sync worker.
func (c Config) SheetsConfig() google.Config {
	return google.Config{
		SpreadsheetID: c.GoogleSpreadsheetID,
		Tabs: google.Tabs{
			Shows:       c.ShowsTab,
			Revenue:     c.RevenueTab,
			Expenses:    c.ExpensesTab,
			Settlements: c.SettlementsTab,
		},
		CredentialsJSON: c.GoogleServiceAccountJSON,
		CredentialsFile: c.GoogleServiceAccountFile,
	}
}

func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}
