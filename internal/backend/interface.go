package backend

import (
	"context"

	"tourledger/internal/services"
	ports "tourledger/internal/sheets"
)

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// Result is a ready store plus the notifier to announce new records on.
// Notifier is nil unless the backend replicates records.
type Result struct {
	Type     BackendType
	Store    ports.Store
	Notifier services.Notifier
	Cleanup  CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ShowsTab                 string
	RevenueTab               string
	ExpensesTab              string
	SettlementsTab           string

	// Memory backend specific, empty means no seed data
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
