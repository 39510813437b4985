package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"

	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Tabs names the sheet that backs each table.
type Tabs struct {
	Shows       string
	Revenue     string
	Expenses    string
	Settlements string
}

// DefaultTabs mirrors the table names used by the settlement workbook.
func DefaultTabs() Tabs {
	return Tabs{
		Shows:       "Shows",
		Revenue:     "Revenue",
		Expenses:    "Expenses",
		Settlements: "Settlements",
	}
}

// Config holds what is needed to reach the workbook.
type Config struct {
	SpreadsheetID string
	Tabs          Tabs
	// Service account credentials, inline JSON takes precedence over the file.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          Tabs

	mu         sync.Mutex
	headerDone map[string]bool
}

// Ensure interface conformance
var (
	_ ports.Store        = (*Client)(nil)
	_ ports.RecordMirror = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Tabs), nil
}

// NewWithService wraps an existing service. Empty tab names fall back to
// DefaultTabs.
func NewWithService(svc *gsheet.Service, spreadsheetID string, tabs Tabs) *Client {
	def := DefaultTabs()
	if tabs.Shows == "" {
		tabs.Shows = def.Shows
	}
	if tabs.Revenue == "" {
		tabs.Revenue = def.Revenue
	}
	if tabs.Expenses == "" {
		tabs.Expenses = def.Expenses
	}
	if tabs.Settlements == "" {
		tabs.Settlements = def.Settlements
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabs:          tabs,
		headerDone:    make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return svc, nil
}

func (c *Client) CreateShow(ctx context.Context, s core.Show) (core.Show, error) {
	if err := s.Validate(); err != nil {
		return core.Show{}, err
	}
	s.ID = ports.NewRecordID()
	if err := c.MirrorShow(ctx, s); err != nil {
		return core.Show{}, err
	}
	return s, nil
}

func (c *Client) ListShows(ctx context.Context) ([]core.Show, error) {
	values, err := c.readTable(ctx, c.tabs.Shows)
	if err != nil {
		return nil, err
	}
	return parseShows(values)
}

func (c *Client) GetShow(ctx context.Context, id string) (core.Show, error) {
	shows, err := c.ListShows(ctx)
	if err != nil {
		return core.Show{}, err
	}
	for _, s := range shows {
		if s.ID == id {
			return s, nil
		}
	}
	return core.Show{}, fmt.Errorf("show %s: %w", id, core.ErrNotFound)
}

func (c *Client) FindShows(ctx context.Context, showID string) ([]core.Show, error) {
	shows, err := c.ListShows(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Show
	for _, s := range shows {
		if s.ShowID == showID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) CreateRevenue(ctx context.Context, r core.Revenue) (core.Revenue, error) {
	if err := r.Validate(); err != nil {
		return core.Revenue{}, err
	}
	r.ID = ports.NewRecordID()
	if err := c.MirrorRevenue(ctx, r); err != nil {
		return core.Revenue{}, err
	}
	return r, nil
}

func (c *Client) ListRevenue(ctx context.Context, showID string) ([]core.Revenue, error) {
	values, err := c.readTable(ctx, c.tabs.Revenue)
	if err != nil {
		return nil, err
	}
	all, err := parseRevenue(values)
	if err != nil {
		return nil, err
	}
	var out []core.Revenue
	for _, r := range all {
		if r.ShowID == showID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = ports.NewRecordID()
	if err := c.MirrorExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (c *Client) ListExpenses(ctx context.Context, showID string) ([]core.Expense, error) {
	values, err := c.readTable(ctx, c.tabs.Expenses)
	if err != nil {
		return nil, err
	}
	all, err := parseExpenses(values)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, e := range all {
		if e.ShowID == showID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Client) PostSettlement(ctx context.Context, s core.Settlement, postedAt time.Time) (core.PostedSettlement, error) {
	posted := core.PostedSettlement{
		Settlement:     s,
		ID:             ports.NewRecordID(),
		SettlementDate: postedAt.UTC(),
	}
	if err := c.MirrorSettlement(ctx, posted); err != nil {
		return core.PostedSettlement{}, err
	}
	return posted, nil
}

func (c *Client) ListSettlements(ctx context.Context) ([]core.PostedSettlement, error) {
	values, err := c.readTable(ctx, c.tabs.Settlements)
	if err != nil {
		return nil, err
	}
	return parseSettlements(values)
}

func (c *Client) MirrorShow(ctx context.Context, s core.Show) error {
	return c.appendRow(ctx, c.tabs.Shows, showHeaders, showRow(s))
}

func (c *Client) MirrorRevenue(ctx context.Context, r core.Revenue) error {
	return c.appendRow(ctx, c.tabs.Revenue, revenueHeaders, revenueRow(r))
}

func (c *Client) MirrorExpense(ctx context.Context, e core.Expense) error {
	return c.appendRow(ctx, c.tabs.Expenses, expenseHeaders, expenseRow(e))
}

func (c *Client) MirrorSettlement(ctx context.Context, s core.PostedSettlement) error {
	return c.appendRow(ctx, c.tabs.Settlements, settlementHeaders, settlementRow(s))
}

// appendRow writes one record below the last used row of tab, creating the
// header row first when the tab is still empty.
func (c *Client) appendRow(ctx context.Context, tab string, headers []string, row []any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureHeader(ctx, tab, headers); err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", tab, err)
	}
	if resp.Updates != nil {
		slog.DebugContext(ctx, "Row appended", "sheet", tab, "range", resp.Updates.UpdatedRange)
	}
	return nil
}

func (c *Client) ensureHeader(ctx context.Context, tab string, headers []string) error {
	c.mu.Lock()
	done := c.headerDone[tab]
	c.mu.Unlock()
	if done {
		return nil
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1(tab, "1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", tab, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		row := make([]any, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		vr := &gsheet.ValueRange{Values: [][]any{row}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(tab, "A1"), vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header of %s: %w", tab, err)
		}
		slog.InfoContext(ctx, "Header row created", "sheet", tab)
	}

	c.mu.Lock()
	c.headerDone[tab] = true
	c.mu.Unlock()
	return nil
}

// readTable returns every row of tab including the header row.
func (c *Client) readTable(ctx context.Context, tab string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := a1(tab, "A:Z")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// a1 builds a quoted A1 range so tab names with spaces work.
func a1(tab, rng string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + rng
}
