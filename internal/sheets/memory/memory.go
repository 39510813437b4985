package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"
)

// Store keeps every table in process memory, in insertion order.
type Store struct {
	mu          sync.Mutex
	shows       []core.Show
	revenue     []core.Revenue
	expenses    []core.Expense
	settlements []core.PostedSettlement
}

var (
	_ ports.Store        = (*Store)(nil)
	_ ports.RecordMirror = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// NewFromFiles seeds the store from shows.json, revenue.json and
// expenses.json under base. Missing files are skipped; records without an id
// get one assigned.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	if err := readSeed(filepath.Join(base, "shows.json"), &s.shows); err != nil {
		return nil, err
	}
	if err := readSeed(filepath.Join(base, "revenue.json"), &s.revenue); err != nil {
		return nil, err
	}
	if err := readSeed(filepath.Join(base, "expenses.json"), &s.expenses); err != nil {
		return nil, err
	}
	for i := range s.shows {
		if s.shows[i].ID == "" {
			s.shows[i].ID = ports.NewRecordID()
		}
	}
	for i := range s.revenue {
		if s.revenue[i].ID == "" {
			s.revenue[i].ID = ports.NewRecordID()
		}
	}
	for i := range s.expenses {
		if s.expenses[i].ID == "" {
			s.expenses[i].ID = ports.NewRecordID()
		}
	}
	return s, nil
}

func readSeed(path string, into any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}
	return nil
}

func (s *Store) CreateShow(_ context.Context, show core.Show) (core.Show, error) {
	if err := show.Validate(); err != nil {
		return core.Show{}, err
	}
	show.ID = ports.NewRecordID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows = append(s.shows, show)
	return show, nil
}

func (s *Store) ListShows(_ context.Context) ([]core.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Show(nil), s.shows...), nil
}

func (s *Store) GetShow(_ context.Context, id string) (core.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, show := range s.shows {
		if show.ID == id {
			return show, nil
		}
	}
	return core.Show{}, fmt.Errorf("show %s: %w", id, core.ErrNotFound)
}

func (s *Store) FindShows(_ context.Context, showID string) ([]core.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Show
	for _, show := range s.shows {
		if show.ShowID == showID {
			out = append(out, show)
		}
	}
	return out, nil
}

func (s *Store) CreateRevenue(_ context.Context, r core.Revenue) (core.Revenue, error) {
	if err := r.Validate(); err != nil {
		return core.Revenue{}, err
	}
	r.ID = ports.NewRecordID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue = append(s.revenue, r)
	return r, nil
}

func (s *Store) ListRevenue(_ context.Context, showID string) ([]core.Revenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Revenue
	for _, r := range s.revenue {
		if r.ShowID == showID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = ports.NewRecordID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, showID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.ShowID == showID {
			out = append(out, e)
		}
	}
	return out, nil
}

// PostSettlement appends the settlement as given. Several settlements for the
// same show are kept side by side.
func (s *Store) PostSettlement(_ context.Context, st core.Settlement, postedAt time.Time) (core.PostedSettlement, error) {
	posted := core.PostedSettlement{
		Settlement:     st,
		ID:             ports.NewRecordID(),
		SettlementDate: postedAt.UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements = append(s.settlements, posted)
	return posted, nil
}

func (s *Store) ListSettlements(_ context.Context) ([]core.PostedSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PostedSettlement(nil), s.settlements...), nil
}

func (s *Store) MirrorShow(_ context.Context, show core.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows = append(s.shows, show)
	return nil
}

func (s *Store) MirrorRevenue(_ context.Context, r core.Revenue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue = append(s.revenue, r)
	return nil
}

func (s *Store) MirrorExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *Store) MirrorSettlement(_ context.Context, st core.PostedSettlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements = append(s.settlements, st)
	return nil
}
