package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"
)

// ShowInput is a show as submitted by a client, every field unparsed.
type ShowInput struct {
	ShowID             string
	Date               string
	VenueName          string
	City               string
	DealType           string
	ArtistGuarantee    string
	ArtistPercentOfNet string
}

type RevenueInput struct {
	ShowID               string
	TicketGross          string
	TicketTaxPercent     string
	FacilityFeePercent   string
	CreditCardFeePercent string
	SponsorshipRevenue   string
	ParkingRevenue       string
	ConcessionsRevenue   string
}

type ExpenseInput struct {
	ShowID        string
	Category      string
	Description   string
	Amount        string
	Vendor        string
	InvoiceNumber string
}

// RecordService normalizes raw input into records and stores them.
type RecordService struct {
	store    ports.Store
	notifier Notifier
}

func NewRecordService(store ports.Store, notifier Notifier) *RecordService {
	return &RecordService{store: store, notifier: notifier}
}

// CreateShow stores a new show in Draft status.
func (s *RecordService) CreateShow(ctx context.Context, in ShowInput) (core.Show, error) {
	v := &core.ValidationError{}
	show := core.Show{
		ShowID:   strings.TrimSpace(in.ShowID),
		Venue:    strings.TrimSpace(in.VenueName),
		City:     strings.TrimSpace(in.City),
		DealType: core.DealType(strings.ToUpper(strings.TrimSpace(in.DealType))),
		Status:   core.StatusDraft,
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		v.Add("date", err)
	}
	show.Date = date
	show.ArtistGuarantee = parseField(v, "artist_guarantee", in.ArtistGuarantee, core.ParseAmount)
	show.ArtistPercentOfNet = parseField(v, "artist_percent_of_net", in.ArtistPercentOfNet, core.ParsePercent)
	v.Merge(show.Validate())
	if err := v.OrNil(); err != nil {
		return core.Show{}, err
	}

	created, err := s.store.CreateShow(ctx, show)
	if err != nil {
		return core.Show{}, fmt.Errorf("create show: %w", err)
	}
	notify(ctx, s.notifier, ports.TableShows, created.ID)
	return created, nil
}

func (s *RecordService) ListShows(ctx context.Context) ([]core.Show, error) {
	shows, err := s.store.ListShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

// GetShow finds a show by record id.
func (s *RecordService) GetShow(ctx context.Context, id string) (core.Show, error) {
	show, err := s.store.GetShow(ctx, id)
	if err != nil {
		return core.Show{}, fmt.Errorf("get show: %w", err)
	}
	return show, nil
}

func (s *RecordService) CreateRevenue(ctx context.Context, in RevenueInput) (core.Revenue, error) {
	v := &core.ValidationError{}
	rev := core.Revenue{
		ShowID:               strings.TrimSpace(in.ShowID),
		TicketGross:          parseField(v, "ticket_gross", in.TicketGross, core.ParseAmount),
		TicketTaxPercent:     parseField(v, "ticket_tax_percent", in.TicketTaxPercent, core.ParsePercent),
		FacilityFeePercent:   parseField(v, "facility_fee_percent", in.FacilityFeePercent, core.ParsePercent),
		CreditCardFeePercent: parseField(v, "credit_card_fee_percent", in.CreditCardFeePercent, core.ParsePercent),
		SponsorshipRevenue:   parseField(v, "sponsorship_revenue", in.SponsorshipRevenue, core.ParseAmount),
		ParkingRevenue:       parseField(v, "parking_revenue", in.ParkingRevenue, core.ParseAmount),
		ConcessionsRevenue:   parseField(v, "concessions_revenue", in.ConcessionsRevenue, core.ParseAmount),
	}
	v.Merge(rev.Validate())
	if err := v.OrNil(); err != nil {
		return core.Revenue{}, err
	}

	created, err := s.store.CreateRevenue(ctx, rev)
	if err != nil {
		return core.Revenue{}, fmt.Errorf("create revenue: %w", err)
	}
	notify(ctx, s.notifier, ports.TableRevenue, created.ID)
	return created, nil
}

func (s *RecordService) ListRevenue(ctx context.Context, showID string) ([]core.Revenue, error) {
	revs, err := s.store.ListRevenue(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("list revenue: %w", err)
	}
	return revs, nil
}

// CreateExpense stores an expense. An empty category is booked as Other.
func (s *RecordService) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	v := &core.ValidationError{}
	exp := core.Expense{
		ShowID:        strings.TrimSpace(in.ShowID),
		Category:      normalizeCategory(in.Category),
		Description:   strings.TrimSpace(in.Description),
		Amount:        parseField(v, "amount", in.Amount, core.ParseAmount),
		Vendor:        strings.TrimSpace(in.Vendor),
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
	}
	v.Merge(exp.Validate())
	if err := v.OrNil(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, exp)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	notify(ctx, s.notifier, ports.TableExpenses, created.ID)
	return created, nil
}

func (s *RecordService) ListExpenses(ctx context.Context, showID string) ([]core.Expense, error) {
	exps, err := s.store.ListExpenses(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return exps, nil
}

// Close releases the store and notifier when they hold connections.
func (s *RecordService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close record service: %w", errors.Join(errs...))
	}
	return nil
}

func parseField(v *core.ValidationError, field, raw string, parse func(string) (float64, error)) float64 {
	f, err := parse(raw)
	if err != nil {
		v.Add(field, err)
		return 0
	}
	return f
}

// normalizeCategory matches categories case-insensitively.
func normalizeCategory(raw string) core.ExpenseCategory {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.CategoryOther
	}
	for _, c := range core.ExpenseCategories() {
		if strings.EqualFold(raw, string(c)) {
			return c
		}
	}
	return core.ExpenseCategory(raw)
}
