package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tourledger/internal/core"
)

// Column headers written to row 1 of each tab. Reads locate columns by
// header name so reordered columns still parse.
var (
	showHeaders = []string{
		"ID", "Show ID", "Date", "Venue Name", "City", "Deal Type",
		"Artist Guarantee", "Artist Percent of Net", "Status",
	}
	revenueHeaders = []string{
		"ID", "Show ID", "Ticket Gross", "Ticket Tax %", "Facility Fee %",
		"Credit Card Fee %", "Sponsorship Revenue", "Parking Revenue", "Concessions Revenue",
	}
	expenseHeaders = []string{
		"ID", "Show ID", "Category", "Description", "Amount", "Vendor", "Invoice Number",
	}
	settlementHeaders = []string{
		"ID", "Show ID", "Adjusted Gross", "Total Expenses", "NOI",
		"Promoter Profit %", "Promoter Profit", "NSP", "Artist %", "Artist Share",
		"Artist Guarantee", "Artist Overage", "Recoupment Sweep %", "Recoupment Sweep",
		"Cash Due to Artist", "Settlement Date",
	}
)

func showRow(s core.Show) []any {
	return []any{
		s.ID, s.ShowID, s.Date.String(), s.Venue, s.City, string(s.DealType),
		s.ArtistGuarantee, s.ArtistPercentOfNet, s.Status,
	}
}

func revenueRow(r core.Revenue) []any {
	return []any{
		r.ID, r.ShowID, r.TicketGross, r.TicketTaxPercent, r.FacilityFeePercent,
		r.CreditCardFeePercent, r.SponsorshipRevenue, r.ParkingRevenue, r.ConcessionsRevenue,
	}
}

func expenseRow(e core.Expense) []any {
	return []any{
		e.ID, e.ShowID, string(e.Category), e.Description, e.Amount, e.Vendor, e.InvoiceNumber,
	}
}

func settlementRow(p core.PostedSettlement) []any {
	s := p.Settlement
	return []any{
		p.ID, s.ShowID, s.AdjustedGross, s.TotalExpenses, s.NOI,
		s.PromoterProfitPercent, s.PromoterProfit, s.NSP, s.ArtistPercent, s.ArtistShare,
		s.ArtistGuarantee, s.ArtistOverage, s.RecoupmentSweepPercent, s.RecoupmentSweep,
		s.CashDueToArtist, p.SettlementDate.UTC().Format(time.RFC3339Nano),
	}
}

func parseShows(values [][]any) ([]core.Show, error) {
	rows, err := tableRows(values)
	if err != nil {
		return nil, err
	}
	out := make([]core.Show, 0, len(rows))
	for _, r := range rows {
		date, err := r.date("Date")
		if err != nil {
			return nil, err
		}
		s := core.Show{
			ID:       r.str("ID"),
			ShowID:   r.str("Show ID"),
			Date:     date,
			Venue:    r.str("Venue Name"),
			City:     r.str("City"),
			DealType: core.DealType(r.str("Deal Type")),
			Status:   r.str("Status"),
		}
		if s.ArtistGuarantee, err = r.num("Artist Guarantee"); err != nil {
			return nil, err
		}
		if s.ArtistPercentOfNet, err = r.num("Artist Percent of Net"); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseRevenue(values [][]any) ([]core.Revenue, error) {
	rows, err := tableRows(values)
	if err != nil {
		return nil, err
	}
	out := make([]core.Revenue, 0, len(rows))
	for _, r := range rows {
		rev := core.Revenue{ID: r.str("ID"), ShowID: r.str("Show ID")}
		fields := []struct {
			header string
			dst    *float64
		}{
			{"Ticket Gross", &rev.TicketGross},
			{"Ticket Tax %", &rev.TicketTaxPercent},
			{"Facility Fee %", &rev.FacilityFeePercent},
			{"Credit Card Fee %", &rev.CreditCardFeePercent},
			{"Sponsorship Revenue", &rev.SponsorshipRevenue},
			{"Parking Revenue", &rev.ParkingRevenue},
			{"Concessions Revenue", &rev.ConcessionsRevenue},
		}
		for _, f := range fields {
			if *f.dst, err = r.num(f.header); err != nil {
				return nil, err
			}
		}
		out = append(out, rev)
	}
	return out, nil
}

func parseExpenses(values [][]any) ([]core.Expense, error) {
	rows, err := tableRows(values)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		amount, err := r.num("Amount")
		if err != nil {
			return nil, err
		}
		out = append(out, core.Expense{
			ID:            r.str("ID"),
			ShowID:        r.str("Show ID"),
			Category:      core.ExpenseCategory(r.str("Category")),
			Description:   r.str("Description"),
			Amount:        amount,
			Vendor:        r.str("Vendor"),
			InvoiceNumber: r.str("Invoice Number"),
		})
	}
	return out, nil
}

func parseSettlements(values [][]any) ([]core.PostedSettlement, error) {
	rows, err := tableRows(values)
	if err != nil {
		return nil, err
	}
	out := make([]core.PostedSettlement, 0, len(rows))
	for _, r := range rows {
		p := core.PostedSettlement{ID: r.str("ID")}
		p.ShowID = r.str("Show ID")
		fields := []struct {
			header string
			dst    *float64
		}{
			{"Adjusted Gross", &p.AdjustedGross},
			{"Total Expenses", &p.TotalExpenses},
			{"NOI", &p.NOI},
			{"Promoter Profit %", &p.PromoterProfitPercent},
			{"Promoter Profit", &p.PromoterProfit},
			{"NSP", &p.NSP},
			{"Artist %", &p.ArtistPercent},
			{"Artist Share", &p.ArtistShare},
			{"Artist Guarantee", &p.ArtistGuarantee},
			{"Artist Overage", &p.ArtistOverage},
			{"Recoupment Sweep %", &p.RecoupmentSweepPercent},
			{"Recoupment Sweep", &p.RecoupmentSweep},
			{"Cash Due to Artist", &p.CashDueToArtist},
		}
		for _, f := range fields {
			if *f.dst, err = r.num(f.header); err != nil {
				return nil, err
			}
		}
		if raw := r.str("Settlement Date"); raw != "" {
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, r.errorf("Settlement Date", err)
			}
			p.SettlementDate = ts
		}
		out = append(out, p)
	}
	return out, nil
}

// tableRow is one data row addressed by header name.
type tableRow struct {
	line  int
	cols  map[string]int
	cells []any
}

// tableRows splits a values matrix into its header and non-empty data rows.
// An empty tab yields no rows.
func tableRows(values [][]any) ([]tableRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	cols := make(map[string]int, len(values[0]))
	for i, h := range toStrings(values[0]) {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup && key != "" {
			cols[key] = i
		}
	}
	for _, required := range []string{"ID", "Show ID"} {
		if _, ok := cols[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("unexpected header: missing %q; got headers=%v", required, toStrings(values[0]))
		}
	}
	rows := make([]tableRow, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if isBlank(values[i]) {
			continue
		}
		rows = append(rows, tableRow{line: i + 1, cols: cols, cells: values[i]})
	}
	return rows, nil
}

func (r tableRow) cell(header string) any {
	idx, ok := r.cols[strings.ToLower(header)]
	if !ok || idx >= len(r.cells) {
		return nil
	}
	return r.cells[idx]
}

func (r tableRow) str(header string) string {
	return strings.TrimSpace(cellString(r.cell(header)))
}

// num reads a numeric cell. Missing or empty cells are zero.
func (r tableRow) num(header string) (float64, error) {
	switch v := r.cell(header).(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		f, err := core.ParseAmount(cellString(v))
		if err != nil {
			return 0, r.errorf(header, err)
		}
		return f, nil
	}
}

// sheetsEpoch is day zero of spreadsheet date serial numbers.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// date reads a YYYY-MM-DD cell. Dates typed by hand come back from the API
// as serial day numbers and are converted.
func (r tableRow) date(header string) (core.Date, error) {
	if serial, ok := r.cell(header).(float64); ok {
		t := sheetsEpoch.AddDate(0, 0, int(serial))
		return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	d, err := core.ParseDate(r.str(header))
	if err != nil {
		return core.Date{}, r.errorf(header, err)
	}
	return d, nil
}

func (r tableRow) errorf(header string, err error) error {
	return fmt.Errorf("row %d, column %q: %w", r.line, header, err)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}

func isBlank(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(cellString(v)) != "" {
			return false
		}
	}
	return true
}
