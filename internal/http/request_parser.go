// This file reads request bodies that arrive either as JSON objects or as
// form-encoded data and turns them into service inputs.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tourledger/internal/core"
	"tourledger/internal/services"
)

// maxBodyBytes caps request bodies; records are a handful of short fields.
const maxBodyBytes = 64 << 10

var ErrMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles JSON and form-encoded bodies. JSON numbers,
// strings and booleans are all read back as strings so that amounts and
// percentages go through the same normalization whichever way they were sent.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return p.err
	}
	if trimmed[0] == '[' {
		p.err = fmt.Errorf("%w: expected a JSON object", ErrMalformedBody)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
	}
	return p.err
}

// Get returns the trimmed, control-character-free value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func (p *RequestBodyParser) ShowInput() services.ShowInput {
	return services.ShowInput{
		ShowID:             p.Get("show_id"),
		Date:               p.Get("date"),
		VenueName:          p.Get("venue_name"),
		City:               p.Get("city"),
		DealType:           p.Get("deal_type"),
		ArtistGuarantee:    p.Get("artist_guarantee"),
		ArtistPercentOfNet: p.Get("artist_percent_of_net"),
	}
}

func (p *RequestBodyParser) RevenueInput() services.RevenueInput {
	return services.RevenueInput{
		ShowID:               p.Get("show_id"),
		TicketGross:          p.Get("ticket_gross"),
		TicketTaxPercent:     p.Get("ticket_tax_percent"),
		FacilityFeePercent:   p.Get("facility_fee_percent"),
		CreditCardFeePercent: p.Get("credit_card_fee_percent"),
		SponsorshipRevenue:   p.Get("sponsorship_revenue"),
		ParkingRevenue:       p.Get("parking_revenue"),
		ConcessionsRevenue:   p.Get("concessions_revenue"),
	}
}

func (p *RequestBodyParser) ExpenseInput() services.ExpenseInput {
	return services.ExpenseInput{
		ShowID:        p.Get("show_id"),
		Category:      p.Get("category"),
		Description:   p.Get("description"),
		Amount:        p.Get("amount"),
		Vendor:        p.Get("vendor"),
		InvoiceNumber: p.Get("invoice_number"),
	}
}

// Settlement reads a settlement exactly as submitted. Missing figures are
// zero; figures that are not numbers are reported per field.
func (p *RequestBodyParser) Settlement() (core.Settlement, error) {
	v := &core.ValidationError{}
	num := func(field string) float64 {
		f, err := core.ParseAmount(p.Get(field))
		if err != nil {
			v.Add(field, err)
		}
		return f
	}

	s := core.Settlement{
		ShowID:                 p.Get("show_id"),
		AdjustedGross:          num("adjusted_gross"),
		TotalExpenses:          num("total_expenses"),
		NOI:                    num("noi"),
		PromoterProfitPercent:  num("promoter_profit_percent"),
		PromoterProfit:         num("promoter_profit"),
		NSP:                    num("nsp"),
		ArtistPercent:          num("artist_percent"),
		ArtistShare:            num("artist_share"),
		ArtistGuarantee:        num("artist_guarantee"),
		ArtistOverage:          num("artist_overage"),
		RecoupmentSweepPercent: num("recoupment_sweep_percent"),
		RecoupmentSweep:        num("recoupment_sweep"),
		CashDueToArtist:        num("cash_due_to_artist"),
	}
	if s.ShowID == "" {
		v.Add("show_id", core.ErrEmptyShowID)
	}
	return s, v.OrNil()
}
