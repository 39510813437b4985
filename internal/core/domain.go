package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	DealGuarantee  DealType = "GUARANTEE"
	DealPercentNet DealType = "PERCENT_NET"
	DealHybrid     DealType = "HYBRID_0VS"
	DealJV         DealType = "JV"
)

const (
	CategoryMarketing  ExpenseCategory = "Marketing"
	CategoryProduction ExpenseCategory = "Production"
	CategoryTravel     ExpenseCategory = "Travel"
	CategoryVenue      ExpenseCategory = "Venue"
	CategoryOther      ExpenseCategory = "Other"
)

// StatusDraft is assigned to every newly created show.
const StatusDraft = "Draft"

const dateLayout = "2006-01-02"

type (
	// DealType is recorded on a show but does not change the settlement formula.
	DealType string

	ExpenseCategory string

	Date struct {
		time.Time
	}

	Show struct {
		ID                 string   `json:"id"`
		ShowID             string   `json:"show_id"`
		Date               Date     `json:"date"`
		Venue              string   `json:"venue_name"`
		City               string   `json:"city"`
		DealType           DealType `json:"deal_type"`
		ArtistGuarantee    float64  `json:"artist_guarantee"`
		ArtistPercentOfNet float64  `json:"artist_percent_of_net"`
		Status             string   `json:"status"`
	}

	// Revenue holds the box office figures of one show. Fee percentages are
	// fractions (0.05 means five percent).
	Revenue struct {
		ID                   string  `json:"id"`
		ShowID               string  `json:"show_id"`
		TicketGross          float64 `json:"ticket_gross"`
		TicketTaxPercent     float64 `json:"ticket_tax_percent"`
		FacilityFeePercent   float64 `json:"facility_fee_percent"`
		CreditCardFeePercent float64 `json:"credit_card_fee_percent"`
		SponsorshipRevenue   float64 `json:"sponsorship_revenue"`
		ParkingRevenue       float64 `json:"parking_revenue"`
		ConcessionsRevenue   float64 `json:"concessions_revenue"`
	}

	Expense struct {
		ID            string          `json:"id"`
		ShowID        string          `json:"show_id"`
		Category      ExpenseCategory `json:"category"`
		Description   string          `json:"description"`
		Amount        float64         `json:"amount"`
		Vendor        string          `json:"vendor"`
		InvoiceNumber string          `json:"invoice_number"`
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrShowNotFound    = errors.New("show not found")
	ErrRevenueNotFound = errors.New("revenue not found")

	ErrEmptyShowID       = errors.New("empty show id")
	ErrShowIDTooLong     = errors.New("show id too long (max 64 characters)")
	ErrInvalidDealType   = errors.New("invalid deal type")
	ErrInvalidCategory   = errors.New("invalid expense category")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrInvalidPercent    = errors.New("invalid percentage")
	ErrPercentOutOfRange = errors.New("percentage must be between 0% and 100%")
	ErrInvalidDate       = errors.New("invalid date (expected YYYY-MM-DD)")
)

// DealTypes lists the accepted deal types in display order.
func DealTypes() []DealType {
	return []DealType{DealGuarantee, DealPercentNet, DealHybrid, DealJV}
}

func (d DealType) IsValid() bool {
	switch d {
	case DealGuarantee, DealPercentNet, DealHybrid, DealJV:
		return true
	default:
		return false
	}
}

// ExpenseCategories lists the accepted expense categories in display order.
func ExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{CategoryMarketing, CategoryProduction, CategoryTravel, CategoryVenue, CategoryOther}
}

func (c ExpenseCategory) IsValid() bool {
	switch c {
	case CategoryMarketing, CategoryProduction, CategoryTravel, CategoryVenue, CategoryOther:
		return true
	default:
		return false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (s Show) Validate() error {
	v := &ValidationError{}
	validateShowID(v, s.ShowID)
	if s.DealType != "" && !s.DealType.IsValid() {
		v.Add("deal_type", ErrInvalidDealType)
	}
	validateAmount(v, "artist_guarantee", s.ArtistGuarantee, false)
	validateFraction(v, "artist_percent_of_net", s.ArtistPercentOfNet)
	return v.OrNil()
}

func (r Revenue) Validate() error {
	v := &ValidationError{}
	validateShowID(v, r.ShowID)
	validateAmount(v, "ticket_gross", r.TicketGross, false)
	validateFraction(v, "ticket_tax_percent", r.TicketTaxPercent)
	validateFraction(v, "facility_fee_percent", r.FacilityFeePercent)
	validateFraction(v, "credit_card_fee_percent", r.CreditCardFeePercent)
	validateAmount(v, "sponsorship_revenue", r.SponsorshipRevenue, false)
	validateAmount(v, "parking_revenue", r.ParkingRevenue, false)
	validateAmount(v, "concessions_revenue", r.ConcessionsRevenue, false)
	return v.OrNil()
}

func (e Expense) Validate() error {
	v := &ValidationError{}
	validateShowID(v, e.ShowID)
	if !e.Category.IsValid() {
		v.Add("category", ErrInvalidCategory)
	}
	if len(e.Description) > 200 {
		v.Add("description", errors.New("description too long (max 200 characters)"))
	}
	// Credits against a vendor are booked as negative expenses.
	validateAmount(v, "amount", e.Amount, true)
	return v.OrNil()
}

func validateShowID(v *ValidationError, id string) {
	switch {
	case strings.TrimSpace(id) == "":
		v.Add("show_id", ErrEmptyShowID)
	case len(id) > 64:
		v.Add("show_id", ErrShowIDTooLong)
	}
}

func validateAmount(v *ValidationError, field string, amount float64, allowNegative bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		v.Add(field, ErrInvalidAmount)
		return
	}
	if amount < 0 && !allowNegative {
		v.Add(field, ErrNegativeAmount)
	}
}

func validateFraction(v *ValidationError, field string, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		v.Add(field, ErrInvalidPercent)
		return
	}
	if f < 0 || f > 1 {
		v.Add(field, ErrPercentOutOfRange)
	}
}
