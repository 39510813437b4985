package core

import (
	"math"
	"time"
)

const (
	// PromoterProfitPercent is the share of NOI retained by the promoter.
	PromoterProfitPercent = 0.10
	// RecoupmentSweepPercent is the share of the artist overage held back.
	RecoupmentSweepPercent = 0.75
	// DefaultArtistPercent applies when a show has no artist percent of net.
	DefaultArtistPercent = 0.9
)

type (
	// Settlement is the full breakdown of a show settlement. All fields are
	// always present.
	Settlement struct {
		ShowID                 string  `json:"show_id"`
		AdjustedGross          float64 `json:"adjusted_gross"`
		TotalExpenses          float64 `json:"total_expenses"`
		NOI                    float64 `json:"noi"`
		PromoterProfitPercent  float64 `json:"promoter_profit_percent"`
		PromoterProfit         float64 `json:"promoter_profit"`
		NSP                    float64 `json:"nsp"`
		ArtistPercent          float64 `json:"artist_percent"`
		ArtistShare            float64 `json:"artist_share"`
		ArtistGuarantee        float64 `json:"artist_guarantee"`
		ArtistOverage          float64 `json:"artist_overage"`
		RecoupmentSweepPercent float64 `json:"recoupment_sweep_percent"`
		RecoupmentSweep        float64 `json:"recoupment_sweep"`
		CashDueToArtist        float64 `json:"cash_due_to_artist"`
	}

	// PostedSettlement is a settlement as stored: immutable once written.
	PostedSettlement struct {
		Settlement
		ID             string    `json:"id"`
		SettlementDate time.Time `json:"settlement_date"`
	}

	// FeeBreakdown holds the box office deductions taken from ticket gross.
	FeeBreakdown struct {
		TicketTax     float64 `json:"ticket_tax"`
		FacilityFee   float64 `json:"facility_fee"`
		CreditCardFee float64 `json:"credit_card_fee"`
	}
)

// Total returns the sum of all deductions.
func (f FeeBreakdown) Total() float64 {
	return f.TicketTax + f.FacilityFee + f.CreditCardFee
}

// Fees computes the deductions as fractions of ticket gross.
func (r Revenue) Fees() FeeBreakdown {
	return FeeBreakdown{
		TicketTax:     r.TicketGross * r.TicketTaxPercent,
		FacilityFee:   r.TicketGross * r.FacilityFeePercent,
		CreditCardFee: r.TicketGross * r.CreditCardFeePercent,
	}
}

// AdjustedGross is ticket gross less fees plus ancillary revenue.
func (r Revenue) AdjustedGross() float64 {
	fees := r.Fees()
	return r.TicketGross - fees.TicketTax - fees.FacilityFee - fees.CreditCardFee +
		r.SponsorshipRevenue + r.ParkingRevenue + r.ConcessionsRevenue
}

// TotalExpenses sums expense amounts.
func TotalExpenses(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// Calculate derives the settlement of a show from its terms, its revenue
// entry and its expenses. It is pure: the same inputs always give the same
// output. Deal type is not consulted.
func Calculate(show Show, revenue Revenue, expenses []Expense) Settlement {
	totalExpenses := TotalExpenses(expenses)
	adjustedGross := revenue.AdjustedGross()

	noi := adjustedGross - totalExpenses
	promoterProfit := noi * PromoterProfitPercent
	nsp := noi - promoterProfit

	artistPercent := show.ArtistPercentOfNet
	if artistPercent == 0 {
		artistPercent = DefaultArtistPercent
	}
	artistShare := nsp * artistPercent
	guarantee := show.ArtistGuarantee
	overage := math.Max(0, artistShare-guarantee)

	sweep := overage * RecoupmentSweepPercent

	return Settlement{
		ShowID:                 show.ShowID,
		AdjustedGross:          adjustedGross,
		TotalExpenses:          totalExpenses,
		NOI:                    noi,
		PromoterProfitPercent:  PromoterProfitPercent,
		PromoterProfit:         promoterProfit,
		NSP:                    nsp,
		ArtistPercent:          artistPercent,
		ArtistShare:            artistShare,
		ArtistGuarantee:        guarantee,
		ArtistOverage:          overage,
		RecoupmentSweepPercent: RecoupmentSweepPercent,
		RecoupmentSweep:        sweep,
		CashDueToArtist:        guarantee + (overage - sweep),
	}
}
