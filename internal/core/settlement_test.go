package core

import (
	"math"
	"reflect"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func tourShow() Show {
	return Show{
		ShowID:             "NYC-2025-01",
		Date:               NewDate(2025, 6, 14),
		Venue:              "Madison Square Garden",
		City:               "New York",
		DealType:           DealHybrid,
		ArtistGuarantee:    150000,
		ArtistPercentOfNet: 0.9,
	}
}

func tourRevenue() Revenue {
	return Revenue{
		ShowID:               "NYC-2025-01",
		TicketGross:          2500000,
		TicketTaxPercent:     0.05,
		FacilityFeePercent:   0.03,
		CreditCardFeePercent: 0.025,
		SponsorshipRevenue:   50000,
		ParkingRevenue:       25000,
		ConcessionsRevenue:   75000,
	}
}

func tourExpenses() []Expense {
	return []Expense{
		{ShowID: "NYC-2025-01", Category: CategoryMarketing, Amount: 120000},
		{ShowID: "NYC-2025-01", Category: CategoryProduction, Amount: 100000},
		{ShowID: "NYC-2025-01", Category: CategoryVenue, Amount: 80000},
	}
}

func TestCalculateTourScenario(t *testing.T) {
	rev := tourRevenue()
	fees := rev.Fees()
	if !approxEqual(fees.TicketTax, 125000) || !approxEqual(fees.FacilityFee, 75000) || !approxEqual(fees.CreditCardFee, 62500) {
		t.Fatalf("unexpected fees: %+v", fees)
	}

	s := Calculate(tourShow(), rev, tourExpenses())
	want := map[string][2]float64{
		"adjusted_gross":           {s.AdjustedGross, 2387500},
		"total_expenses":           {s.TotalExpenses, 300000},
		"noi":                      {s.NOI, 2087500},
		"promoter_profit_percent":  {s.PromoterProfitPercent, 0.10},
		"promoter_profit":          {s.PromoterProfit, 208750},
		"nsp":                      {s.NSP, 1878750},
		"artist_percent":           {s.ArtistPercent, 0.9},
		"artist_share":             {s.ArtistShare, 1690875},
		"artist_guarantee":         {s.ArtistGuarantee, 150000},
		"artist_overage":           {s.ArtistOverage, 1540875},
		"recoupment_sweep_percent": {s.RecoupmentSweepPercent, 0.75},
		"recoupment_sweep":         {s.RecoupmentSweep, 1155656.25},
		"cash_due_to_artist":       {s.CashDueToArtist, 535218.75},
	}
	for field, pair := range want {
		if !approxEqual(pair[0], pair[1]) {
			t.Errorf("%s = %v, want %v", field, pair[0], pair[1])
		}
	}
	if s.ShowID != "NYC-2025-01" {
		t.Fatalf("show id = %q", s.ShowID)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	a := Calculate(tourShow(), tourRevenue(), tourExpenses())
	b := Calculate(tourShow(), tourRevenue(), tourExpenses())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same inputs produced different settlements:\n%+v\n%+v", a, b)
	}
}

func TestCalculateOverageFloor(t *testing.T) {
	show := tourShow()
	show.ArtistGuarantee = 5000000 // far above any share
	s := Calculate(show, tourRevenue(), tourExpenses())
	if s.ArtistOverage != 0 || s.RecoupmentSweep != 0 {
		t.Fatalf("expected no overage and no sweep, got overage=%v sweep=%v", s.ArtistOverage, s.RecoupmentSweep)
	}
	if s.CashDueToArtist != show.ArtistGuarantee {
		t.Fatalf("cash due = %v, want guarantee %v", s.CashDueToArtist, show.ArtistGuarantee)
	}

	// A loss-making show still pays the guarantee.
	rev := tourRevenue()
	rev.TicketGross = 0
	s = Calculate(tourShow(), rev, tourExpenses())
	if s.NOI >= 0 || s.ArtistOverage != 0 || s.CashDueToArtist != 150000 {
		t.Fatalf("unexpected loss settlement: %+v", s)
	}
}

func TestCalculateCashDueNeverBelowGuarantee(t *testing.T) {
	grosses := []float64{0, 100000, 500000, 2500000, 10000000}
	guarantees := []float64{0, 50000, 150000, 1000000}
	for _, g := range grosses {
		for _, guarantee := range guarantees {
			show := tourShow()
			show.ArtistGuarantee = guarantee
			rev := tourRevenue()
			rev.TicketGross = g
			s := Calculate(show, rev, tourExpenses())
			if s.ArtistOverage < 0 {
				t.Fatalf("negative overage for gross=%v guarantee=%v", g, guarantee)
			}
			if s.CashDueToArtist < s.ArtistGuarantee {
				t.Fatalf("cash due %v below guarantee %v (gross=%v)", s.CashDueToArtist, s.ArtistGuarantee, g)
			}
		}
	}
}

func TestCalculateDefaults(t *testing.T) {
	show := Show{ShowID: "LA-1"}
	s := Calculate(show, Revenue{ShowID: "LA-1", TicketGross: 1000}, nil)
	if s.ArtistPercent != DefaultArtistPercent {
		t.Fatalf("artist percent = %v, want default %v", s.ArtistPercent, DefaultArtistPercent)
	}
	if s.ArtistGuarantee != 0 || s.TotalExpenses != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if !approxEqual(s.CashDueToArtist, 810*0.25) {
		t.Fatalf("cash due = %v", s.CashDueToArtist)
	}
}

func TestTotalExpenses(t *testing.T) {
	if got := TotalExpenses(nil); got != 0 {
		t.Fatalf("empty total = %v", got)
	}
	got := TotalExpenses([]Expense{{Amount: 10.5}, {}, {Amount: 4.5}})
	if got != 15 {
		t.Fatalf("total = %v, want 15", got)
	}
}
