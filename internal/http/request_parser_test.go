package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tourledger/internal/core"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		key     string
		want    string
		isJSON  bool
		wantErr bool
	}{
		{name: "json string", body: `{"show_id":" NYC-2025-01 "}`, key: "show_id", want: "NYC-2025-01", isJSON: true},
		{name: "json number", body: `{"ticket_gross":2500000.5}`, key: "ticket_gross", want: "2500000.5", isJSON: true},
		{name: "json large integer", body: `{"ticket_gross":12500000}`, key: "ticket_gross", want: "12500000", isJSON: true},
		{name: "json bool", body: `{"flag":false}`, key: "flag", want: "false", isJSON: true},
		{name: "json null", body: `{"vendor":null}`, key: "vendor", want: "", isJSON: true},
		{name: "json missing key", body: `{}`, key: "vendor", want: "", isJSON: true},
		{name: "form", body: "ticket_tax_percent=5%25&city=New+York", key: "ticket_tax_percent", want: "5%"},
		{name: "control characters stripped", body: "description=Load%00in%07", key: "description", want: "Loadin"},
		{name: "empty body", body: "", key: "show_id", want: ""},
		{name: "malformed json", body: `{"show_id":`, wantErr: true},
		{name: "json array", body: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body)
			err := p.Parse()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedBody) {
					t.Fatalf("Parse() error = %v, want ErrMalformedBody", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.isJSON)
			}
		})
	}
}

func TestRequestBodyParser_Inputs(t *testing.T) {
	p := newParser(t, `{"show_id":"NYC-2025-01","date":"2025-06-14","artist_percent_of_net":"90%","ticket_tax_percent":0.05,"category":"venue","amount":80000}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}

	show := p.ShowInput()
	if show.ShowID != "NYC-2025-01" || show.Date != "2025-06-14" || show.ArtistPercentOfNet != "90%" {
		t.Errorf("ShowInput = %+v", show)
	}
	if rev := p.RevenueInput(); rev.TicketTaxPercent != "0.05" || rev.TicketGross != "" {
		t.Errorf("RevenueInput = %+v", rev)
	}
	if exp := p.ExpenseInput(); exp.Category != "venue" || exp.Amount != "80000" {
		t.Errorf("ExpenseInput = %+v", exp)
	}
}

func TestRequestBodyParser_Settlement(t *testing.T) {
	p := newParser(t, `{"show_id":"NYC-2025-01","noi":1850000,"promoter_profit_percent":0.1,"cash_due_to_artist":"535218.75"}`)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	s, err := p.Settlement()
	if err != nil {
		t.Fatalf("Settlement() error = %v", err)
	}
	if s.NOI != 1850000 || s.PromoterProfitPercent != 0.1 || s.CashDueToArtist != 535218.75 || s.ArtistShare != 0 {
		t.Fatalf("Settlement() = %+v", s)
	}

	p = newParser(t, `{"show_id":"NYC-2025-01","nsp":"n/a"}`)
	_ = p.Parse()
	_, err = p.Settlement()
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Settlement() error = %v, want ErrInvalidAmount", err)
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	p := newParser(t, `{"description":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
	if err := p.Parse(); !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("Parse() error = %v", err)
	}
}
