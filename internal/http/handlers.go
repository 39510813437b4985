package http

import (
	"errors"
	"net/http"
	"time"

	"tourledger/internal/core"
	applog "tourledger/internal/log"
	"tourledger/internal/middleware/trace"
	ports "tourledger/internal/sheets"
)

type healthResponse struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(healthResponse{
		Message:   "Tour Settlement API is running",
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Route not found").Write(w)
}

func (s *Server) handleListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := s.listShows(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpList)
		return
	}
	NewJSONResponse().Body(nonNil(shows)).Write(w)
}

func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	show, err := s.records.CreateShow(r.Context(), p.ShowInput())
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpCreate)
		return
	}
	s.invalidateShows()
	s.structured.LogRecordCreated(r.Context(), ports.TableShows, show.ID, show.ShowID)
	NewJSONResponse().Body(show).Write(w)
}

func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	show, err := s.records.GetShow(r.Context(), r.PathValue("id"))
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Show not found").Write(w)
		return
	}
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpRead)
		return
	}
	NewJSONResponse().Body(show).Write(w)
}

func (s *Server) handleCreateRevenue(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	rev, err := s.records.CreateRevenue(r.Context(), p.RevenueInput())
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpCreate)
		return
	}
	s.structured.LogRecordCreated(r.Context(), ports.TableRevenue, rev.ID, rev.ShowID)
	NewJSONResponse().Body(rev).Write(w)
}

func (s *Server) handleListRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := s.records.ListRevenue(r.Context(), r.PathValue("show_id"))
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpList)
		return
	}
	NewJSONResponse().Body(nonNil(revenue)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	exp, err := s.records.CreateExpense(r.Context(), p.ExpenseInput())
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpCreate)
		return
	}
	s.structured.LogRecordCreated(r.Context(), ports.TableExpenses, exp.ID, exp.ShowID)
	NewJSONResponse().Body(exp).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.records.ListExpenses(r.Context(), r.PathValue("show_id"))
	if err != nil {
		s.writeError(w, r, err, applog.ComponentRecords, applog.OpList)
		return
	}
	NewJSONResponse().Body(nonNil(expenses)).Write(w)
}

func (s *Server) handleCalculateSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.settlements.Calculate(r.Context(), r.PathValue("show_id"))
	switch {
	case errors.Is(err, core.ErrShowNotFound):
		NotFoundError("Show not found").Write(w)
	case errors.Is(err, core.ErrRevenueNotFound):
		NotFoundError("Revenue not found").Write(w)
	case err != nil:
		s.writeError(w, r, err, applog.ComponentSettlement, applog.OpCalculate)
	default:
		NewJSONResponse().Body(settlement).Write(w)
	}
}

func (s *Server) handlePostSettlement(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	settlement, err := p.Settlement()
	if err != nil {
		s.writeError(w, r, err, applog.ComponentSettlement, applog.OpPost)
		return
	}
	posted, err := s.settlements.Post(r.Context(), settlement)
	if err != nil {
		s.writeError(w, r, err, applog.ComponentSettlement, applog.OpPost)
		return
	}
	s.structured.LogSettlementPosted(r.Context(), posted.ID, posted.ShowID, posted.CashDueToArtist)
	NewJSONResponse().Body(posted).Write(w)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	list, err := s.settlements.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.ComponentSettlement, applog.OpList)
		return
	}
	NewJSONResponse().Body(nonNil(list)).Write(w)
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		BadRequestError("Malformed request body").Write(w)
		return nil, false
	}
	return p, true
}

// writeError maps validation failures to 422 and not-found to 404. Anything
// else is a store failure and is reported with its message as a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(err.Error()).Write(w)
	default:
		s.structured.LogError(r.Context(), "Request failed", err, component, op,
			applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		InternalServerError(err.Error()).Write(w)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
