package web

// handlers_sales.go serves the non-wizard sales surface: a one-shot JSON
// import of pre-mapped rows, single manual entries, and the period report.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tigerops/salesops/internal/core"
	"github.com/tigerops/salesops/internal/money"
	"github.com/tigerops/salesops/internal/web/middleware"
)

type salesImportRequest struct {
	Rows      []core.MappedRow `json:"rows"`
	PeriodKey string           `json:"periodKey"`
	RowType   string           `json:"rowType"`
}

type salesImportResponse struct {
	Message        string            `json:"message"`
	Imported       int               `json:"imported"`
	Skipped        int               `json:"skipped"`
	SkippedDetails []core.SkippedRow `json:"skippedDetails"`
	Total          int               `json:"total"`
}

// handleSalesImport commits an already-mapped batch without a wizard
// session. Clients that do their own mapping and validation land here.
func (s *Server) handleSalesImport(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req salesImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Rows) == 0 {
		badRequest(w, "No rows to import")
		return
	}
	key, ok := groupKeyFromRequest(w, identity, req.PeriodKey, req.RowType)
	if !ok {
		return
	}

	ctx, cancel := commitContext(r, s.cfg.Import.CommitTimeout)
	defer cancel()

	report, err := s.service.Importer().Import(ctx, key, req.Rows)
	if err != nil {
		var commitErr *core.CommitError
		if errors.As(err, &commitErr) && report.Imported > 0 {
			// Committed rows stay committed; report the partial result
			// alongside the failure so the caller knows what landed.
			respondJSON(w, http.StatusBadGateway, struct {
				salesImportResponse
				Error ErrorResponse `json:"error"`
			}{
				salesImportResponse: importResponse(report),
				Error:               errorBody(err),
			})
			return
		}
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, importResponse(report))
}

func importResponse(report core.ImportReport) salesImportResponse {
	details := report.SkippedDetails
	if details == nil {
		details = []core.SkippedRow{}
	}
	return salesImportResponse{
		Message:        importMessage(report),
		Imported:       report.Imported,
		Skipped:        report.Skipped,
		SkippedDetails: details,
		Total:          report.Total,
	}
}

func importMessage(report core.ImportReport) string {
	switch {
	case report.Skipped == 0:
		return "All rows imported successfully"
	case report.Imported == 0:
		return "No rows were imported"
	default:
		return "Import completed with skipped rows"
	}
}

type salesEntryRequest struct {
	core.MappedRow
	PeriodKey string `json:"periodKey"`
	RowType   string `json:"rowType"`
}

// handleSalesEntry inserts a single manually keyed row.
func (s *Server) handleSalesEntry(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req salesEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	key, ok := groupKeyFromRequest(w, identity, req.PeriodKey, req.RowType)
	if !ok {
		return
	}

	item, err := s.service.Importer().AddEntry(r.Context(), key, req.MappedRow)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, struct {
		ID             string `json:"id"`
		SequenceNumber int    `json:"sequenceNumber"`
	}{
		ID:             item.ID.String(),
		SequenceNumber: item.SequenceNumber,
	})
}

type reportLine struct {
	SequenceNumber     int     `json:"sequenceNumber"`
	ShipperName        string  `json:"shipperName"`
	TeuQty             string  `json:"teuQty"`
	Revenue            float64 `json:"revenue"`
	RevenueDisplay     string  `json:"revenueDisplay"`
	ProfitabilityRatio float64 `json:"profitabilityRatio"`
	Profit             float64 `json:"profit"`
	ProfitDisplay      string  `json:"profitDisplay"`
	Notes              string  `json:"notes,omitempty"`
}

type reportResponse struct {
	PeriodKey           string       `json:"periodKey"`
	RowType             string       `json:"rowType"`
	Lines               []reportLine `json:"lines"`
	TotalRevenue        float64      `json:"totalRevenue"`
	TotalRevenueDisplay string       `json:"totalRevenueDisplay"`
	TotalProfit         float64      `json:"totalProfit"`
	TotalProfitDisplay  string       `json:"totalProfitDisplay"`
}

// handleSalesReport lists a period's committed line items with display
// formatting and running totals.
func (s *Server) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	q := r.URL.Query()
	key, ok := groupKeyFromRequest(w, identity, q.Get("periodKey"), q.Get("rowType"))
	if !ok {
		return
	}

	group, found, err := s.service.Store().FindGroup(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := reportResponse{
		PeriodKey: key.PeriodKey,
		RowType:   string(key.RowType),
		Lines:     []reportLine{},
	}
	if found {
		items, err := s.service.Store().ListLineItems(r.Context(), group.ID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var revenuePaise, profitPaise int64
		for _, item := range items {
			revenuePaise += item.RevenuePaise
			profitPaise += item.ProfitPaise
			resp.Lines = append(resp.Lines, reportLine{
				SequenceNumber:     item.SequenceNumber,
				ShipperName:        item.ShipperName,
				TeuQty:             item.TeuQty,
				Revenue:            money.PaiseToRupees(item.RevenuePaise),
				RevenueDisplay:     money.FormatINR(item.RevenuePaise),
				ProfitabilityRatio: item.ProfitabilityRatio,
				Profit:             money.PaiseToRupees(item.ProfitPaise),
				ProfitDisplay:      money.FormatINR(item.ProfitPaise),
				Notes:              item.Notes,
			})
		}
		resp.TotalRevenue = money.PaiseToRupees(revenuePaise)
		resp.TotalRevenueDisplay = money.FormatINR(revenuePaise)
		resp.TotalProfit = money.PaiseToRupees(profitPaise)
		resp.TotalProfitDisplay = money.FormatINR(profitPaise)
	}

	respondJSON(w, http.StatusOK, resp)
}

// groupKeyFromRequest validates group key inputs shared by the sales
// endpoints. Row type defaults to actual when omitted.
func groupKeyFromRequest(w http.ResponseWriter, identity middleware.Identity, periodKey, rowType string) (core.GroupKey, bool) {
	if periodKey == "" {
		badRequest(w, "periodKey is required")
		return core.GroupKey{}, false
	}
	rt := core.RowType(rowType)
	if rowType == "" {
		rt = core.RowTypeActual
	} else if !core.ValidRowType(rowType) {
		badRequest(w, "rowType must be actual, projection, or pipeline")
		return core.GroupKey{}, false
	}
	return core.GroupKey{OwnerID: identity.UserID, PeriodKey: periodKey, RowType: rt}, true
}
