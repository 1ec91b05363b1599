package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"tradecoach/internal/coach"
	"tradecoach/internal/market"
	"tradecoach/internal/tradeocr"
)

// unavailableMessage is the only price failure text clients see.
const unavailableMessage = "Failed to fetch price from all sources"

type advisor interface {
	Price(ctx context.Context, sym string) (market.Quote, error)
	Advise(ctx context.Context, sym string, simulated decimal.NullDecimal) (coach.Advice, error)
}

type extractor interface {
	Extract(text string) tradeocr.Fields
}

type server struct {
	advisor   advisor
	extractor extractor
	log       *zap.Logger
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/price", s.handlePrice)
	mux.HandleFunc("GET /api/alert", s.handleAlert)
	mux.HandleFunc("POST /api/analyze-trade", s.handleAnalyzeTrade)
	return withRequestID(s.log, withJSONHeaders(withGzip(recoverPanic(s.log, limitBody(mux)))))
}

type priceResponse struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Source    market.Source   `json:"source"`
	Provider  string          `json:"provider"`
	Timestamp time.Time       `json:"timestamp"`
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q, err := s.advisor.Price(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Symbol:    q.Symbol,
		Price:     q.Price,
		Source:    q.Source,
		Provider:  q.Provider,
		Timestamp: q.FetchedAt.UTC(),
	})
}

func (s *server) handleAlert(w http.ResponseWriter, r *http.Request) {
	var simulated decimal.NullDecimal
	if v := strings.TrimSpace(r.URL.Query().Get("mockPrice")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			writeError(w, http.StatusBadRequest, "mockPrice must be a positive number")
			return
		}
		simulated = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	adv, err := s.advisor.Advise(r.Context(), r.URL.Query().Get("symbol"), simulated)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Success bool            `json:"success"`
	Data    tradeocr.Fields `json:"data"`
}

func (s *server) handleAnalyzeTrade(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: s.extractor.Extract(body.Text)})
}

func (s *server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if coach.IsUnavailable(err) {
		writeError(w, http.StatusBadGateway, unavailableMessage)
		return
	}
	s.log.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", requestID(r.Context())), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
