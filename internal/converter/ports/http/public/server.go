package public

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SilverStorm2/currency-exchange-app/deploy/config"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/chart"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/service"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
	mwLogger "github.com/SilverStorm2/currency-exchange-app/internal/converter/ports/http/public/middleware/logger"
)

type Server struct {
	Server  *http.Server
	cfg     *config.Config
	service Service
}

func NewServer(server *http.Server, cfg *config.Config, session *service.Session) *Server {
	return &Server{
		Server:  server,
		cfg:     cfg,
		service: session,
	}
}

func StartServer(ctx context.Context, session *service.Session, cfg *config.Config) <-chan struct{} {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	serverConfig := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	server := NewServer(serverConfig, cfg, session)

	r.Get("/convert", server.GetConvert)
	r.Get("/rates", server.GetRates)
	r.Get("/series/{from}/{to}", server.GetSeries)
	r.Get("/chart/{from}/{to}", server.GetChart)

	r.Get("/history", server.GetHistory)
	r.Delete("/history", server.DeleteHistory)
	r.Get("/favorites", server.GetFavorites)
	r.Post("/favorites/toggle", server.ToggleFavorite)
	r.Delete("/favorites", server.DeleteFavorites)

	r.Get("/pair", server.GetPair)
	r.Post("/pair", server.PostPair)

	r.Get("/currencies", server.GetCurrencies)
	r.Get("/currencies/local", server.GetLocalCurrency)

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) GetConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	req := entities.ConversionRequest{
		Amount: amount,
		From:   strings.ToUpper(r.URL.Query().Get("from")),
		To:     strings.ToUpper(r.URL.Query().Get("to")),
	}

	result, err := s.service.Convert(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, entities.ErrNegativeAmount):
			RespondWithError(w, http.StatusBadRequest, "Wrong value...")
		case errors.Is(err, entities.ErrUnsupportedCurrency):
			RespondWithError(w, http.StatusBadRequest, "unsupported currency")
		default:
			RespondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	snapshot, state := s.service.Snapshot()

	response := map[string]any{
		"amountText": service.FormatAmount(req.Amount, req.From),
		"resultText": result,
		"state":      state.String(),
	}
	if snapshot != nil && snapshot.ObservationDate != "" {
		response["lastUpdated"] = snapshot.ObservationDate
	}

	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) GetRates(w http.ResponseWriter, r *http.Request) {
	snapshot, state := s.service.Snapshot()

	response := map[string]any{
		"state": state.String(),
	}
	if snapshot != nil {
		response["rates"] = snapshot.Rates
		response["lastUpdated"] = snapshot.ObservationDate
		response["fetchedAt"] = snapshot.FetchedAt
	}

	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from := strings.ToUpper(chi.URLParam(r, "from"))
	to := strings.ToUpper(chi.URLParam(r, "to"))
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	points, err := s.service.BuildSeries(ctx, from, to, days)
	if err != nil {
		if errors.Is(err, entities.ErrUnsupportedCurrency) {
			RespondWithError(w, http.StatusBadRequest, "unsupported currency")
			return
		}
		RespondWithError(w, http.StatusBadGateway, "Chart unavailable.")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"from":   from,
		"to":     to,
		"points": points,
	})
}

func (s *Server) GetChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from := strings.ToUpper(chi.URLParam(r, "from"))
	to := strings.ToUpper(chi.URLParam(r, "to"))
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	points, err := s.service.BuildSeries(ctx, from, to, days)
	if err != nil {
		if errors.Is(err, entities.ErrUnsupportedCurrency) {
			RespondWithError(w, http.StatusBadRequest, "unsupported currency")
			return
		}
		RespondWithError(w, http.StatusBadGateway, "Chart unavailable.")
		return
	}

	response := map[string]any{
		"from":   from,
		"to":     to,
		"points": points,
		"ranges": chart.RangePresets,
	}

	if layout := chart.NewLayout(points); layout != nil {
		response["linePath"] = layout.LinePath(points)
		response["areaPath"] = layout.AreaPath(points)
		response["latest"] = points[len(points)-1].Value
	} else {
		response["info"] = "Not enough data for chart."
	}

	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.History())
}

func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.service.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetFavorites(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Favorites())
}

func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.decodePair(w, r)
	if !ok {
		return
	}

	isFavorite := s.service.ToggleFavorite(r.Context(), pair)

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"pair":       pair,
		"isFavorite": isFavorite,
	})
}

func (s *Server) DeleteFavorites(w http.ResponseWriter, r *http.Request) {
	s.service.ClearFavorites(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetPair(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"pair":   s.service.SelectedPair(),
		"points": s.service.ChartSeries(),
	})
}

func (s *Server) PostPair(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.decodePair(w, r)
	if !ok {
		return
	}

	s.service.SelectPair(pair)

	RespondWithJSON(w, http.StatusAccepted, map[string]any{"pair": pair})
}

func (s *Server) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Currencies())
}

func (s *Server) GetLocalCurrency(w http.ResponseWriter, r *http.Request) {
	currency := service.DetectLocalCurrency(r.Header.Get("Accept-Language"), s.service.Currencies())

	RespondWithJSON(w, http.StatusOK, map[string]string{"currency": currency})
}

func (s *Server) decodePair(w http.ResponseWriter, r *http.Request) (entities.Pair, bool) {
	var pair entities.Pair
	if err := json.NewDecoder(r.Body).Decode(&pair); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid pair")
		return entities.Pair{}, false
	}

	pair.From = strings.ToUpper(pair.From)
	pair.To = strings.ToUpper(pair.To)

	supported := s.service.Currencies()
	if !contains(supported, pair.From) || !contains(supported, pair.To) {
		RespondWithError(w, http.StatusBadRequest, "unsupported currency")
		return entities.Pair{}, false
	}

	return pair, true
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
