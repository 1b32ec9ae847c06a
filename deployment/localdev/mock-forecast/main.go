package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"
)

type record struct {
	Platform      string  `json:"platform"`
	Market        string  `json:"market"`
	State         string  `json:"state"`
	CaseType      string  `json:"caseType"`
	ForecastValue float64 `json:"forecastValue"`
}

type queryRequest struct {
	Month     int      `json:"month"`
	Year      int      `json:"year"`
	Platforms []string `json:"platforms"`
	Markets   []string `json:"markets"`
	States    []string `json:"states"`
	CaseTypes []string `json:"caseTypes"`
}

// dataset is a small synthetic forecast table covering the first half of
// 2025. Every month carries the same rows so cache behaviour is easy to
// exercise by hand.
var dataset = []record{
	{Platform: "Amisys", Market: "Medicaid", State: "CA", CaseType: "Inpatient", ForecastValue: 1240},
	{Platform: "Amisys", Market: "Medicaid", State: "TX", CaseType: "Inpatient", ForecastValue: 980},
	{Platform: "Amisys", Market: "Medicaid", State: "TX", CaseType: "Outpatient", ForecastValue: 450},
	{Platform: "Amisys", Market: "Medicare", State: "FL", CaseType: "Outpatient", ForecastValue: 610},
	{Platform: "Facets", Market: "Medicaid", State: "CA", CaseType: "Outpatient", ForecastValue: 720},
	{Platform: "Facets", Market: "Commercial", State: "FL", CaseType: "Inpatient", ForecastValue: 530},
	{Platform: "Facets", Market: "Commercial", State: "TX", CaseType: "Outpatient", ForecastValue: 310},
	{Platform: "Xcelys", Market: "Medicare", State: "CA", CaseType: "Inpatient", ForecastValue: 860},
	{Platform: "Xcelys", Market: "Medicare", State: "FL", CaseType: "Inpatient", ForecastValue: 400},
}

func hasData(month, year int) bool {
	return year == 2025 && month >= 1 && month <= 6
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/forecast/filter-options", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		month, _ := strconv.Atoi(r.URL.Query().Get("month"))
		year, _ := strconv.Atoi(r.URL.Query().Get("year"))
		if !hasData(month, year) {
			writeJSON(w, map[string]any{"hasData": false})
			return
		}
		writeJSON(w, map[string]any{
			"hasData": true,
			"filters": map[string][]string{
				"platform": distinct(func(rec record) string { return rec.Platform }),
				"market":   distinct(func(rec record) string { return rec.Market }),
				"state":    distinct(func(rec record) string { return rec.State }),
				"caseType": distinct(func(rec record) string { return rec.CaseType }),
			},
		})
	})

	mux.HandleFunc("/api/v1/forecast/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		matched := make([]record, 0, len(dataset))
		if hasData(req.Month, req.Year) {
			for _, rec := range dataset {
				if matches(rec, req) {
					matched = append(matched, rec)
				}
			}
		}
		writeJSON(w, map[string]any{
			"totalCount": len(matched),
			"records":    matched,
		})
	})

	logger := log.New(log.Writer(), "forecast-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8080",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8080")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func matches(rec record, req queryRequest) bool {
	return contains(req.Platforms, rec.Platform) &&
		contains(req.Markets, rec.Market) &&
		contains(req.States, rec.State) &&
		contains(req.CaseTypes, rec.CaseType)
}

// contains treats an empty filter as "match everything".
func contains(values []string, value string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func distinct(key func(record) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, rec := range dataset {
		v := key(rec)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
