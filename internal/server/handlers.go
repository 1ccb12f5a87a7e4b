package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/auth"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/retrieval"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Public Services Feedback Analysis API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var input models.FeedbackInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Source = "api"
	s.logger.Debug("submit feedback request",
		zap.String("district", input.DistrictName),
		zap.String("service", input.ServiceType),
		zap.Int("length", len(input.UserFeedback)))

	res, err := s.feedback.Submit(r.Context(), input)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadRequest {
			s.respondError(w, status, err.Error())
			return
		}
		s.logger.Error("feedback processing failed", zap.Error(err))
		msg := "Feedback processing failed: " + err.Error()
		if res != nil {
			s.respondJSON(w, status, map[string]string{"error": msg, "detail": msg, "id": res.ID})
			return
		}
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	district := chi.URLParam(r, "district_name")
	service := chi.URLParam(r, "service_type")
	s.logger.Debug("summary request", zap.String("district", district), zap.String("service", service))

	res, err := s.feedback.Summarize(r.Context(), district, service)
	if err != nil {
		if errors.Is(err, retrieval.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "No feedbacks found")
			return
		}
		s.logger.Error("summary generation failed", zap.Error(err))
		s.respondError(w, statusFor(err), "Summary generation failed: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "feedback not found")
			return
		}
		s.logger.Error("get feedback failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// Page size bounds for listing feedback.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	page := models.FeedbackPage{Limit: defaultPageSize}
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				s.respondError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	switch {
	case page.Limit == 0:
		page.Limit = defaultPageSize
	case page.Limit > maxPageSize:
		page.Limit = maxPageSize
	}

	recs, err := s.storage.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		s.logger.Error("list feedback failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.Count(r.Context())
	if err != nil {
		s.logger.Error("list feedback: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	page.Records = recs
	page.Total = total
	if page.Records == nil {
		page.Records = []*models.Record{}
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	q := r.URL.Query()
	query := &models.SearchQuery{
		Query:        q.Get("q"),
		DistrictName: q.Get("district"),
		ServiceType:  q.Get("service"),
		Fuzzy:        q.Get("fuzzy") == "true",
	}
	for name, dst := range map[string]*int{"limit": &query.Limit, "offset": &query.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	resp, err := keyword.Lookup(r.Context(), s.keyword, s.storage, query)
	if err != nil {
		status := statusFor(err)
		if status != http.StatusBadRequest {
			s.logger.Error("search failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := models.Status{
		Records:         count,
		IndexSize:       s.index.Size(),
		IndexDimensions: s.index.Dimensions(),
	}
	st.IndexInSync = int64(st.IndexSize) == st.Records
	if s.keyword != nil {
		if n, err := s.keyword.DocCount(); err == nil {
			st.KeywordDocs = n
		}
	}
	if s.dataPaths != nil {
		if du, err := storage.MeasureDisk(*s.dataPaths); err == nil {
			st.Disk = du
		} else {
			s.logger.Warn("status: measure disk failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	msg := "Invalid or expired token"
	if errors.Is(err, auth.ErrMissingToken) {
		msg = "Missing Bearer token"
	}
	s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	w.Header().Set("WWW-Authenticate", "Bearer")
	s.respondError(w, http.StatusUnauthorized, msg)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, vector.ErrNonFiniteVector):
		return http.StatusBadRequest
	case errors.Is(err, retrieval.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes {"error": msg, "detail": msg}; detail is the key older clients read.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message, "detail": message})
}
