package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/recommender"
)

// HealthResponse /healthz 响应
type HealthResponse struct {
	Status    string `json:"status"`
	ContentID string `json:"content_id,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

// SearchResponse 曲目查找响应
type SearchResponse struct {
	Tracks []recommender.TrackMatch `json:"tracks"`
}

// RecommendationsResponse 推荐响应
type RecommendationsResponse struct {
	Recommendations []recommender.Recommendation `json:"recommendations"`
	DiversityScore  float64                      `json:"diversity_score"`
}

// ByFeaturesRequest 按特征推荐的请求体
type ByFeaturesRequest struct {
	Features      map[string]float64 `json:"features"`
	N             int                `json:"n"`
	Diversity     bool               `json:"diversity"`
	Backfill      bool               `json:"backfill"`
	MinPopularity *int               `json:"min_popularity"`
	YearFrom      *int               `json:"year_from"`
	YearTo        *int               `json:"year_to"`
	Expr          string             `json:"expr"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	idx, err := s.rec.Index()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "index not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", ContentID: idx.ContentID(), Rows: idx.Rows()})
}

func (s *Server) searchTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := s.intParam(q.Get("limit"), 10)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tracks, err := s.rec.FindTrackByName(q.Get("name"), q.Get("artist"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Tracks: tracks})
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	opts, err := s.queryOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	recs, err := s.rec.GetRecommendations(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs, DiversityScore: recommender.DiversityScore(recs)})
}

func (s *Server) recommendationsByFeatures(w http.ResponseWriter, r *http.Request) {
	var req ByFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, core.Wrap(core.ErrInvalidInput, err, "decode request body"))
		return
	}
	if req.N > s.maxLimit {
		s.writeError(w, core.Errorf(core.ErrInvalidInput, "n must not exceed %d", s.maxLimit))
		return
	}
	opts := recommender.Options{
		N:             req.N,
		Diversity:     req.Diversity,
		Backfill:      req.Backfill,
		MinPopularity: req.MinPopularity,
		Expr:          req.Expr,
	}
	yr, err := yearRange(req.YearFrom, req.YearTo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts.YearRange = yr

	recs, err := s.rec.GetRecommendationsByFeatures(r.Context(), req.Features, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs, DiversityScore: recommender.DiversityScore(recs)})
}

func (s *Server) queryOptions(r *http.Request) (recommender.Options, error) {
	q := r.URL.Query()
	var opts recommender.Options

	n, err := s.intParam(q.Get("n"), 0)
	if err != nil {
		return opts, err
	}
	opts.N = n
	opts.Expr = q.Get("expr")
	if opts.Diversity, err = boolParam(q.Get("diversity")); err != nil {
		return opts, err
	}
	if opts.Backfill, err = boolParam(q.Get("backfill")); err != nil {
		return opts, err
	}
	if v := q.Get("min_popularity"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return opts, core.Errorf(core.ErrInvalidInput, "min_popularity: %q is not an integer", v)
		}
		opts.MinPopularity = &p
	}

	from, err := optionalInt(q.Get("year_from"), "year_from")
	if err != nil {
		return opts, err
	}
	to, err := optionalInt(q.Get("year_to"), "year_to")
	if err != nil {
		return opts, err
	}
	opts.YearRange, err = yearRange(from, to)
	return opts, err
}

func (s *Server) intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, core.Errorf(core.ErrInvalidInput, "%q is not a non-negative integer", v)
	}
	if n > s.maxLimit {
		return 0, core.Errorf(core.ErrInvalidInput, "%d exceeds the limit of %d", n, s.maxLimit)
	}
	return n, nil
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, core.Errorf(core.ErrInvalidInput, "%q is not a boolean", v)
	}
	return b, nil
}

func optionalInt(v, name string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, core.Errorf(core.ErrInvalidInput, "%s: %q is not an integer", name, v)
	}
	return &n, nil
}

// yearRange 允许只给一端：缺失的下界为 0，缺失的上界不限。
func yearRange(from, to *int) (*recommender.YearRange, error) {
	if from == nil && to == nil {
		return nil, nil
	}
	yr := &recommender.YearRange{From: 0, To: int(^uint(0) >> 1)}
	if from != nil {
		yr.From = *from
	}
	if to != nil {
		yr.To = *to
	}
	if yr.From > yr.To {
		return nil, core.Errorf(core.ErrInvalidInput, "year range [%d, %d] is empty", yr.From, yr.To)
	}
	return yr, nil
}

// statusOf 把领域错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case core.IsUnknownTrack(err), core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsSchemaError(err), core.IsInvalidInput(err), core.IsDimensionMismatch(err):
		return http.StatusBadRequest
	case core.IsIndexNotLoaded(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	code := "INTERNAL"
	if de := core.GetDomainError(err); de != nil {
		code = de.Code
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // 响应写入失败无法恢复
	json.NewEncoder(w).Encode(v)
}
