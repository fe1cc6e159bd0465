package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/models"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query_type", string(query.Type())),
		zap.Int("limit", query.Limit))

	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		kind := models.KindOf(err)
		s.logger.Error("search failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
		s.respondJSON(w, statusForKind(kind), &models.SearchResponse{
			Success:   false,
			QueryType: query.Type(),
			RequestID: RequestIDFrom(r.Context()),
			Error:     models.ClientMessage(err),
		})
		return
	}
	response.RequestID = RequestIDFrom(r.Context())
	s.respondJSON(w, http.StatusOK, response)
}

type embedTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEmbedText(w http.ResponseWriter, r *http.Request) {
	var req embedTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.engine.EmbedText(r.Context(), req.Text)
	if err != nil {
		s.respondErrorKind(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type embedImageRequest struct {
	ImageData string `json:"image_data"`
}

func (s *Server) handleEmbedImage(w http.ResponseWriter, r *http.Request) {
	var req embedImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.engine.EmbedImage(r.Context(), req.ImageData)
	if err != nil {
		s.respondErrorKind(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.engine.Lookup(r.Context(), query, limit)
	if err != nil {
		s.respondErrorKind(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handleIndexInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.IndexInfo())
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.ModelInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.engine.IndexInfo()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"index_loaded":  info.TotalVectors > 0,
		"total_vectors": info.TotalVectors,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "visearch",
		"version": s.version,
		"endpoints": []string{
			"POST /api/v1/search",
			"POST /api/v1/embed/text",
			"POST /api/v1/embed/image",
			"GET /api/v1/lookup",
			"GET /api/v1/index-info",
			"GET /api/v1/model-info",
			"GET /health",
		},
	})
}

// statusForKind maps an error kind to an HTTP status. Client input problems
// are 400s, a missed deadline is 504, a missing index is 503, and everything
// else is a 500.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindDimensionMismatch, models.KindDegenerateVector:
		return http.StatusBadRequest
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	case models.KindEmptyIndex:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErrorKind(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	s.logger.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	s.respondError(w, statusForKind(kind), models.ClientMessage(err))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
