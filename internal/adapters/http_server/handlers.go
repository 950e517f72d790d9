package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/app"
	"review_scraper/internal/domain"
)

type Handlers struct {
	Svc     *app.ReviewService
	Details domain.DetailsSource
	// DefaultCount fills in a missing count query parameter.
	DefaultCount int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/reviews/google-play", h.reviews(domain.GooglePlay))
	s.mux.Get("/api/reviews/app-store", h.reviews(domain.AppStore))
	s.mux.Post("/api/export/google-play", h.export(domain.GooglePlay))
	s.mux.Post("/api/export/app-store", h.export(domain.AppStore))
	s.mux.Get("/api/apps/google-play", h.appDetails)
}

var validSorts = map[domain.Platform]map[string]bool{
	domain.GooglePlay: {domain.SortNewest: true, domain.SortRating: true, domain.SortHelpfulness: true},
	domain.AppStore:   {domain.SortMostRecent: true, domain.SortMostHelpful: true},
}

func defaultSort(p domain.Platform) string {
	if p == domain.AppStore {
		return domain.SortMostRecent
	}
	return domain.SortNewest
}

// parseRequest turns query parameters into a FetchRequest, rejecting
// malformed input before anything upstream is touched.
func (h *Handlers) parseRequest(r *http.Request, p domain.Platform) (domain.FetchRequest, error) {
	q := r.URL.Query()

	appID := q.Get("appId")
	if appID == "" {
		if raw := q.Get("url"); raw != "" {
			id, err := domain.ExtractAppID(p, raw)
			if err != nil {
				return domain.FetchRequest{}, err
			}
			appID = id
		}
	}
	if appID == "" {
		return domain.FetchRequest{}, errors.New("appId or url query parameter is required")
	}

	count := h.DefaultCount
	if count < 1 {
		count = 100
	}
	if cs := q.Get("count"); cs != "" {
		n, err := strconv.Atoi(cs)
		if err != nil || n < 1 {
			return domain.FetchRequest{}, errors.New("count must be an integer >= 1")
		}
		count = n
	}

	sort := q.Get("sort")
	if sort == "" {
		sort = defaultSort(p)
	}
	if !validSorts[p][sort] {
		return domain.FetchRequest{}, errors.New("unsupported sort mode " + strconv.Quote(sort))
	}

	lang := q.Get("lang")
	if lang == "" {
		lang = "en"
	}
	country := q.Get("country")
	if country == "" {
		country = "us"
	}
	return domain.FetchRequest{AppID: appID, Lang: lang, Country: country, Sort: sort, Count: count}, nil
}

type reviewsResponse struct {
	Platform      string          `json:"platform"`
	AppID         string          `json:"appId"`
	Count         int             `json:"count"`
	ReachedTarget bool            `json:"reachedTarget"`
	Exhausted     bool            `json:"exhausted"`
	Partial       bool            `json:"partial"`
	Reviews       []domain.Review `json:"reviews"`
}

func (h *Handlers) reviews(p domain.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.parseRequest(r, p)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		res, err := h.Svc.Fetch(r.Context(), p, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reviewsResponse{
			Platform:      string(p),
			AppID:         req.AppID,
			Count:         len(res.Reviews),
			ReachedTarget: res.ReachedTarget,
			Exhausted:     res.Exhausted,
			Partial:       res.Partial,
			Reviews:       res.Reviews,
		})
	}
}

func (h *Handlers) export(p domain.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.parseRequest(r, p)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		art, err := h.Svc.Export(r.Context(), p, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, art)
	}
}

func (h *Handlers) appDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appID := q.Get("appId")
	if appID == "" {
		if raw := q.Get("url"); raw != "" {
			id, err := domain.ExtractAppID(domain.GooglePlay, raw)
			if err != nil {
				writeError(w, err)
				return
			}
			appID = id
		}
	}
	if appID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "appId or url query parameter is required")
		return
	}
	d, err := h.Details.Details(r.Context(), appID, q.Get("lang"), q.Get("country"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// writeError maps the failure taxonomy to a status and category label; no
// internal detail beyond the wrapped message leaves the process.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrNoReviews):
		writeProblem(w, http.StatusNotFound, "Nothing To Export", err.Error())
	case errors.Is(err, domain.ErrPageFetch):
		writeProblem(w, http.StatusBadGateway, "Upstream Incomplete", err.Error())
	case errors.Is(err, domain.ErrFetchFailed):
		writeProblem(w, http.StatusBadGateway, "Upstream Fetch Failed", err.Error())
	case errors.Is(err, domain.ErrExport):
		writeProblem(w, http.StatusInternalServerError, "Export Failed", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "unexpected failure")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}
