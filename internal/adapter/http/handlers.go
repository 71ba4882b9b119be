package http

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/pipeline"
)

type searchRequest struct {
	Location string         `json:"location"`
	Filters  domain.Filters `json:"filters"`
}

// propertyView is a Property with the display strings the map client shows.
type propertyView struct {
	domain.Property
	FormattedPrice     string `json:"formattedPrice"`
	FormattedSqft      string `json:"formattedSqft"`
	FormattedElevation string `json:"formattedElevation"`
}

type searchResponse struct {
	Success    bool           `json:"success"`
	Properties []propertyView `json:"properties"`
	Total      int            `json:"total"`
	Source     string         `json:"source,omitempty"`
	Endpoint   string         `json:"endpoint,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type propertiesResponse struct {
	Query      pipeline.Query `json:"query"`
	Properties []propertyView `json:"properties"`
	Total      int            `json:"total"`
}

type propertyResponse struct {
	Success  bool          `json:"success"`
	Property *propertyView `json:"property,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type elevationResponse struct {
	Elevation *float64 `json:"elevation"`
	Formatted string   `json:"formatted"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func viewOf(p domain.Property) propertyView {
	return propertyView{
		Property:           p,
		FormattedPrice:     domain.FormatPrice(p.Price),
		FormattedSqft:      domain.FormatSqft(p.Sqft),
		FormattedElevation: domain.FormatElevation(p.Elevation),
	}
}

func viewsOf(props []domain.Property) []propertyView {
	out := make([]propertyView, len(props))
	for i := range props {
		out[i] = viewOf(props[i])
	}
	return out
}

// SessionHeader names the client session a request belongs to. Requests
// without it are grouped by client IP.
const SessionHeader = "X-Session-ID"

const maxSessionIDLen = 128

func sessionKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" && len(id) <= maxSessionIDLen {
		return "id:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Success: false, Error: msg})
}

func (s *Server) handleSearchBody(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, req)
}

func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := parseFilters(q.Get)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.search(w, r, searchRequest{Location: q.Get("location"), Filters: filters})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req searchRequest) {
	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" {
		renderError(w, r, http.StatusBadRequest, "location is required")
		return
	}
	if err := validateFilters(req.Filters); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deps.Searches.RunQuery(r.Context(), sessionKey(r), pipeline.Query{Location: req.Location, Filters: req.Filters})
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		renderError(w, r, http.StatusConflict, "superseded by a newer search")
		return
	case err != nil:
		renderError(w, r, http.StatusServiceUnavailable, "search cancelled")
		return
	}

	if !result.Success {
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, searchResponse{
		Success:    result.Success,
		Properties: viewsOf(result.Properties),
		Total:      result.Total,
		Source:     result.Source,
		Endpoint:   result.Endpoint,
		Error:      result.Error,
	})
}

// validateFilters applies the same rules to body and query-string filters.
func validateFilters(f domain.Filters) error {
	for _, c := range []struct {
		key string
		v   *int
	}{
		{"minPrice", f.MinPrice},
		{"maxPrice", f.MaxPrice},
		{"bedrooms", f.Bedrooms},
		{"bathrooms", f.Bathrooms},
	} {
		if c.v != nil && *c.v < 0 {
			return errors.New("invalid " + c.key)
		}
	}
	if pt := f.PropertyType; pt != nil && *pt != "" && !pt.Valid() {
		return errors.New("invalid propertyType")
	}
	return nil
}

// parseFilters reads filter values from query parameters. Empty values are
// treated as unset.
func parseFilters(get func(string) string) (domain.Filters, error) {
	var f domain.Filters
	ints := []struct {
		key string
		dst **int
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
		{"bedrooms", &f.Bedrooms},
		{"bathrooms", &f.Bathrooms},
	}
	for _, p := range ints {
		v := get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.Filters{}, errors.New("invalid " + p.key)
		}
		*p.dst = &n
	}
	if v := get("propertyType"); v != "" {
		t := domain.PropertyType(v)
		f.PropertyType = &t
	}
	return f, nil
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	props := s.deps.Searches.Properties(key)
	render.JSON(w, r, propertiesResponse{
		Query:      s.deps.Searches.Published(key),
		Properties: viewsOf(props),
		Total:      len(props),
	})
}

func (s *Server) handleProperty(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Listings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if !res.Success || res.Property == nil {
		renderError(w, r, http.StatusNotFound, res.Error)
		return
	}
	v := viewOf(*res.Property)
	render.JSON(w, r, propertyResponse{Success: true, Property: &v})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		renderError(w, r, http.StatusBadRequest, "address is required")
		return
	}
	render.JSON(w, r, s.deps.Listings.GeocodeAddress(r.Context(), address))
}

func (s *Server) handleElevation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || math.IsNaN(lat) || math.IsNaN(lng) ||
		lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		renderError(w, r, http.StatusBadRequest, "lat and lng must be valid coordinates")
		return
	}
	if s.deps.Elevation == nil {
		render.JSON(w, r, elevationResponse{Formatted: domain.FormatElevation(nil)})
		return
	}

	elev, err := s.deps.Elevation.GetElevation(r.Context(), domain.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		renderError(w, r, http.StatusServiceUnavailable, "elevation lookup cancelled")
		return
	}
	render.JSON(w, r, elevationResponse{Elevation: elev, Formatted: domain.FormatElevation(elev)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.deps.Listings.RateLimitStatus())
}
