package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/core/query"
	"github.com/sean-rowe/geotemp-service/internal/core/validation"
)

// TimestampLayout renders reading timestamps: ISO 8601 in UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// TemperatureHandler serves the /temperatures resource.
type TemperatureHandler struct {
	responder

	service ports.TemperatureService
}

// NewTemperatureHandler creates the temperature endpoints on top of service.
func NewTemperatureHandler(service ports.TemperatureService, logger *zap.Logger) *TemperatureHandler {
	return &TemperatureHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// TemperatureResponse is the JSON projection of a reading.
type TemperatureResponse struct {
	ID        int64   `json:"id"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// RegisterRoutes mounts the temperature endpoints, including the city and
// country scoped listings, on router.
func (h *TemperatureHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/temperatures", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/temperatures", h.List).Methods(http.MethodGet)
	router.HandleFunc("/temperatures/cities/{cityId:[0-9]+}", h.ListByCity).Methods(http.MethodGet)
	router.HandleFunc("/temperatures/countries/{countryId:[0-9]+}", h.ListByCountry).Methods(http.MethodGet)
	router.HandleFunc("/temperatures/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/temperatures/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

// Create handles POST /temperatures. The timestamp is assigned by the server.
//
// Response codes:
//   - 201: Created with {"id": ...}
//   - 400: Invalid payload
//   - 404: Unknown city
//   - 409: The city already has a reading at this instant
func (h *TemperatureHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r, validation.TemperatureCreate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := h.service.Create(r.Context(), payload.Int("cityId"), payload.Float("value"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// List handles GET /temperatures?lat=&lon=&from=&until=.
func (h *TemperatureHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseFilter(r.URL.Query(), query.Options{AllowCoordinates: true})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.list(w, r, filter)
}

// ListByCity handles GET /temperatures/cities/{cityId}?from=&until=.
func (h *TemperatureHandler) ListByCity(w http.ResponseWriter, r *http.Request) {
	h.listScoped(w, r, "cityId", func(f *domain.TemperatureFilter, id int64) { f.CityID = &id })
}

// ListByCountry handles GET /temperatures/countries/{countryId}?from=&until=.
func (h *TemperatureHandler) ListByCountry(w http.ResponseWriter, r *http.Request) {
	h.listScoped(w, r, "countryId", func(f *domain.TemperatureFilter, id int64) { f.CountryID = &id })
}

func (h *TemperatureHandler) listScoped(
	w http.ResponseWriter,
	r *http.Request,
	param string,
	scope func(f *domain.TemperatureFilter, id int64),
) {
	filter, err := query.ParseFilter(r.URL.Query(), query.Options{})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := pathID(r, param)
	if err != nil {
		h.respondWithJSON(w, http.StatusOK, []TemperatureResponse{})
		return
	}

	scope(&filter, id)
	h.list(w, r, filter)
}

func (h *TemperatureHandler) list(w http.ResponseWriter, r *http.Request, filter domain.TemperatureFilter) {
	readings, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := make([]TemperatureResponse, 0, len(readings))
	for _, t := range readings {
		response = append(response, TemperatureResponse{
			ID:        t.ID,
			Value:     t.Value,
			Timestamp: t.Timestamp.UTC().Format(TimestampLayout),
		})
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// Update handles PUT /temperatures/{id}. The reading is re-timestamped.
//
// Response codes:
//   - 200: Updated
//   - 400: Invalid payload, id mismatch or constraint violation
//   - 404: Unknown reading or city
//   - 409: The city already has a reading at the new instant
func (h *TemperatureHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	payload, err := decodePayload(w, r, validation.TemperatureUpdate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := checkIdentifier(id, payload); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), id, payload.Int("cityId"), payload.Float("value")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w)
}

// Delete handles DELETE /temperatures/{id}.
func (h *TemperatureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := requireEmptyBody(r); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w)
}
