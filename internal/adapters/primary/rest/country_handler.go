package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/core/validation"
)

// CountryHandler serves the /countries resource.
type CountryHandler struct {
	responder

	service ports.CountryService
}

// NewCountryHandler creates the country endpoints on top of service.
func NewCountryHandler(service ports.CountryService, logger *zap.Logger) *CountryHandler {
	return &CountryHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// CountryResponse is the JSON projection of a country.
type CountryResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// RegisterRoutes mounts the country endpoints on router.
func (h *CountryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/countries", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/countries", h.List).Methods(http.MethodGet)
	router.HandleFunc("/countries/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/countries/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

// Create handles POST /countries.
//
// Response codes:
//   - 201: Created with {"id": ...}
//   - 400: Malformed payload, missing field or wrong type
//   - 409: A country with the same name exists
func (h *CountryHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r, validation.CountryCreate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := h.service.Create(r.Context(), domain.Country{
		Name: payload.String("name"),
		Coordinates: domain.Coordinates{
			Latitude:  payload.Float("lat"),
			Longitude: payload.Float("lon"),
		},
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// List handles GET /countries.
func (h *CountryHandler) List(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := make([]CountryResponse, 0, len(countries))
	for _, c := range countries {
		response = append(response, CountryResponse{
			ID:        c.ID,
			Name:      c.Name,
			Latitude:  c.Coordinates.Latitude,
			Longitude: c.Coordinates.Longitude,
		})
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// Update handles PUT /countries/{id}.
//
// Response codes:
//   - 200: Updated
//   - 400: Invalid payload, id mismatch or constraint violation
//   - 404: Unknown country
//   - 409: Another country holds the name
func (h *CountryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	payload, err := decodePayload(w, r, validation.CountryUpdate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := checkIdentifier(id, payload); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	err = h.service.Update(r.Context(), domain.Country{
		ID:   id,
		Name: payload.String("name"),
		Coordinates: domain.Coordinates{
			Latitude:  payload.Float("lat"),
			Longitude: payload.Float("lon"),
		},
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w)
}

// Delete handles DELETE /countries/{id}. Cities and their temperatures are
// removed with the country.
func (h *CountryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
