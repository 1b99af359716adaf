package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/core/validation"
)

// CityHandler serves the /cities resource.
type CityHandler struct {
	responder

	service ports.CityService
}

// NewCityHandler creates the city endpoints on top of service.
func NewCityHandler(service ports.CityService, logger *zap.Logger) *CityHandler {
	return &CityHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// CityResponse is the JSON projection of a city.
type CityResponse struct {
	ID        int64   `json:"id"`
	CountryID int64   `json:"countryId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// RegisterRoutes mounts the city endpoints on router.
func (h *CityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cities", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/cities", h.List).Methods(http.MethodGet)
	router.HandleFunc("/cities/country/{countryId:[0-9]+}", h.ListByCountry).Methods(http.MethodGet)
	router.HandleFunc("/cities/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/cities/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

func cityFromPayload(id int64, payload validation.Payload) domain.City {
	return domain.City{
		ID:        id,
		CountryID: payload.Int("countryId"),
		Name:      payload.String("name"),
		Coordinates: domain.Coordinates{
			Latitude:  payload.Float("lat"),
			Longitude: payload.Float("lon"),
		},
	}
}

func (h *CityHandler) respondWithCities(w http.ResponseWriter, cities []domain.City) {
	response := make([]CityResponse, 0, len(cities))
	for _, c := range cities {
		response = append(response, CityResponse{
			ID:        c.ID,
			CountryID: c.CountryID,
			Name:      c.Name,
			Latitude:  c.Coordinates.Latitude,
			Longitude: c.Coordinates.Longitude,
		})
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// Create handles POST /cities.
//
// Response codes:
//   - 201: Created with {"id": ...}
//   - 400: Invalid payload
//   - 404: Unknown country
//   - 409: The country already has a city with this name
func (h *CityHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r, validation.CityCreate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := h.service.Create(r.Context(), cityFromPayload(0, payload))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// List handles GET /cities.
func (h *CityHandler) List(w http.ResponseWriter, r *http.Request) {
	cities, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithCities(w, cities)
}

// ListByCountry handles GET /cities/country/{countryId}. An unknown country
// yields an empty list.
func (h *CityHandler) ListByCountry(w http.ResponseWriter, r *http.Request) {
	countryID, err := pathID(r, "countryId")
	if err != nil {
		h.respondWithCities(w, nil)
		return
	}

	cities, err := h.service.ListByCountry(r.Context(), countryID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithCities(w, cities)
}

// Update handles PUT /cities/{id}.
//
// Response codes:
//   - 200: Updated
//   - 400: Invalid payload, id mismatch or constraint violation
//   - 404: Unknown city or country
//   - 409: The country already has another city with this name
func (h *CityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	payload, err := decodePayload(w, r, validation.CityUpdate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := checkIdentifier(id, payload); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), cityFromPayload(id, payload)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w)
}

// Delete handles DELETE /cities/{id}.
func (h *CityHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
