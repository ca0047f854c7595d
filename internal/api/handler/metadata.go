package handler

import (
	"net/http"

	"github.com/ecodrive/ecodrive/internal/api/models"
	"github.com/ecodrive/ecodrive/internal/api/response"
)

// supportedCountries scopes free-text place searches. Order matters: it
// is the order the picker presents them in.
var supportedCountries = []string{
	"India", "USA", "United Kingdom", "Canada", "Australia", "Germany", "France",
	"Japan", "China", "Brazil", "Russia", "South Africa", "Italy", "Spain",
	"Netherlands", "Switzerland", "Sweden", "New Zealand", "Singapore", "UAE",
	"Saudi Arabia", "Mexico", "Argentina", "Chile", "Colombia", "Egypt", "Turkey",
	"Thailand", "Vietnam", "Malaysia", "Indonesia", "Philippines", "South Korea",
	"Pakistan", "Bangladesh", "Sri Lanka", "Nepal", "Afghanistan", "Iran", "Iraq",
	"Israel", "Portugal", "Belgium", "Austria", "Norway", "Denmark", "Finland",
	"Ireland", "Poland", "Ukraine", "Greece", "Hungary", "Czech Republic",
}

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// ListCountries handles GET /v1/metadata/countries.
func (h *MetadataHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.CountryList{
		Countries: append([]string(nil), supportedCountries...),
	})
}
