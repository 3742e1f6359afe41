package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	geocodeService "github.com/zhouzirui/whats-eat/backend/internal/service/geocode"
	"github.com/zhouzirui/whats-eat/backend/pkg/utils"
)

// Geocoder resolves a free-form address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocodeService.Coordinates, error)
}

// Handler 地址解析处理器
type Handler struct {
	geocoder Geocoder
}

// New 创建地址解析处理器
func New(geocoder Geocoder) *Handler {
	return &Handler{geocoder: geocoder}
}

// RegisterRoutes 注册地址解析路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/geocode", h.handleGeocode)
}

func (h *Handler) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coords, err := h.geocoder.Geocode(r.Context(), payload.Address)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, geocodeService.ErrAddressRequired):
			status = http.StatusBadRequest
		case errors.Is(err, geocodeService.ErrNoResults):
			status = http.StatusNotFound
		case errors.Is(err, geocodeService.ErrNotConfigured):
			status = http.StatusServiceUnavailable
		default:
			log.Printf("[geocode] lookup failed: %v", err)
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, coords)
}
