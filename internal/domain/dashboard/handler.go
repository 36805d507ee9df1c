package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/patients/:id/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Load(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	return c.JSON(http.StatusOK, d)
}
