package bodycomp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/pagination"
)

var (
	bioNotFound    = httpx.Mapping{Err: ErrBioimpedanceNotFound, Status: http.StatusNotFound, Detail: "Bioimpedance Entry not found"}
	anthroNotFound = httpx.Mapping{Err: ErrAnthropometryNotFound, Status: http.StatusNotFound, Detail: "Anthropometry Entry not found"}
)

// Handler provides HTTP handlers for body composition records.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/patients/:id/bioimpedance", h.ListBioimpedance)
	read.GET("/bioimpedance/:id", h.GetBioimpedance)
	read.GET("/patients/:id/anthropometry", h.ListAnthropometry)
	read.GET("/anthropometry/:id", h.GetAnthropometry)

	write := api.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/bioimpedance", h.CreateBioimpedance)
	write.PUT("/bioimpedance/:id", h.UpdateBioimpedance)
	write.DELETE("/bioimpedance/:id", h.DeleteBioimpedance)
	write.POST("/anthropometry", h.CreateAnthropometry)
	write.PUT("/anthropometry/:id", h.UpdateAnthropometry)
	write.DELETE("/anthropometry/:id", h.DeleteAnthropometry)
}

// -- Bioimpedance --

func (h *Handler) CreateBioimpedance(c echo.Context) error {
	var in BioimpedanceInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.CreateBioimpedance(c.Request().Context(), &in)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetBioimpedance(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.GetBioimpedance(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, bioNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListBioimpedance(c echo.Context) error {
	patientID, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBioimpedance(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateBioimpedance(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in BioimpedanceInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.UpdateBioimpedance(c.Request().Context(), id, &in)
	if err != nil {
		return httpx.Error(err, bioNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteBioimpedance(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBioimpedance(c.Request().Context(), id); err != nil {
		return httpx.Error(err, bioNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Anthropometry --

func (h *Handler) CreateAnthropometry(c echo.Context) error {
	var in AnthropometryInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.CreateAnthropometry(c.Request().Context(), &in)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetAnthropometry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.GetAnthropometry(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, anthroNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListAnthropometry(c echo.Context) error {
	patientID, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAnthropometry(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateAnthropometry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in AnthropometryInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.UpdateAnthropometry(c.Request().Context(), id, &in)
	if err != nil {
		return httpx.Error(err, anthroNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteAnthropometry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAnthropometry(c.Request().Context(), id); err != nil {
		return httpx.Error(err, anthroNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}
