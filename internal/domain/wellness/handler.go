package wellness

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/pagination"
)

var entryNotFound = httpx.Mapping{Err: ErrEntryNotFound, Status: http.StatusNotFound, Detail: "Subjective Entry not found"}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/patients/:id/subjective", h.ListEntries)
	read.GET("/subjective/:id", h.GetEntry)

	write := api.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/subjective", h.CreateEntry)
	write.PUT("/subjective/:id", h.UpdateEntry)
	write.DELETE("/subjective/:id", h.DeleteEntry)
}

func (h *Handler) CreateEntry(c echo.Context) error {
	var in EntryInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.CreateEntry(c.Request().Context(), &in)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, entryNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEntries(c echo.Context) error {
	patientID, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEntries(c.Request().Context(), patientID, c.QueryParam("metric"), pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateEntry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in EntryInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.UpdateEntry(c.Request().Context(), id, &in)
	if err != nil {
		return httpx.Error(err, entryNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id); err != nil {
		return httpx.Error(err, entryNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}
