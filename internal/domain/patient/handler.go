package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/pagination"
)

// Handler provides HTTP handlers for the patient registry.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)

	write := api.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.DELETE("/patients/:id", h.DeletePatient)
}

// NotFound maps ErrPatientNotFound for every handler that loads a patient.
var NotFound = httpx.Mapping{Err: ErrPatientNotFound, Status: http.StatusNotFound, Detail: "Patient not found"}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := httpx.Bind(c, &p); err != nil {
		return err
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpx.Error(err, NotFound)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, NotFound)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{Name: c.QueryParam("name")}
	items, total, err := h.svc.ListPatients(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err, NotFound)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var u PatientUpdate
	if err := httpx.Bind(c, &u); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, &u)
	if err != nil {
		return httpx.Error(err, NotFound)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpx.Error(err, NotFound)
	}
	return c.NoContent(http.StatusNoContent)
}
