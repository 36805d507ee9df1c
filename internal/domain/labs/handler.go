package labs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/fhir"
	"github.com/ehr/clinic/internal/platform/httpx"
	"github.com/ehr/clinic/pkg/pagination"
)

var (
	definitionNotFound = httpx.Mapping{Err: ErrDefinitionNotFound, Status: http.StatusNotFound, Detail: "Lab Test Definition not found"}
	resultNotFound     = httpx.Mapping{Err: ErrResultNotFound, Status: http.StatusNotFound, Detail: "Lab Result not found"}
	definitionInUse    = httpx.Mapping{Err: ErrDefinitionInUse, Status: http.StatusConflict, Detail: "Lab Test Definition has results and cannot be deleted"}
	duplicateName      = httpx.Mapping{Err: ErrDuplicateName, Status: http.StatusConflict, Detail: "Lab Test Definition name already exists"}
)

// Handler provides HTTP handlers for the lab catalog, lab results and alerts.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/lab-definitions", h.ListDefinitions)
	read.GET("/lab-definitions/:id", h.GetDefinition)
	read.GET("/lab-results/:id", h.GetResult)
	read.GET("/patients/:id/lab-results", h.ListPatientResults)
	read.GET("/patients/:id/lab-alerts", h.PatientAlerts)

	write := api.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/lab-definitions", h.CreateDefinition)
	write.PUT("/lab-definitions/:id", h.UpdateDefinition)
	write.DELETE("/lab-definitions/:id", h.DeleteDefinition)
	write.POST("/lab-results", h.CreateResult)
	write.PUT("/lab-results/:id", h.UpdateResult)
	write.DELETE("/lab-results/:id", h.DeleteResult)

	fhirRead := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	fhirRead.GET("/Observation", h.SearchObservationsFHIR)
	fhirRead.GET("/Observation/:id", h.GetObservationFHIR)
}

// -- Definitions --

func (h *Handler) CreateDefinition(c echo.Context) error {
	var d LabTestDefinition
	if err := httpx.Bind(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDefinition(c.Request().Context(), &d); err != nil {
		return httpx.Error(err, duplicateName)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDefinition(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDefinition(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, definitionNotFound)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDefinitions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDefinitions(c.Request().Context(), c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateDefinition(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var u DefinitionUpdate
	if err := httpx.Bind(c, &u); err != nil {
		return err
	}
	d, err := h.svc.UpdateDefinition(c.Request().Context(), id, &u)
	if err != nil {
		return httpx.Error(err, definitionNotFound, duplicateName)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDefinition(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDefinition(c.Request().Context(), id); err != nil {
		return httpx.Error(err, definitionNotFound, definitionInUse)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Results --

func (h *Handler) CreateResult(c echo.Context) error {
	var in LabResultInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	r, err := h.svc.CreateResult(c.Request().Context(), &in)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetResult(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err, resultNotFound)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListPatientResults(c echo.Context) error {
	patientID, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatientResults(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateResult(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in LabResultInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	r, err := h.svc.UpdateResult(c.Request().Context(), id, &in)
	if err != nil {
		return httpx.Error(err, resultNotFound)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteResult(c echo.Context) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteResult(c.Request().Context(), id); err != nil {
		return httpx.Error(err, resultNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Alerts --

// PatientAlerts returns the patient's abnormal results. The optional limit
// only shortens the body; X-Total-Count always carries the full count.
func (h *Handler) PatientAlerts(c echo.Context) error {
	patientID, err := httpx.ParseID(c, "id")
	if err != nil {
		return err
	}
	alerts, err := h.svc.PatientAlerts(c.Request().Context(), patientID)
	if err != nil {
		return httpx.Error(err, patient.NotFound)
	}
	pagination.SetTotal(c, len(alerts))
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		if n < len(alerts) {
			alerts = alerts[:n]
		}
	}
	return c.JSON(http.StatusOK, alerts)
}

// -- FHIR --

func (h *Handler) SearchObservationsFHIR(c echo.Context) error {
	patientID, err := httpx.QueryID(c, "patient")
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("patient search parameter must be a positive id"))
	}
	pg := pagination.FromContext(c)
	obs, total, err := h.svc.PatientObservations(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return h.fhirError(c, err, "Patient", strconv.FormatInt(patientID, 10))
	}
	bundle, err := fhir.NewSearchBundle(obs, total, "/fhir/Observation", "patient="+strconv.FormatInt(patientID, 10), pg)
	if err != nil {
		return h.fhirError(c, err, "Observation", "")
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetObservationFHIR(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}
	obs, err := h.svc.Observation(c.Request().Context(), id)
	if err != nil {
		return h.fhirError(c, err, "Observation", c.Param("id"))
	}
	return c.JSON(http.StatusOK, obs)
}

// fhirError answers with an OperationOutcome. Not-found errors name the
// resource that was asked for.
func (h *Handler) fhirError(c echo.Context, err error, resourceType, id string) error {
	if errors.Is(err, ErrResultNotFound) || errors.Is(err, ErrDefinitionNotFound) || errors.Is(err, patient.ErrPatientNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome(resourceType, id))
	}
	log.Error().Err(err).Str("resource", resourceType).Str("id", id).Msg("fhir request failed")
	return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("internal server error"))
}
