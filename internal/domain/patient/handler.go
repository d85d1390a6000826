package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cedar/patient-tracker/pkg/pagination"
)

type Handler struct {
	svc      *Service
	maxLimit int
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SetMaxLimit caps the page size of ListPatients. Zero means no cap.
func (h *Handler) SetMaxLimit(n int) { h.maxLimit = n }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")

	g.POST("", h.CreatePatient)
	g.POST("/", h.CreatePatient)
	g.GET("", h.ListPatients)
	g.GET("/", h.ListPatients)
	g.GET("/mri/:mri", h.GetPatientByMRI)
	g.GET("/:id", h.GetPatient)
	g.PUT("/:id", h.UpdatePatient)
	g.DELETE("/:id", h.DeletePatient)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	if err := h.svc.CreatePatient(c.Request().Context(), p); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg, err := pagination.FromContext(c, h.maxLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	ctx := c.Request().Context()
	items, err := h.svc.ListPatients(ctx, pg.Limit, pg.Skip)
	if err != nil {
		return toHTTPError(err)
	}
	if total, err := h.svc.CountPatients(ctx); err == nil {
		c.Response().Header().Set(pagination.TotalCountHeader, strconv.Itoa(total))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetPatientByMRI never reports absence as an error; it answers {"result": 2}.
func (h *Handler) GetPatientByMRI(c echo.Context) error {
	result, err := h.svc.LookupMRI(c.Request().Context(), c.Param("mri"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, MRIResult{Result: result})
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), p); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, true)
}

func bindPatient(c echo.Context) (*Patient, error) {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	p, err := in.Patient()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return p, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	return id, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, "Patient with this MRI already exists")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return err
}
