package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"school-api/internal/models"
	"school-api/internal/pipeline"
	"school-api/internal/util"
)

// SchoolHTTP is the boundary demonstrator for tenant-scoped entity access:
// it consumes the pipeline's effective scope and never re-derives it from
// raw claims. Full entity CRUD lives outside this subsystem.
type SchoolHTTP struct {
	DB *gorm.DB
}

func (h *SchoolHTTP) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Pagination(page, size)

	var schools []models.School
	if err := h.DB.WithContext(c.Request().Context()).
		Where("is_deleted = ?", false).
		Order("id").
		Offset(offset).Limit(limit).
		Find(&schools).Error; err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":   true,
		"data": echo.Map{"schools": schools},
	})
}

func (h *SchoolHTTP) Get(c echo.Context) error {
	ac := pipeline.FromEcho(c)

	// The scoping stage already derived the tenant this caller may act on.
	if c.Param("id") != ac.EffectiveSchoolID {
		return reject(c, http.StatusForbidden, "forbidden", "access to this school is not allowed")
	}

	id, err := strconv.ParseUint(ac.EffectiveSchoolID, 10, 64)
	if err != nil {
		return reject(c, http.StatusBadRequest, "validation", "invalid school id")
	}

	var school models.School
	if err := h.DB.WithContext(c.Request().Context()).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&school).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(c, http.StatusNotFound, "not_found", "school not found")
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":   true,
		"data": echo.Map{"school": school},
	})
}

func (h *SchoolHTTP) Create(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return reject(c, http.StatusBadRequest, "validation", "name is required")
	}

	school := models.School{Name: req.Name, Address: req.Address, Phone: req.Phone}
	if err := h.DB.WithContext(c.Request().Context()).Create(&school).Error; err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"ok":   true,
		"data": echo.Map{"school": school},
	})
}
