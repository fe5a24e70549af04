package handlers

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mdnaeem95/halaltech/internal/models"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/response"
	appvalidator "github.com/mdnaeem95/halaltech/pkg/validator"
)

func init() {
	if err := appvalidator.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return validate(c, dest)
}

// bindOptional is bindAndValidate for endpoints whose body may be omitted.
func bindOptional[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return validate(c, dest)
}

func validate(c *gin.Context, dest any) bool {
	err := appvalidator.ValidateStruct(dest)
	if err == nil {
		return true
	}
	var failures appvalidator.ValidationErrors
	if errors.As(err, &failures) {
		response.Error(c, apperrors.ErrValidation.WithDetails(failures.Fields()))
		return false
	}
	response.Error(c, apperrors.ErrValidation)
	return false
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string) bool {
	parsed, _ := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return parsed
}

// parseOptionalBool distinguishes an absent parameter from false.
func parseOptionalBool(c *gin.Context, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, apperrors.NewBadRequest(key + " must be true or false")
	}
	return &parsed, nil
}

func parseOptionalFloat(c *gin.Context, key string) (*float64, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, apperrors.NewBadRequest(key + " must be a number")
	}
	return &parsed, nil
}

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pageParams reads page and per_page with the same bounds the services apply.
func pageParams(c *gin.Context, defaultSize, maxSize int) (int, int) {
	page := max(parseIntQuery(c, "page", 1), 1)
	perPage := parseIntQuery(c, "per_page", defaultSize)
	if perPage <= 0 || perPage > maxSize {
		perPage = defaultSize
	}
	return page, perPage
}
