package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/report"
	"github.com/wms-platform/slotting-simulator/pkg/errors"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
	"github.com/wms-platform/slotting-simulator/pkg/resilience"
)

var registerOnce sync.Once

// Register installs the strategy validator and the HTTP mapping of domain
// errors. It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		_ = middleware.RegisterValidation("strategy", "must be a known slotting strategy", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseStrategy(fl.Field().String())
			return err == nil
		})

		for _, err := range []error{domain.ErrSlotNotFound, domain.ErrArticleNotFound, domain.ErrRunNotFound} {
			errors.Register(err, errors.CodeNotFound, http.StatusNotFound)
		}
		for _, err := range []error{
			domain.ErrInvalidStrategy,
			domain.ErrInvalidArticleID,
			domain.ErrInvalidRequest,
			domain.ErrInvalidClassTable,
			report.ErrUnsupportedFormat,
		} {
			errors.Register(err, errors.CodeValidationError, http.StatusBadRequest)
		}
		for _, err := range []error{
			domain.ErrUnknownSlotCode,
			domain.ErrNoDestinationSlot,
			domain.ErrCapacityExhausted,
			domain.ErrNoMixedSlot,
		} {
			errors.Register(err, errors.CodeUnprocessable, http.StatusUnprocessableEntity)
		}
		errors.Register(domain.ErrContentAPIDisabled, errors.CodeServiceUnavailable, http.StatusServiceUnavailable)
		errors.Register(resilience.ErrCircuitOpen, errors.CodeServiceUnavailable, http.StatusServiceUnavailable)
	})
}

// SimulationQuery is the query string of a simulation request
type SimulationQuery struct {
	Strategy            string `form:"strategy" binding:"required,strategy"`
	Date                string `form:"date" binding:"required,datetime=2006-01-02"`
	NumberOfDays        int    `form:"numberOfDays" binding:"required,gte=1"`
	BetterPicklists     bool   `form:"betterPicklists"`
	NumberOfClasses     int    `form:"numberOfClasses,default=2" binding:"gte=1"`
	OptimizedGroundzone bool   `form:"optimizedGroundzone"`
	ExactForecast       bool   `form:"exactForecast"`
	Seed                int64  `form:"seed"`
}

// Request converts the query into a simulation request
func (q SimulationQuery) Request() (domain.SimulationRequest, error) {
	strategy, err := domain.ParseStrategy(q.Strategy)
	if err != nil {
		return domain.SimulationRequest{}, err
	}
	date, err := parseDate(q.Date)
	if err != nil {
		return domain.SimulationRequest{}, err
	}
	return domain.SimulationRequest{
		Strategy:            strategy,
		StartDate:           date,
		NumberOfDays:        q.NumberOfDays,
		BetterPicklists:     q.BetterPicklists,
		NumberOfClasses:     q.NumberOfClasses,
		OptimizedGroundZone: q.OptimizedGroundzone,
		ExactForecast:       q.ExactForecast,
		Seed:                q.Seed,
	}, nil
}

// DateQuery is the query string of commands operating on one day
type DateQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// PicklistQuery is the query string of the pick list preview
type PicklistQuery struct {
	Date            string `form:"date" binding:"required,datetime=2006-01-02"`
	BetterPicklists bool   `form:"betterPicklists"`
	Count           int    `form:"count" binding:"gte=0"`
	Seed            int64  `form:"seed"`
}

// RunsQuery is the query string of the run listing
type RunsQuery struct {
	Limit int `form:"limit,default=20" binding:"gte=1,lte=100"`
}

func parseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}, errors.ErrValidationWithFields("invalid date", map[string]string{"date": "must be formatted as YYYY-MM-DD"})
	}
	return date, nil
}

// passThrough returns guard, or a no-op handler when guard is nil
func passThrough(guard gin.HandlerFunc) gin.HandlerFunc {
	if guard != nil {
		return guard
	}
	return func(c *gin.Context) { c.Next() }
}
