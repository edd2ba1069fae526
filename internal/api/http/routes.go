package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// WeatherService is what the handlers need from weather.Service.
type WeatherService interface {
	Search(ctx context.Context, city string) (weather.WeatherReport, error)
	History(ctx context.Context) ([]weather.HistoryEntry, error)
	RemoveHistory(ctx context.Context, id string) error
}

// searchRequest is the body of POST /api/weather.
type searchRequest struct {
	CityName string `json:"cityName" validate:"required"`
}

// RegisterRoutes wires the weather and history handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service WeatherService, logger *zap.Logger) {
	api := app.Group("/api/weather")

	api.Post("/", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "request body must be JSON with a cityName")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "cityName is required")
		}

		report, err := service.Search(c.UserContext(), req.CityName)
		if err != nil {
			return err
		}

		logger.Debug("weather report served",
			zap.String("city", report.Current.City),
			zap.Int("records", report.Len()),
			zap.String("request_id", requestID(c)))
		return c.JSON(report)
	})

	api.Get("/history", func(c *fiber.Ctx) error {
		entries, err := service.History(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})

	api.Delete("/history/:id", func(c *fiber.Ctx) error {
		if err := service.RemoveHistory(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// statusFor maps an error to the HTTP status and the message clients see.
// Upstream details stay in the logs.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, weather.ErrValidation):
		return fiber.StatusBadRequest, "cityName is required"
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound, "city not found"
	case errors.Is(err, weather.ErrConfiguration):
		return fiber.StatusInternalServerError, "weather service is not configured"
	case errors.Is(err, weather.ErrMissingData):
		return fiber.StatusInternalServerError, "weather provider returned incomplete data"
	case errors.Is(err, weather.ErrUpstream):
		return fiber.StatusInternalServerError, "failed to fetch weather data"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
