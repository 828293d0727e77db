package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-widgets/internal/search"
	"github.com/i474232898/weather-widgets/internal/store"
	"github.com/i474232898/weather-widgets/internal/weather"
)

var validate = validator.New()

const serviceName = "weather-widgets"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, locations *search.Service) {
	app.Get("/health", health)

	v1 := app.Group("/api/v1")
	v1.Get("/health", health)

	v1.Get("/locations", func(c *fiber.Ctx) error {
		results, err := locations.Search(c.UserContext(), c.Query("q"))
		if err != nil {
			return err
		}
		return c.JSON(results)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		q, err := parseWeatherQuery(c)
		if err != nil {
			return err
		}

		// wait=false reports the cached state and loading flags without blocking
		if !c.QueryBool("wait", true) {
			return c.JSON(service.WeatherState(q.City))
		}

		view := service.WeatherData(c.UserContext(), q.City)
		if view.IsError && view.WeatherData == nil {
			return view.Err
		}
		return c.JSON(view)
	})

	v1.Post("/weather/refetch", func(c *fiber.Ctx) error {
		q, err := parseWeatherQuery(c)
		if err != nil {
			return err
		}
		service.Refetch(q.City)
		return c.Status(fiber.StatusAccepted).JSON(service.WeatherState(q.City))
	})

	widgets := v1.Group("/widgets")

	widgets.Get("/", func(c *fiber.Ctx) error {
		list := service.ListWidgets()
		out := make([]widgetResponse, 0, len(list))
		for _, w := range list {
			out = append(out, toWidgetResponse(w, service.Formatter()))
		}
		return c.JSON(out)
	})

	widgets.Post("/", func(c *fiber.Ctx) error {
		var req addWidgetRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		req.City = strings.TrimSpace(req.City)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		w, err := service.AddWidget(c.UserContext(), req.City)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toWidgetResponse(w, service.Formatter()))
	})

	widgets.Get("/:id", func(c *fiber.Ctx) error {
		w, err := service.GetWidget(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toWidgetResponse(w, service.Formatter()))
	})

	widgets.Post("/:id/refresh", func(c *fiber.Ctx) error {
		w, err := service.RefreshWidget(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toWidgetResponse(w, service.Formatter()))
	})

	widgets.Patch("/:id", func(c *fiber.Ctx) error {
		var req patchWidgetRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		w, err := service.SetForecastDays(c.Params("id"), *req.ForecastDays)
		if err != nil {
			return err
		}
		return c.JSON(toWidgetResponse(w, service.Formatter()))
	})

	widgets.Delete("/:id", func(c *fiber.Ctx) error {
		if err := service.DeleteWidget(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": serviceName,
	})
}

// ErrorHandler is the centralized error response. Domain errors map to
// statuses; anything else is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{
		"error":   true,
		"message": err.Error(),
	}

	var (
		fe *fiber.Error
		rf *weather.RequestFailed
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &rf):
		code = fiber.StatusBadGateway
		body["upstreamStatus"] = rf.Status
		body["upstreamStatusText"] = rf.StatusText
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, weather.ErrInvalidForecastDays), errors.Is(err, weather.ErrEmptyCity):
		code = fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusGatewayTimeout
	}

	return c.Status(code).JSON(body)
}

type weatherQuery struct {
	City string `validate:"required"`
}

func parseWeatherQuery(c *fiber.Ctx) (weatherQuery, error) {
	q := weatherQuery{City: strings.TrimSpace(c.Query("city"))}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, nil
}

type addWidgetRequest struct {
	City string `json:"city" validate:"required"`
}

type patchWidgetRequest struct {
	ForecastDays *int `json:"forecastDays" validate:"required,min=1,max=6"`
}

// widgetResponse adds display-derived fields to a stored widget.
type widgetResponse struct {
	weather.Widget
	VisibleDaily     []weather.DailyEntry `json:"visibleDaily"`
	Condition        weather.Condition    `json:"condition"`
	LastUpdatedLabel string               `json:"lastUpdatedLabel"`
}

func toWidgetResponse(w weather.Widget, f weather.Formatter) widgetResponse {
	return widgetResponse{
		Widget:           w,
		VisibleDaily:     w.VisibleDaily(),
		Condition:        w.Condition(),
		LastUpdatedLabel: f.LastUpdated(w.LastUpdated),
	}
}
