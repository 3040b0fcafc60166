package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/okozachenko/weather-archive/internal/export"
	"github.com/okozachenko/weather-archive/internal/geo"
	"github.com/okozachenko/weather-archive/internal/store"
	"github.com/okozachenko/weather-archive/internal/weather"
)

var validate = validator.New()

// Handlers bundles the services the HTTP layer dispatches to.
type Handlers struct {
	Service  *weather.Service
	Resolver *geo.Resolver
	Exporter *export.Engine
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/weather")

	api.Get("/current", func(c *fiber.Ctx) error {
		location := c.Query("location")
		if location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location query parameter is required")
		}

		snapshot, err := h.Service.Current(c.Context(), location)
		if err != nil {
			return apiError(err, "failed to fetch current weather")
		}
		return c.JSON(snapshot)
	})

	api.Get("/forecast", func(c *fiber.Ctx) error {
		location := c.Query("location")
		if location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location query parameter is required")
		}

		forecast, err := h.Service.Forecast(c.Context(), location)
		if err != nil {
			return apiError(err, "failed to fetch forecast")
		}
		return c.JSON(fiber.Map{"location": location, "forecast": forecast})
	})

	api.Get("/search", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))

		places, err := h.Resolver.Search(c.Context(), c.Query("q"), limit)
		if err != nil {
			return apiError(err, "location search failed")
		}
		return c.JSON(fiber.Map{"results": places})
	})

	api.Get("/details", func(c *fiber.Ctx) error {
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
		if latErr != nil || lonErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
		}

		place, err := h.Resolver.ReverseGeocode(c.Context(), lat, lon)
		if err != nil {
			return apiError(err, "reverse geocoding failed")
		}
		if place == nil {
			return fiber.NewError(fiber.StatusNotFound, "no place found at coordinates")
		}
		return c.JSON(place)
	})

	registerHistoryRoutes(api, h)
	registerExportRoutes(api, h)
}

// createHistoryRequest is the POST /history body.
type createHistoryRequest struct {
	Location  string `json:"location" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// updateHistoryRequest is the PUT /history/:id body. Absent fields leave the
// record unchanged.
type updateHistoryRequest struct {
	Location  *string `json:"location"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func registerHistoryRoutes(api fiber.Router, h Handlers) {
	api.Post("/history", func(c *fiber.Ctx) error {
		var req createHistoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.EndDate < req.StartDate {
			return fiber.NewError(fiber.StatusBadRequest, "end_date must not precede start_date")
		}

		id, err := h.Service.CreateHistory(c.Context(), req.Location, req.StartDate, req.EndDate)
		if err != nil {
			return apiError(err, "failed to create history record")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	api.Get("/history", func(c *fiber.Ctx) error {
		records, err := h.Service.History(c.Context())
		if err != nil {
			return apiError(err, "failed to list history records")
		}
		if records == nil {
			records = []store.Record{}
		}
		return c.JSON(fiber.Map{"records": records})
	})

	api.Get("/history/:id", func(c *fiber.Ctx) error {
		record, err := h.Service.HistoryRecord(c.Context(), c.Params("id"))
		if err != nil {
			return apiError(err, "failed to fetch history record")
		}
		return c.JSON(record)
	})

	api.Put("/history/:id", func(c *fiber.Ctx) error {
		var req updateHistoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		err := h.Service.UpdateHistory(c.Context(), c.Params("id"), weather.UpdateRequest{
			Location:  req.Location,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
		})
		if err != nil {
			return apiError(err, "failed to update history record")
		}
		return c.JSON(fiber.Map{"status": "updated"})
	})

	api.Delete("/history/:id", func(c *fiber.Ctx) error {
		if err := h.Service.DeleteHistory(c.Context(), c.Params("id")); err != nil {
			return apiError(err, "failed to delete history record")
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	})
}

func registerExportRoutes(api fiber.Router, h Handlers) {
	api.Get("/export/json", func(c *fiber.Ctx) error {
		records, err := h.Service.History(c.Context())
		if err != nil {
			return apiError(err, "failed to load history records")
		}
		body, err := h.Exporter.JSON(records)
		if err != nil {
			return apiError(err, "failed to render JSON export")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		setAttachment(c, "json")
		return c.Send(body)
	})

	api.Get("/export/csv", func(c *fiber.Ctx) error {
		records, err := h.Service.History(c.Context())
		if err != nil {
			return apiError(err, "failed to load history records")
		}
		body, skipped, err := h.Exporter.CSV(records)
		if err != nil {
			return apiError(err, "failed to render CSV export")
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set("X-Skipped-Records", strconv.Itoa(skipped))
		setAttachment(c, "csv")
		return c.Send(body)
	})

	api.Get("/export/markdown", func(c *fiber.Ctx) error {
		records, err := h.Service.History(c.Context())
		if err != nil {
			return apiError(err, "failed to load history records")
		}

		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		setAttachment(c, "md")
		return c.Send(h.Exporter.Markdown(records))
	})

	api.Get("/export/record/:id/csv", func(c *fiber.Ctx) error {
		record, err := h.Service.HistoryRecord(c.Context(), c.Params("id"))
		if err != nil {
			return apiError(err, "failed to fetch history record")
		}
		body, err := h.Exporter.RecordCSV(*record)
		if err != nil {
			return apiError(err, "failed to render record CSV")
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		setAttachment(c, "csv")
		return c.Send(body)
	})
}

func setAttachment(c *fiber.Ctx, ext string) {
	filename := "weather_history_" + time.Now().UTC().Format("20060102_150405") + "." + ext
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
}

// apiError maps service errors onto HTTP statuses. Caller mistakes map to 400,
// missing resources to 404, everything else stays a 500 with a generic message.
func apiError(err error, fallback string) error {
	switch {
	case errors.Is(err, geo.ErrInvalidLocation),
		errors.Is(err, geo.ErrNotFound),
		errors.Is(err, weather.ErrMissingDateRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, export.ErrNoWeatherData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}
