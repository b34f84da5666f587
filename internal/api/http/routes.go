package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
	"github.com/i474232898/cloud-cover-estimation/internal/config"
	"github.com/i474232898/cloud-cover-estimation/internal/store"
)

var validate = validator.New()

// sampleTimeout bounds on-demand sampling, which may download a full-disk image.
const sampleTimeout = 5 * time.Minute

// RegisterRoutes wires the HTTP handlers into the Fiber app. displayHours is
// used when a request does not name its hours.
func RegisterRoutes(app *fiber.App, service *cloudcover.Service, displayHours []int) {
	v1 := app.Group("/api/v1/cloudcover")

	v1.Get("/target", func(c *fiber.Ctx) error {
		return c.JSON(service.Target())
	})

	v1.Get("/latest", func(c *fiber.Ctx) error {
		sample, err := service.GetLatest()
		if err != nil {
			return storeError(err, "no cloud cover sample yet")
		}
		return c.JSON(sample)
	})

	v1.Get("/days", func(c *fiber.Ctx) error {
		days := service.Days()
		out := make([]string, 0, len(days))
		for _, d := range days {
			out = append(out, d.Format(dateLayout))
		}
		return c.JSON(fiber.Map{"days": out})
	})

	v1.Get("/samples", func(c *fiber.Ctx) error {
		day, err := parseDate(c.Query("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		samples, err := service.GetDay(day)
		if err != nil {
			return storeError(err, "no cloud cover samples for requested date")
		}
		return c.JSON(fiber.Map{
			"date":    day.Format(dateLayout),
			"samples": samples,
		})
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := req.bind(c, displayHours); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.Series(req.Date, req.Hours)
		if err != nil {
			return storeError(err, "no cloud cover samples for requested date")
		}
		return c.JSON(seriesResponse(req.Date, req.Hours, series))
	})

	v1.Post("/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := req.bind(c, displayHours); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), sampleTimeout*time.Duration(len(req.Hours)))
		defer cancel()

		samples, err := service.SampleDay(ctx, req.Date, req.Hours)
		if err != nil {
			return sampleError(err)
		}
		series := cloudcover.BuildSeries(samples, req.Hours)
		return c.JSON(seriesResponse(req.Date, req.Hours, series))
	})

	v1.Post("/samples", func(c *fiber.Ctx) error {
		var req sampleQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), sampleTimeout)
		defer cancel()

		slot := cloudcover.Slot{Day: req.Date, Hour: *req.Hour, Minute: *req.Minute}
		sample, err := service.Sample(ctx, slot)
		if err != nil {
			return sampleError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sample)
	})

	v1.Get("/bbox", func(c *fiber.Ctx) error {
		box, err := service.BoundingBox()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		target := service.Target()
		feature := &geojson.Feature{
			Geometry: box.Polygon(),
			Properties: map[string]interface{}{
				"lat":      target.Point.Lat,
				"lon":      target.Point.Lon,
				"radiusKm": target.RadiusKm,
				"latMin":   box.LatMin,
				"lonMin":   box.LonMin,
				"latMax":   box.LatMax,
				"lonMax":   box.LonMax,
			},
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		body, err := feature.MarshalJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode bounding box")
		}
		return c.Send(body)
	})
}

const dateLayout = "2006-01-02"

type seriesRow struct {
	Hour    int        `json:"hour"`
	Values  []*float64 `json:"values"`
	Mean    *float64   `json:"mean"`
	Sampled int        `json:"sampled"`
}

func seriesResponse(day time.Time, hours []int, series cloudcover.HourSeries) fiber.Map {
	rows := make([]seriesRow, 0, len(hours))
	for _, h := range hours {
		row := seriesRow{Hour: h, Values: series[h]}
		for _, v := range row.Values {
			if v != nil {
				row.Sampled++
			}
		}
		if mean, ok := series.Mean(h); ok {
			row.Mean = &mean
		}
		rows = append(rows, row)
	}
	return fiber.Map{
		"date":    day.Format(dateLayout),
		"minutes": cloudcover.SlotMinutes,
		"hours":   rows,
	}
}

func storeError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	zap.L().Error("store lookup failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch cloud cover samples")
}

func sampleError(err error) error {
	var loadErr *cloudcover.ImageLoadError
	var boundsErr *cloudcover.OutOfBoundsError
	switch {
	case errors.As(err, &loadErr):
		return fiber.NewError(fiber.StatusBadGateway, loadErr.Error())
	case errors.As(err, &boundsErr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, boundsErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "sampling timed out")
	}
	zap.L().Error("sampling failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "failed to sample cloud cover")
}

// seriesQuery holds query parameters for the series endpoints.
type seriesQuery struct {
	Date  time.Time `validate:"required"`
	Hours []int     `validate:"required,min=1,dive,min=0,max=23"`
}

func (q *seriesQuery) bind(c *fiber.Ctx, defaultHours []int) error {
	day, err := parseDate(c.Query("date"))
	if err != nil {
		return err
	}
	q.Date = day

	q.Hours = defaultHours
	if raw := c.Query("hours"); raw != "" {
		hours, err := config.ParseHours(raw)
		if err != nil {
			return err
		}
		q.Hours = hours
	}
	return nil
}

// sampleQuery identifies one slot to sample.
type sampleQuery struct {
	Date   time.Time `validate:"required"`
	Hour   *int      `validate:"required,min=0,max=23"`
	Minute *int      `validate:"required,oneof=0 10 20 30 40 50"`
}

func (q *sampleQuery) bind(c *fiber.Ctx) error {
	day, err := parseDate(c.Query("date"))
	if err != nil {
		return err
	}
	q.Date = day

	if raw := c.Query("hour"); raw != "" {
		h := c.QueryInt("hour", -1)
		if h < 0 {
			return errors.New("hour must be a non-negative number")
		}
		q.Hour = &h
	}
	if raw := c.Query("minute"); raw != "" {
		m := c.QueryInt("minute", -1)
		if m < 0 {
			return errors.New("minute must be a non-negative number")
		}
		q.Minute = &m
	}
	return nil
}

// parseDate parses YYYY-MM-DD, defaulting to today in UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD")
	}
	return day, nil
}
