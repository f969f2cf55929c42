package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/weather"
)

var validate = validator.New()

// Widget is the part of weather.Service the API needs.
type Widget interface {
	Snapshot() weather.State
	Post(ctx context.Context, ev weather.Event) error
	GetLatest() (weather.ForecastSnapshot, error)
	GetRange(from, to time.Time) ([]weather.ForecastSnapshot, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, widget Widget) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(widget.Snapshot())
	})

	v1.Get("/forecast/latest", func(c *fiber.Ctx) error {
		snapshot, err := widget.GetLatest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast fetched yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/forecast/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := widget.GetRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast history")
		}

		return c.JSON(fiber.Map{
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Post("/keys", func(c *fiber.Ctx) error {
		var req keyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		ev, err := req.toEvent()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := widget.Post(c.UserContext(), ev); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "widget is not accepting input")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": req.Key})
	})
}

// keyRequest is a single keystroke posted to the widget.
type keyRequest struct {
	Key  string `json:"key" validate:"required,oneof=confirm new_location backspace char refresh"`
	Char string `json:"char" validate:"required_if=Key char"`
}

func (k keyRequest) toEvent() (weather.KeyEvent, error) {
	if err := validate.Struct(k); err != nil {
		return weather.KeyEvent{}, err
	}
	kind, ok := weather.ParseKeyKind(k.Key)
	if !ok {
		return weather.KeyEvent{}, errors.New("unknown key")
	}
	ev := weather.KeyEvent{Kind: kind}
	if kind == weather.KeyChar {
		if utf8.RuneCountInString(k.Char) != 1 {
			return weather.KeyEvent{}, errors.New("char must be exactly one character")
		}
		ev.Char, _ = utf8.DecodeRuneInString(k.Char)
	}
	return ev, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
