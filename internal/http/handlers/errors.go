package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "threadline/internal/log"
)

// ErrorHandler renders any error that escapes a handler as the friendly
// error page. Client errors keep their status, everything else becomes a 500
// and its detail only reaches the log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code = fe.Code
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})

	msg := "Something went wrong. Please try again."
	switch code {
	case fiber.StatusNotFound:
		msg = "Page not found."
	case fiber.StatusRequestEntityTooLarge:
		msg = "That request was too large."
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
