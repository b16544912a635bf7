package meta

import "github.com/gofiber/fiber/v2"

func RegisterIndex(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Acid Lab pattern API",
			"routes":  []string{"/v1/patterns/tb303", "/api/_/health", "/api/_/bininfo"},
		})
	})
}
