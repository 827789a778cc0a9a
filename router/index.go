package router

import (
	"booking_manager/handler"
	"booking_manager/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1", logger.New())

	resources := v1.Group("/resources")
	resources.Get("/", handler.GetResources)

	v1.Get("/availability", handler.GetAvailability)

	bookings := v1.Group("/bookings")
	bookings.Post("/", validate.CreateBooking(), handler.CreateBooking)
	bookings.Get("/:orderCode", handler.GetBooking)
	bookings.Post("/:orderCode/checkout", handler.InitiateCheckout)

	payments := v1.Group("/payments")
	payments.Post("/webhook", validate.PaymentWebhook(), handler.PaymentWebhook)
	payments.Get("/status/:sessionId", handler.PaymentStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/availability/:slug/:date", websocket.New(handler.AvailabilityWebsocket))
}
