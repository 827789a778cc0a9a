package validate

import (
	"booking_manager/model"
	"booking_manager/utils"

	"github.com/gofiber/fiber/v2"
)

func PaymentWebhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.WebhookInput

		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, 400, "Cannot parse webhook payload", err)
		}
		if err := validate.Struct(input); err != nil {
			return utils.ErrorResponse(c, 400, err.Error(), err)
		}

		c.Locals("input", input)
		return c.Next()
	}
}
