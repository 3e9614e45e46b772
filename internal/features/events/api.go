package events

import (
	"voicepool/internal/common/api"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type EventsApi struct {
	Controller *EventsController
}

func NewEventsApi(controller *EventsController) api.Route {
	return &EventsApi{Controller: controller}
}

func (h *EventsApi) Setup(app *fiber.App) {
	app.Get("/ws/events", websocket.New(h.Controller.HandleWebSocket))
}
