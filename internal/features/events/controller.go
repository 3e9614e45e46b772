package events

import (
	"log"

	"github.com/gofiber/contrib/websocket"
)

type EventsController struct {
	Hub *Hub
}

func NewEventsController(hub *Hub) *EventsController {
	return &EventsController{Hub: hub}
}

// HandleWebSocket streams migration lifecycle events to the connected
// admin UI until the client goes away.
func (h *EventsController) HandleWebSocket(c *websocket.Conn) {
	ch, cancel := h.Hub.Subscribe()
	defer cancel()

	for event := range ch {
		if err := c.WriteJSON(event); err != nil {
			log.Println("ws write:", err)
			break
		}
	}
}
