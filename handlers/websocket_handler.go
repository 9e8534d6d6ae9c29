package handlers

import (
	"context"
	"encoding/json"

	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/events"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WSHandler struct {
	eventPublisher *events.EventPublisher
}

func NewWSHandler(eventPublisher *events.EventPublisher) *WSHandler {
	return &WSHandler{eventPublisher: eventPublisher}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(400).JSON(fiber.Map{"error": "Not a websocket request"})
}

// HandleTaskEvents 把某个任务的进度事件推给 UI 客户端
func (h *WSHandler) HandleTaskEvents(c *websocket.Conn) {
	taskID := c.Params("task_id")
	userID := c.Query("user_id")

	logging.Logger.Info("WebSocket connected",
		"taskID", taskID,
		"userID", userID,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventChan, err := h.eventPublisher.SubscribeTaskEvents(ctx)
	if err != nil {
		logging.Logger.Error("Failed to subscribe to events", "error", err)
		if err := c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Failed to subscribe"}`)); err != nil {
			return
		}
		return
	}
	err = c.WriteJSON(fiber.Map{
		"type":    "connected",
		"message": "WebSocket connected successfully",
		"task_id": taskID,
	})
	if err != nil {
		return
	}

	for {
		select {
		case event := <-eventChan:
			if event == nil {
				return
			}
			if event.TaskID != taskID {
				continue
			}
			if userID != "" && event.UserID != userID {
				continue
			}
			data, _ := json.Marshal(event)
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Logger.Error("Failed to send WebSocket message", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
