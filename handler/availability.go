package handler

import (
	"booking_manager/database"
	"booking_manager/model"
	"booking_manager/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

var (
	boardClients = make(map[string]map[*websocket.Conn]bool)
	boardMutex   sync.Mutex
)

type BusyWindow struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
}

func boardChannel(slug, date string) string {
	return fmt.Sprintf("availability:%s:%s", slug, date)
}

// GetResources lists the bookable catalog.
func GetResources(c *fiber.Ctx) error {
	var resources []model.Resource
	if err := database.DB.Where("is_active = true").Order("type, name").Find(&resources).Error; err != nil {
		return utils.ErrorResponse(c, 500, "Cannot load resources", err)
	}
	return utils.SuccessResponse(c, 200, resources)
}

// GetAvailability returns the busy windows of one resource for one day.
func GetAvailability(c *fiber.Ctx) error {
	slug := c.Query("resource")
	date := c.Query("date")
	if slug == "" || date == "" {
		return utils.ErrorResponse(c, 400, "resource and date query params are required", nil)
	}

	var resource model.Resource
	if err := database.DB.Where("slug = ? AND is_active = true", slug).First(&resource).Error; err != nil {
		return utils.ErrorResponse(c, 404, "Resource not found", err)
	}

	windows, err := dayBusyWindows(resource.ID, date, time.Now())
	if err != nil {
		return utils.ErrorResponse(c, 500, "Cannot load availability", err)
	}

	return utils.SuccessResponse(c, 200, fiber.Map{
		"resource": resource.Slug,
		"date":     date,
		"busy":     windows,
	})
}

func dayBusyWindows(resourceID uint, date string, now time.Time) ([]BusyWindow, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, err
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	var slots []model.ReservedSlot
	if err := database.DB.
		Where("resource_id = ? AND start_time < ? AND end_time > ?", resourceID, dayEnd, dayStart).
		Where("status = ? OR (status = ? AND expires_at > ?)", model.SlotBooked, model.SlotHold, now).
		Order("start_time").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	windows := make([]BusyWindow, 0, len(slots))
	for _, s := range slots {
		windows = append(windows, BusyWindow{StartTime: s.StartTime, EndTime: s.EndTime, Status: s.Status})
	}
	return windows, nil
}

// AvailabilityWebsocket streams busy-window updates for one resource+day.
func AvailabilityWebsocket(c *websocket.Conn) {
	slug := c.Params("slug")
	date := c.Params("date")
	channel := boardChannel(slug, date)

	defer func() {
		boardMutex.Lock()
		if boardClients[channel] != nil {
			delete(boardClients[channel], c)
			if len(boardClients[channel]) == 0 {
				delete(boardClients, channel)
			}
		}
		boardMutex.Unlock()
		c.Close()
	}()

	boardMutex.Lock()
	if boardClients[channel] == nil {
		boardClients[channel] = make(map[*websocket.Conn]bool)
	}
	boardClients[channel][c] = true
	boardMutex.Unlock()

	// Initial snapshot for the new client.
	var resource model.Resource
	if err := database.DB.Where("slug = ?", slug).First(&resource).Error; err == nil {
		if windows, err := dayBusyWindows(resource.ID, date, time.Now()); err == nil {
			c.WriteJSON(windows)
		}
	}

	if database.Redis == nil {
		return
	}
	pubsub := database.Redis.Subscribe(context.Background(), channel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		payload := []byte(msg.Payload)

		boardMutex.Lock()
		for conn := range boardClients[channel] {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(boardClients[channel], conn)
			}
		}
		boardMutex.Unlock()
	}
}

// BroadcastAvailability publishes the current busy windows of one
// resource+day. Failures only cost freshness of the board, so they are
// logged and ignored.
func BroadcastAvailability(resource model.Resource, date string) {
	if database.Redis == nil {
		return
	}
	windows, err := dayBusyWindows(resource.ID, date, time.Now())
	if err != nil {
		log.Printf("availability: build broadcast for %s %s: %v", resource.Slug, date, err)
		return
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		return
	}
	if err := database.Redis.Publish(context.Background(), boardChannel(resource.Slug, date), payload).Err(); err != nil {
		log.Printf("availability: publish %s %s: %v", resource.Slug, date, err)
	}
}
