package helper

import (
	"booking_manager/database"
	"booking_manager/model"
	"context"
	"encoding/json"
	"time"
)

const (
	settingsCacheKey = "booking:settings"
	settingsCacheTTL = 30 * time.Second
)

// LoadSettings reads booking settings through a short-lived redis cache so
// admin edits show up within seconds without a per-request DB roundtrip.
// Falls back to the DB when redis is unavailable.
func LoadSettings(ctx context.Context) (model.BookingSettings, error) {
	var settings model.BookingSettings

	if database.Redis != nil {
		cached, err := database.Redis.Get(ctx, settingsCacheKey).Result()
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(cached), &settings); jsonErr == nil {
				return settings, nil
			}
		}
	}

	if err := database.DB.First(&settings).Error; err != nil {
		return settings, err
	}

	if database.Redis != nil {
		if payload, err := json.Marshal(settings); err == nil {
			database.Redis.Set(ctx, settingsCacheKey, payload, settingsCacheTTL)
		}
	}
	return settings, nil
}
