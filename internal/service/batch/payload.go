package batch

import (
	"encoding/json"
	"fmt"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// ParseNotificationPayload は予約バッチが SendTaskSuccess で出力したJSONから通知を復元します
func ParseNotificationPayload(payload []byte) ([]model.Notification, error) {
	var input struct {
		Notifications []model.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, fmt.Errorf("failed to parse notification payload: %w", err)
	}
	if input.Notifications == nil {
		return []model.Notification{}, nil
	}
	return input.Notifications, nil
}
