package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType は通知の種類を表します
type NotificationType string

const (
	// NotificationTypeReservation は予約関連の通知を表します
	NotificationTypeReservation NotificationType = "reservation"
	// NotificationTypeCommon は共通の通知を表します
	NotificationTypeCommon NotificationType = "common"
)

// Notification はStep Functions経由でイベントを受け取るための定義です
// アプリケーションサービス層で利用されます
type Notification struct {
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
	Data      interface{}      `json:"data"`
}

// NotificationRecord は通知のドメインモデルです
// データベースに永続化される通知レコードと一致しています
type NotificationRecord struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	Type      NotificationType `db:"type" json:"type"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// VenueID はDataに含まれる店舗IDを返します
func (n Notification) VenueID() (int64, error) {
	data, ok := n.Data.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("invalid notification data format")
	}
	return int64Field(data, "venue_id")
}

// ToNotificationRecord は通知を通知レコードに変換します
func (n Notification) ToNotificationRecord(venueNameMap map[int64]string) (*NotificationRecord, error) {
	data, ok := n.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid notification data format")
	}

	userID, err := int64Field(data, "user_id")
	if err != nil {
		return nil, err
	}

	if n.Type == NotificationTypeReservation {
		venueID, err := int64Field(data, "venue_id")
		if err != nil {
			return nil, err
		}
		venueName, ok := venueNameMap[venueID]
		if !ok {
			return nil, fmt.Errorf("venue_id %d not found in venueNameMap", venueID)
		}

		// date_timeフィールドの型をチェックして適切に処理
		var dateTime time.Time
		switch v := data["date_time"].(type) {
		case time.Time:
			dateTime = v
		case string:
			parsedTime, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("invalid date_time format: %v", err)
			}
			dateTime = parsedTime
		default:
			return nil, fmt.Errorf("unexpected type for date_time: %T", v)
		}

		message := fmt.Sprintf(`Your reservation is confirmed. Enjoy!
Date: %s
Venue: %s`, dateTime.Format("2006-01-02 15:04"), venueName)

		return &NotificationRecord{
			UserID:    userID,
			Title:     "Reservation confirmed",
			Message:   message,
			IsRead:    false,
			Type:      NotificationTypeReservation,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.CreatedAt,
		}, nil
	}

	return &NotificationRecord{
		UserID:    userID,
		Title:     "You have a new notification",
		Message:   "You have a new notification.",
		IsRead:    false,
		Type:      NotificationTypeCommon,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.CreatedAt,
	}, nil
}

// NewReservationNotification は予約イベントから通知を作成します
func NewReservationNotification(event ReservationEvent) Notification {
	return Notification{
		Type:      NotificationTypeReservation,
		CreatedAt: event.CreatedAt,
		Data: map[string]interface{}{
			"reservation_id": event.ReservationID,
			"user_id":        event.UserID,
			"venue_id":       event.VenueID,
			"date_time":      event.DateTime,
		},
	}
}

// int64Field はJSON由来(float64, json.Number)とGo由来(int, int64)の数値を吸収します
func int64Field(data map[string]interface{}, key string) (int64, error) {
	switch v := data[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case nil:
		return 0, fmt.Errorf("%s is missing", key)
	default:
		return 0, fmt.Errorf("unexpected type for %s: %T", key, v)
	}
}
