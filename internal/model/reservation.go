package model

import (
	"fmt"
	"time"
)

// ReservationStatus は予約のステータスを表します
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Terminal は自動遷移の対象外となる終端ステータスかどうかを返します
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationStatusConfirmed, ReservationStatusCancelled:
		return true
	default:
		return false
	}
}

// ParticipantStatus は参加者の回答状況を表します
type ParticipantStatus string

const (
	ParticipantStatusInvited  ParticipantStatus = "INVITED"
	ParticipantStatusAccepted ParticipantStatus = "ACCEPTED"
	ParticipantStatusDeclined ParticipantStatus = "DECLINED"
)

// ParseParticipantStatus validates a wire value.
func ParseParticipantStatus(v string) (ParticipantStatus, error) {
	switch s := ParticipantStatus(v); s {
	case ParticipantStatusInvited, ParticipantStatusAccepted, ParticipantStatusDeclined:
		return s, nil
	default:
		return "", fmt.Errorf("unknown participant status %q: %w", v, ErrInvariantViolation)
	}
}

type Reservation struct {
	ID                  int64             `db:"id" json:"id"`
	VenueID             int64             `db:"venue_id" json:"venue_id"`
	CreatedByUserID     int64             `db:"created_by_user_id" json:"created_by_user_id"`
	ReservationDateTime time.Time         `db:"reservation_date_time" json:"time"`
	Status              ReservationStatus `db:"status" json:"status"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
	Participants        []Participant     `db:"-" json:"participants"`
}

// Participant は予約に紐づく参加者です。予約の削除とともに削除されます
type Participant struct {
	ID            int64             `db:"id" json:"id"`
	ReservationID int64             `db:"reservation_id" json:"reservation_id"`
	UserID        int64             `db:"user_id" json:"user_id"`
	Status        ParticipantStatus `db:"status" json:"status"`
}

// AllAccepted は参加者が1人以上存在し、全員がACCEPTEDであるかを返します
func (r *Reservation) AllAccepted() bool {
	if len(r.Participants) == 0 {
		return false
	}
	for _, p := range r.Participants {
		if p.Status != ParticipantStatusAccepted {
			return false
		}
	}
	return true
}

// ReadyToConfirm reports whether the PENDING -> CONFIRMED guard holds.
func (r *Reservation) ReadyToConfirm() bool {
	return r.Status == ReservationStatusPending && r.AllAccepted()
}

// Participant は指定ユーザーの参加者レコードを返します
func (r *Reservation) Participant(userID int64) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

// MissingParticipants は予約にまだ含まれていないユーザーIDを入力順に返します
func (r *Reservation) MissingParticipants(userIDs []int64) []int64 {
	present := make(map[int64]struct{}, len(r.Participants))
	for _, p := range r.Participants {
		present[p.UserID] = struct{}{}
	}

	var missing []int64
	for _, id := range userIDs {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ReservationEvent は予約確定時に参加者ごとに発行されるイベントの構造体
type ReservationEvent struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	VenueID       int64     `json:"venue_id"`
	DateTime      time.Time `json:"date_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewReservationEvents は予約の参加者それぞれに対するイベントを作成します
func NewReservationEvents(r Reservation, now time.Time) []ReservationEvent {
	events := make([]ReservationEvent, 0, len(r.Participants))
	for _, p := range r.Participants {
		events = append(events, ReservationEvent{
			ReservationID: r.ID,
			UserID:        p.UserID,
			VenueID:       r.VenueID,
			DateTime:      r.ReservationDateTime,
			CreatedAt:     now,
		})
	}
	return events
}
