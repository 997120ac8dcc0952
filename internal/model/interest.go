package model

import (
	"fmt"
	"time"
)

// InterestStatus はユーザーの店舗に対する関心度を表します
type InterestStatus string

const (
	InterestStatusInterested    InterestStatus = "INTERESTED"
	InterestStatusNotInterested InterestStatus = "NOT_INTERESTED"
	InterestStatusInvited       InterestStatus = "INVITED"
	InterestStatusConfirmed     InterestStatus = "CONFIRMED"
)

// QualifyingInterestStatuses are the statuses counted by the scorers.
var QualifyingInterestStatuses = []InterestStatus{
	InterestStatusInterested,
	InterestStatusConfirmed,
}

// ParseInterestStatus は文字列をInterestStatusに変換します
func ParseInterestStatus(v string) (InterestStatus, error) {
	switch s := InterestStatus(v); s {
	case InterestStatusInterested, InterestStatusNotInterested, InterestStatusInvited, InterestStatusConfirmed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown interest status %q: %w", v, ErrInvariantViolation)
	}
}

// Qualifies はスコア計算で関心ありとみなすステータスかどうかを返します
func (s InterestStatus) Qualifies() bool {
	return s == InterestStatusInterested || s == InterestStatusConfirmed
}

// Interest は(ユーザー, 店舗)ごとに高々1件の関心レコードです
type Interest struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	VenueID   int64          `db:"venue_id" json:"venue_id"`
	Status    InterestStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"-"`
}
