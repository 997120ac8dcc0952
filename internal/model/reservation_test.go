package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func participants(statuses ...ParticipantStatus) []Participant {
	ps := make([]Participant, len(statuses))
	for i, s := range statuses {
		ps[i] = Participant{UserID: int64(i + 1), Status: s}
	}
	return ps
}

func TestReservation_ReadyToConfirm(t *testing.T) {
	tests := []struct {
		name         string
		status       ReservationStatus
		participants []Participant
		want         bool
	}{
		{
			name:         "全員ACCEPTED",
			status:       ReservationStatusPending,
			participants: participants(ParticipantStatusAccepted, ParticipantStatusAccepted),
			want:         true,
		},
		{
			name:         "一部INVITED",
			status:       ReservationStatusPending,
			participants: participants(ParticipantStatusAccepted, ParticipantStatusInvited),
			want:         false,
		},
		{
			name:         "DECLINEDを含む",
			status:       ReservationStatusPending,
			participants: participants(ParticipantStatusAccepted, ParticipantStatusDeclined),
			want:         false,
		},
		{
			name:   "参加者なし",
			status: ReservationStatusPending,
			want:   false,
		},
		{
			name:         "確定済み",
			status:       ReservationStatusConfirmed,
			participants: participants(ParticipantStatusAccepted),
			want:         false,
		},
		{
			name:         "キャンセル済み",
			status:       ReservationStatusCancelled,
			participants: participants(ParticipantStatusAccepted),
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reservation{Status: tt.status, Participants: tt.participants}
			if got := r.ReadyToConfirm(); got != tt.want {
				t.Errorf("ReadyToConfirm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservationStatus_Terminal(t *testing.T) {
	if ReservationStatusPending.Terminal() {
		t.Error("PENDING should not be terminal")
	}
	if !ReservationStatusConfirmed.Terminal() || !ReservationStatusCancelled.Terminal() {
		t.Error("CONFIRMED and CANCELLED should be terminal")
	}
}

func TestReservation_MissingParticipants(t *testing.T) {
	r := Reservation{Participants: []Participant{{UserID: 1}, {UserID: 3}}}

	got := r.MissingParticipants([]int64{1, 2, 3, 4})
	if want := []int64{2, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("MissingParticipants() = %v, want %v", got, want)
	}
	if got := r.MissingParticipants([]int64{3, 1}); got != nil {
		t.Errorf("MissingParticipants() = %v, want nil", got)
	}
}

func TestNewReservationEvents(t *testing.T) {
	now := time.Now()
	at := now.Add(24 * time.Hour)
	r := Reservation{
		ID:                  5,
		VenueID:             9,
		ReservationDateTime: at,
		Participants:        []Participant{{UserID: 1}, {UserID: 2}},
	}

	events := NewReservationEvents(r, now)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	for i, e := range events {
		if e.ReservationID != 5 || e.VenueID != 9 || !e.DateTime.Equal(at) || e.UserID != int64(i+1) {
			t.Errorf("events[%d] = %+v", i, e)
		}
	}
}

func TestParseStatuses(t *testing.T) {
	if s, err := ParseInterestStatus("CONFIRMED"); err != nil || s != InterestStatusConfirmed {
		t.Errorf("ParseInterestStatus(CONFIRMED) = %v, %v", s, err)
	}
	if _, err := ParseInterestStatus("confirmed"); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("ParseInterestStatus(confirmed) error = %v, want ErrInvariantViolation", err)
	}
	if s, err := ParseParticipantStatus("DECLINED"); err != nil || s != ParticipantStatusDeclined {
		t.Errorf("ParseParticipantStatus(DECLINED) = %v, %v", s, err)
	}
	if _, err := ParseParticipantStatus(""); err == nil {
		t.Error("ParseParticipantStatus(\"\") expected error")
	}
}

func TestInterestStatus_Qualifies(t *testing.T) {
	tests := map[InterestStatus]bool{
		InterestStatusInterested:    true,
		InterestStatusConfirmed:     true,
		InterestStatusNotInterested: false,
		InterestStatusInvited:       false,
	}
	for status, want := range tests {
		if got := status.Qualifies(); got != want {
			t.Errorf("%s.Qualifies() = %v, want %v", status, got, want)
		}
	}
}
