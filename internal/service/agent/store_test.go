package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// memReservations は予約をメモリ上に保持するReservationRepositoryのモックです
// トランザクションはsqlmockのものを使い、開始・コミット・ロールバックを検証します
type memReservations struct {
	mu                sync.Mutex
	db                *sqlx.DB
	reservations      map[int64]*model.Reservation
	nextID            int64
	nextParticipantID int64
	lockVenueCalls    int
	createErr         error
}

func newMemReservations(db *sqlx.DB) *memReservations {
	return &memReservations{db: db, reservations: make(map[int64]*model.Reservation)}
}

func cloneReservation(r *model.Reservation) model.Reservation {
	c := *r
	c.Participants = append([]model.Participant{}, r.Participants...)
	return c
}

func (m *memReservations) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *memReservations) LockVenue(ctx context.Context, tx *sqlx.Tx, venueID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockVenueCalls++
	return nil
}

func (m *memReservations) FindActiveInWindow(ctx context.Context, tx *sqlx.Tx, venueID int64, from, to time.Time) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Reservation
	for _, r := range m.reservations {
		if r.VenueID != venueID || r.Status == model.ReservationStatusCancelled {
			continue
		}
		if r.ReservationDateTime.Before(from) || r.ReservationDateTime.After(to) {
			continue
		}
		out = append(out, cloneReservation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memReservations) GetByID(ctx context.Context, tx *sqlx.Tx, reservationID int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, model.ErrNotFound)
	}
	c := cloneReservation(r)
	return &c, nil
}

func (m *memReservations) Create(ctx context.Context, tx *sqlx.Tx, reservation *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if len(reservation.Participants) == 0 {
		return model.ErrInvariantViolation
	}
	m.nextID++
	reservation.ID = m.nextID
	reservation.CreatedAt = time.Now()
	for i := range reservation.Participants {
		m.nextParticipantID++
		reservation.Participants[i].ID = m.nextParticipantID
		reservation.Participants[i].ReservationID = reservation.ID
	}
	c := cloneReservation(reservation)
	m.reservations[reservation.ID] = &c
	return nil
}

func (m *memReservations) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return model.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memReservations) AddParticipant(ctx context.Context, tx *sqlx.Tx, participant *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[participant.ReservationID]
	if !ok {
		return model.ErrNotFound
	}
	m.nextParticipantID++
	participant.ID = m.nextParticipantID
	r.Participants = append(r.Participants, *participant)
	return nil
}

func (m *memReservations) UpdateParticipantStatus(ctx context.Context, tx *sqlx.Tx, reservationID, userID int64, status model.ParticipantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return model.ErrNotFound
	}
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			r.Participants[i].Status = status
			return nil
		}
	}
	return model.ErrNotFound
}

func (m *memReservations) ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Reservation
	for _, r := range m.reservations {
		if r.Status == status {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memReservations) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return nil, nil
}

func (m *memReservations) ListUnnotifiedConfirmed(ctx context.Context) ([]model.Reservation, error) {
	return nil, nil
}

func (m *memReservations) MarkNotified(ctx context.Context, reservationIDs []int64, at time.Time) error {
	return nil
}

// put は予約を直接登録します
func (m *memReservations) put(r model.Reservation) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r.ID = m.nextID
	for i := range r.Participants {
		m.nextParticipantID++
		r.Participants[i].ID = m.nextParticipantID
		r.Participants[i].ReservationID = r.ID
	}
	m.reservations[r.ID] = &r
	return r.ID
}

func (m *memReservations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memReservations) get(id int64) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneReservation(m.reservations[id])
}

// memInterests は(ユーザー, 店舗)ごとの関心ステータスを保持するモックです
type memInterests struct {
	mu       sync.Mutex
	statuses map[[2]int64]model.InterestStatus
}

func newMemInterests() *memInterests {
	return &memInterests{statuses: make(map[[2]int64]model.InterestStatus)}
}

func (m *memInterests) set(userID, venueID int64, status model.InterestStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[[2]int64{userID, venueID}] = status
}

func (m *memInterests) Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*model.Interest, error) {
	m.set(userID, venueID, status)
	return &model.Interest{UserID: userID, VenueID: venueID, Status: status}, nil
}

func (m *memInterests) ListByUser(ctx context.Context, userID int64) ([]model.Interest, error) {
	return nil, nil
}

func (m *memInterests) StatusesFor(ctx context.Context, tx *sqlx.Tx, venueID int64, userIDs []int64) (map[int64]model.InterestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]model.InterestStatus)
	for _, id := range userIDs {
		if s, ok := m.statuses[[2]int64{id, venueID}]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *memInterests) ConfirmedUserIDs(ctx context.Context, venueID int64) ([]int64, error) {
	return nil, nil
}

func (m *memInterests) QualifyingVenueIDs(ctx context.Context, userIDs []int64) (map[int64][]int64, error) {
	return nil, nil
}

type harness struct {
	agent        *Agent
	reservations *memReservations
	interests    *memInterests
	mock         sqlmock.Sqlmock
	ctx          context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	ctx, seg := xray.BeginSegment(context.Background(), t.Name())
	t.Cleanup(func() {
		seg.Close(nil)
	})

	reservations := newMemReservations(sqlx.NewDb(db, "sqlmock"))
	interests := newMemInterests()
	return &harness{
		agent:        NewAgent(reservations, interests),
		reservations: reservations,
		interests:    interests,
		mock:         mock,
		ctx:          ctx,
	}
}

// expectTx はトランザクション1回分の期待値を登録します
func (h *harness) expectTx(commit bool) {
	h.mock.ExpectBegin()
	if commit {
		h.mock.ExpectCommit()
	} else {
		h.mock.ExpectRollback()
	}
}

func (h *harness) verify(t *testing.T) {
	t.Helper()
	if err := h.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction expectations: %v", err)
	}
}
