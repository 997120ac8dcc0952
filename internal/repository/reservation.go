package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// venueLockNamespace は店舗単位のアドバイザリロックのキーの接頭辞です
const venueLockNamespace = "rendezvous.venue:"

// venueLockKey は店舗IDを名前空間付きでハッシュし、pg_advisory_xact_lock(bigint)のキーにします
// 別の店舗とキーが衝突しても直列化が増えるだけです
func venueLockKey(venueID int64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s%d", venueLockNamespace, venueID)
	return int64(h.Sum64())
}

type ReservationRepository interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	LockVenue(ctx context.Context, tx *sqlx.Tx, venueID int64) error
	FindActiveInWindow(ctx context.Context, tx *sqlx.Tx, venueID int64, from, to time.Time) ([]model.Reservation, error)
	GetByID(ctx context.Context, tx *sqlx.Tx, reservationID int64) (*model.Reservation, error)
	Create(ctx context.Context, tx *sqlx.Tx, reservation *model.Reservation) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error
	AddParticipant(ctx context.Context, tx *sqlx.Tx, participant *model.Participant) error
	UpdateParticipantStatus(ctx context.Context, tx *sqlx.Tx, reservationID, userID int64, status model.ParticipantStatus) error
	ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
	ListUnnotifiedConfirmed(ctx context.Context) ([]model.Reservation, error)
	MarkNotified(ctx context.Context, reservationIDs []int64, at time.Time) error
}

type ReservationRepositoryImpl struct {
	db *DB
}

func NewReservationRepository(db *DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

const reservationColumns = `id, venue_id, created_by_user_id, reservation_date_time, status, created_at, updated_at`

// BeginTx starts a new transaction
func (r *ReservationRepositoryImpl) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTx(ctx)
}

// LockVenue はトランザクション終了まで店舗単位の排他ロックを取得します
// 別プロセスのエージェントとも直列化されます
func (r *ReservationRepositoryImpl) LockVenue(ctx context.Context, tx *sqlx.Tx, venueID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.LockVenue")
	defer utils.CloseSegment(seg, nil)

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, venueLockKey(venueID)); err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to lock venue %d: %w", venueID, err)
	}
	return nil
}

// FindActiveInWindow は[from, to]の範囲にあるキャンセル以外の予約を参加者付きでID順に返します
// 取得した予約行はトランザクション終了までロックされます
func (r *ReservationRepositoryImpl) FindActiveInWindow(ctx context.Context, tx *sqlx.Tx, venueID int64, from, to time.Time) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.FindActiveInWindow")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE venue_id = $1
		AND status <> $2
		AND reservation_date_time BETWEEN $3 AND $4
		ORDER BY id
		FOR UPDATE`

	reservations := []model.Reservation{}
	if err := sqlx.SelectContext(ctx, tx, &reservations, query, venueID, model.ReservationStatusCancelled, from, to); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to find reservations in window: %w", err)
	}

	if err := r.attachParticipants(ctx, tx, reservations); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return reservations, nil
}

// GetByID は予約を参加者付きで取得します。txが渡された場合は行ロックを取得します
func (r *ReservationRepositoryImpl) GetByID(ctx context.Context, tx *sqlx.Tx, reservationID int64) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.GetByID")
	defer utils.CloseSegment(seg, nil)

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	var reservation model.Reservation
	if err := sqlx.GetContext(ctx, r.db.queryer(tx), &reservation, query, reservationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %d: %w", reservationID, model.ErrNotFound)
		}
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	reservations := []model.Reservation{reservation}
	if err := r.attachParticipants(ctx, tx, reservations); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return &reservations[0], nil
}

// Create は予約とその参加者を作成します。参加者が空の場合は書き込み前に拒否します
func (r *ReservationRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, reservation *model.Reservation) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.Create")
	defer utils.CloseSegment(seg, nil)

	if len(reservation.Participants) == 0 {
		err := fmt.Errorf("reservation without participants: %w", model.ErrInvariantViolation)
		utils.CloseSegment(seg, err)
		return err
	}

	query := `
		INSERT INTO reservations (
			venue_id,
			created_by_user_id,
			reservation_date_time,
			status,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $5
		)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := tx.QueryRowxContext(ctx, query,
		reservation.VenueID,
		reservation.CreatedByUserID,
		reservation.ReservationDateTime,
		reservation.Status,
		now,
	).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	for i := range reservation.Participants {
		reservation.Participants[i].ReservationID = reservation.ID
		if err := r.AddParticipant(ctx, tx, &reservation.Participants[i]); err != nil {
			utils.CloseSegment(seg, err)
			return err
		}
	}

	return nil
}

// UpdateStatus は予約のステータスを更新します
func (r *ReservationRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.UpdateStatus")
	defer utils.CloseSegment(seg, nil)

	query := `
		UPDATE reservations
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`

	result, err := tx.ExecContext(ctx, query, status, time.Now(), reservationID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("no reservation found with ID %d: %w", reservationID, model.ErrNotFound)
		utils.CloseSegment(seg, err)
		return err
	}

	return nil
}

// AddParticipant は参加者を追加します
func (r *ReservationRepositoryImpl) AddParticipant(ctx context.Context, tx *sqlx.Tx, participant *model.Participant) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.AddParticipant")
	defer utils.CloseSegment(seg, nil)

	query := `
		INSERT INTO reservation_participants (reservation_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := tx.QueryRowxContext(ctx, query,
		participant.ReservationID,
		participant.UserID,
		participant.Status,
	).Scan(&participant.ID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to add participant: %w", err)
	}

	return nil
}

// UpdateParticipantStatus は参加者の回答状況を更新します
func (r *ReservationRepositoryImpl) UpdateParticipantStatus(ctx context.Context, tx *sqlx.Tx, reservationID, userID int64, status model.ParticipantStatus) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.UpdateParticipantStatus")
	defer utils.CloseSegment(seg, nil)

	query := `
		UPDATE reservation_participants
		SET status = $1
		WHERE reservation_id = $2
		AND user_id = $3`

	result, err := tx.ExecContext(ctx, query, status, reservationID, userID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to update participant status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("user %d is not a participant of reservation %d: %w", userID, reservationID, model.ErrNotFound)
		utils.CloseSegment(seg, err)
		return err
	}

	return nil
}

// ListByStatus は、指定されたステータスの予約を取得します
func (r *ReservationRepositoryImpl) ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ListByStatus")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1
		ORDER BY reservation_date_time ASC, id ASC`

	reservations := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &reservations, query, status); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to query reservations with status %s: %w", status, err)
	}

	if err := r.attachParticipants(ctx, nil, reservations); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return reservations, nil
}

// ListByUser は作成者または参加者としてユーザーが関わる予約を返します
func (r *ReservationRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ListByUser")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		WHERE r.created_by_user_id = $1
		OR EXISTS (
			SELECT 1
			FROM reservation_participants p
			WHERE p.reservation_id = r.id
			AND p.user_id = $1
		)
		ORDER BY r.reservation_date_time ASC, r.id ASC`

	reservations := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &reservations, query, userID); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to query reservations of user %d: %w", userID, err)
	}

	if err := r.attachParticipants(ctx, nil, reservations); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return reservations, nil
}

// ListUnnotifiedConfirmed は通知イベントをまだ発行していないCONFIRMEDの予約を参加者付きでID順に返します
func (r *ReservationRepositoryImpl) ListUnnotifiedConfirmed(ctx context.Context) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ListUnnotifiedConfirmed")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1
		AND notified_at IS NULL
		ORDER BY id ASC`

	reservations := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &reservations, query, model.ReservationStatusConfirmed); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to query unnotified reservations: %w", err)
	}

	if err := r.attachParticipants(ctx, nil, reservations); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return reservations, nil
}

// MarkNotified は通知イベントを発行した予約に通知日時を記録します
// 記録済みの予約は更新しません
func (r *ReservationRepositoryImpl) MarkNotified(ctx context.Context, reservationIDs []int64, at time.Time) error {
	if len(reservationIDs) == 0 {
		return nil
	}

	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.MarkNotified")
	defer utils.CloseSegment(seg, nil)

	query := `
		UPDATE reservations
		SET notified_at = $1
		WHERE id = ANY($2)
		AND notified_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, at, pq.Array(reservationIDs)); err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to mark reservations as notified: %w", err)
	}
	return nil
}

// attachParticipants は予約ごとの参加者を1クエリでまとめて取得して設定します
func (r *ReservationRepositoryImpl) attachParticipants(ctx context.Context, tx *sqlx.Tx, reservations []model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	ids := make([]int64, len(reservations))
	index := make(map[int64]int, len(reservations))
	for i, res := range reservations {
		ids[i] = res.ID
		index[res.ID] = i
		reservations[i].Participants = []model.Participant{}
	}

	query := `
		SELECT id, reservation_id, user_id, status
		FROM reservation_participants
		WHERE reservation_id = ANY($1)
		ORDER BY id`

	var participants []model.Participant
	if err := sqlx.SelectContext(ctx, r.db.queryer(tx), &participants, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	for _, p := range participants {
		if i, ok := index[p.ReservationID]; ok {
			reservations[i].Participants = append(reservations[i].Participants, p)
		}
	}
	return nil
}
