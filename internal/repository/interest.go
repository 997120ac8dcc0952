package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// InterestRepository はユーザーの店舗に対する関心の永続化を担当するインターフェースです
type InterestRepository interface {
	Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*model.Interest, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Interest, error)
	StatusesFor(ctx context.Context, tx *sqlx.Tx, venueID int64, userIDs []int64) (map[int64]model.InterestStatus, error)
	ConfirmedUserIDs(ctx context.Context, venueID int64) ([]int64, error)
	QualifyingVenueIDs(ctx context.Context, userIDs []int64) (map[int64][]int64, error)
}

type InterestRepositoryImpl struct {
	db *DB
}

func NewInterestRepository(db *DB) *InterestRepositoryImpl {
	return &InterestRepositoryImpl{db: db}
}

const interestColumns = `id, user_id, venue_id, status, created_at, updated_at`

// Upsert は(ユーザー, 店舗)ごとに1件となるように関心を作成または更新します
func (r *InterestRepositoryImpl) Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*model.Interest, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestRepository.Upsert")
	defer utils.CloseSegment(seg, nil)

	query := `
		INSERT INTO user_interests (user_id, venue_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, venue_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING ` + interestColumns

	var interest model.Interest
	err := r.db.GetContext(ctx, &interest, query, userID, venueID, status, time.Now())
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to upsert interest: %w", err)
	}

	return &interest, nil
}

// ListByUser はユーザーの関心をID順に返します
func (r *InterestRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]model.Interest, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestRepository.ListByUser")
	defer utils.CloseSegment(seg, nil)

	query := "SELECT " + interestColumns + " FROM user_interests WHERE user_id = $1 ORDER BY id"

	interests := []model.Interest{}
	if err := r.db.SelectContext(ctx, &interests, query, userID); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}

	return interests, nil
}

// StatusesFor は指定店舗に対する各ユーザーの関心ステータスを返します
// 関心レコードがないユーザーはmapに含まれません
func (r *InterestRepositoryImpl) StatusesFor(ctx context.Context, tx *sqlx.Tx, venueID int64, userIDs []int64) (map[int64]model.InterestStatus, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestRepository.StatusesFor")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT user_id, status
		FROM user_interests
		WHERE venue_id = $1
		AND user_id = ANY($2)`

	var rows []struct {
		UserID int64                `db:"user_id"`
		Status model.InterestStatus `db:"status"`
	}
	if err := sqlx.SelectContext(ctx, r.db.queryer(tx), &rows, query, venueID, pq.Array(userIDs)); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to get interest statuses: %w", err)
	}

	statuses := make(map[int64]model.InterestStatus, len(rows))
	for _, row := range rows {
		statuses[row.UserID] = row.Status
	}
	return statuses, nil
}

// ConfirmedUserIDs returns users holding CONFIRMED interest in the venue, oldest interest first.
func (r *InterestRepositoryImpl) ConfirmedUserIDs(ctx context.Context, venueID int64) ([]int64, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestRepository.ConfirmedUserIDs")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT user_id
		FROM user_interests
		WHERE venue_id = $1
		AND status = $2
		ORDER BY id`

	userIDs := []int64{}
	if err := r.db.SelectContext(ctx, &userIDs, query, venueID, model.InterestStatusConfirmed); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list confirmed users: %w", err)
	}

	return userIDs, nil
}

// QualifyingVenueIDs は各ユーザーがINTERESTEDまたはCONFIRMEDの関心を持つ店舗IDを返します
// レコメンド1回につき1度だけ呼び出し、N+1を避けます
func (r *InterestRepositoryImpl) QualifyingVenueIDs(ctx context.Context, userIDs []int64) (map[int64][]int64, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestRepository.QualifyingVenueIDs")
	defer utils.CloseSegment(seg, nil)

	result := make(map[int64][]int64, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	statuses := make([]string, len(model.QualifyingInterestStatuses))
	for i, s := range model.QualifyingInterestStatuses {
		statuses[i] = string(s)
	}

	query := `
		SELECT user_id, venue_id
		FROM user_interests
		WHERE user_id = ANY($1)
		AND status = ANY($2)
		ORDER BY id`

	var rows []struct {
		UserID  int64 `db:"user_id"`
		VenueID int64 `db:"venue_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(userIDs), pq.Array(statuses)); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list qualifying interests: %w", err)
	}

	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], row.VenueID)
	}
	return result, nil
}
