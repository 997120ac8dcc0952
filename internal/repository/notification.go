package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// NotificationRepository は通知の永続化を担当するインターフェースです
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, records []model.NotificationRecord) error
	Create(ctx context.Context, tx *sqlx.Tx, record *model.NotificationRecord) error
	GetByUserID(ctx context.Context, userID int64) ([]model.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, id int64) error
}

// NotificationRepositoryImpl は通知の永続化を担当します
type NotificationRepositoryImpl struct {
	db *DB
}

// NewNotificationRepository は新しいNotificationRepositoryを作成します
func NewNotificationRepository(db *DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{
		db: db,
	}
}

// CreateNotifications は複数の通知レコードを1トランザクションで作成します
func (r *NotificationRepositoryImpl) CreateNotifications(ctx context.Context, records []model.NotificationRecord) (err error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.CreateNotifications")
	defer utils.CloseSegment(seg, nil)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// エラーが発生した場合のみロールバックを実行
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).AnErr("cause", err).Msg("rollback failed")
			}
			utils.CloseSegment(seg, err)
		}
	}()

	for i := range records {
		if err = r.Create(ctx, tx, &records[i]); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Create は単一の通知レコードを作成します
func (r *NotificationRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, record *model.NotificationRecord) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.Create")
	defer utils.CloseSegment(seg, nil)

	query := `
		INSERT INTO notifications (
			user_id, title, message, is_read, type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id`

	err := tx.QueryRowContext(ctx,
		query,
		record.UserID,
		record.Title,
		record.Message,
		record.IsRead,
		record.Type,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID)

	if err != nil {
		utils.CloseSegment(seg, err)
		return err
	}

	return nil
}

// GetByUserID は指定されたユーザーIDの通知を新しい順に取得します
func (r *NotificationRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]model.NotificationRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.GetByUserID")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT id, user_id, title, message, is_read, type, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	records := []model.NotificationRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	return records, nil
}

// MarkRead はユーザー本人の通知を既読にします
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, userID, id int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.MarkRead")
	defer utils.CloseSegment(seg, nil)

	query := `
		UPDATE notifications
		SET is_read = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to update notification is_read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notification %d of user %d: %w", id, userID, model.ErrNotFound)
	}

	return nil
}
