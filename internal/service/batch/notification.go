package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/common/config"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/database"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/metrics"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
)

// VenueNamer は店舗IDから店舗名を取得します
type VenueNamer interface {
	GetNameByID(ctx context.Context, venueID int64) (string, error)
}

// NotificationBatchService は通知バッチ処理を担当します
type NotificationBatchService struct {
	args             []model.Notification
	db               *database.DB
	notificationRepo repository.NotificationRepository
	venueRepo        VenueNamer
	cfg              *config.Config
}

// NewNotificationBatchService は新しいNotificationBatchServiceを作成します
func NewNotificationBatchService(cfg *config.Config) (*NotificationBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	repoDb := repository.NewDB(db.DB)

	return &NotificationBatchService{
		db:               db,
		notificationRepo: repository.NewNotificationRepository(repoDb),
		venueRepo:        repository.NewVenueRepository(repoDb),
		cfg:              cfg,
	}, nil
}

// Close は終了処理を行います
func (s *NotificationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetArgs は通知バッチ処理の引数を設定します
func (s *NotificationBatchService) SetArgs(args []model.Notification) {
	s.args = args
}

// Run は通知バッチ処理を実行します
func (s *NotificationBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.Run")
	defer utils.CloseSegment(seg, nil)

	notifications := s.args
	log.Info().Int("count", len(notifications)).Msg("Starting notification batch process")
	utils.AddMetadata(seg, "notification_count", len(notifications))

	startTime := time.Now()

	venueNameMap, err := s.getVenueNameMap(ctx, notifications)
	if err != nil {
		utils.CloseSegment(seg, err)
		return err
	}

	records := make([]model.NotificationRecord, len(notifications))
	for i, notification := range notifications {
		record, err := notification.ToNotificationRecord(venueNameMap)
		if err != nil {
			utils.CloseSegment(seg, err)
			return err
		}
		records[i] = *record
	}

	if err := s.notificationRepo.CreateNotifications(ctx, records); err != nil {
		utils.CloseSegment(seg, err)
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	duration := time.Since(startTime)
	utils.AddMetadata(seg, "duration", duration.String())
	utils.AddMetadata(seg, "venue_count", len(venueNameMap))
	metrics.RecordBatchRecords("notification", len(records))

	log.Info().Dur("duration", duration).Msg("Notification batch process completed successfully")
	return nil
}

// 通知データに含まれる情報から店舗名を取得する
// N+1とならないように先に重複がない店舗IDを取得をしておく
func (s *NotificationBatchService) getVenueNameMap(ctx context.Context, notifications []model.Notification) (map[int64]string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.getVenueNameMap")
	defer utils.CloseSegment(seg, nil)

	venueIDs := make([]int64, 0)
	seen := make(map[int64]struct{})
	for _, notification := range notifications {
		// 予約以外の通知は店舗名を必要としない
		if notification.Type != model.NotificationTypeReservation {
			continue
		}
		venueID, err := notification.VenueID()
		if err != nil {
			utils.CloseSegment(seg, err)
			return nil, err
		}
		if _, ok := seen[venueID]; ok {
			continue
		}
		seen[venueID] = struct{}{}
		venueIDs = append(venueIDs, venueID)
	}

	utils.AddMetadata(seg, "unique_venue_count", len(venueIDs))

	venueNameMap := make(map[int64]string, len(venueIDs))
	for _, venueID := range venueIDs {
		name, err := s.venueRepo.GetNameByID(ctx, venueID)
		if err != nil {
			utils.CloseSegment(seg, err)
			return nil, err
		}
		venueNameMap[venueID] = name
	}

	return venueNameMap, nil
}
