package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/common/config"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/database"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/metrics"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
)

// TaskNotifier はStep Functionsへのタスク完了通知を抽象化します
type TaskNotifier interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
}

// Acceptor は参加承諾後の確定判定を行います
type Acceptor interface {
	OnParticipantAccept(ctx context.Context, reservationID int64) (*agent.AcceptResult, error)
}

// ReservationBatchService はPENDINGの予約を再評価し、未通知の確定済み予約の通知イベントを発行します
type ReservationBatchService struct {
	db              *database.DB
	reservationRepo repository.ReservationRepository
	acceptor        Acceptor
	sfnClient       TaskNotifier
	cfg             *config.Config
	now             func() time.Time
}

// NewReservationBatchService は新しいReservationBatchServiceを作成します
func NewReservationBatchService(cfg *config.Config, sfnClient TaskNotifier) (*ReservationBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	repoDb := repository.NewDB(db.DB)
	reservationRepo := repository.NewReservationRepository(repoDb)

	return &ReservationBatchService{
		db:              db,
		reservationRepo: reservationRepo,
		acceptor:        agent.NewAgent(reservationRepo, repository.NewInterestRepository(repoDb)),
		sfnClient:       sfnClient,
		cfg:             cfg,
		now:             time.Now,
	}, nil
}

// Close は終了処理を行います
func (s *ReservationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run は予約バッチ処理を実行します
//  1. PENDINGの予約を再評価し、全員が承諾済みのものを確定します
//  2. 通知イベント未発行のCONFIRMEDの予約から参加者ごとのイベントを作成します
//  3. Step Functionsへ送信できた予約に通知日時を記録します
func (s *ReservationBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationBatchService.Run")
	defer utils.CloseSegment(seg, nil)

	startTime := time.Now()

	s.sweepPending(ctx)

	reservations, err := s.reservationRepo.ListUnnotifiedConfirmed(ctx)
	if err != nil {
		utils.CloseSegment(seg, err)
		return utils.GetStackWithError(fmt.Errorf("failed to get unnotified reservations: %w", err))
	}

	now := s.now()
	events := make([]model.ReservationEvent, 0)
	ids := make([]int64, 0, len(reservations))
	for _, reservation := range reservations {
		events = append(events, model.NewReservationEvents(reservation, now)...)
		ids = append(ids, reservation.ID)
	}

	sent, err := s.sendTaskSuccess(ctx, events)
	if err != nil {
		utils.CloseSegment(seg, err)
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	if sent {
		// 送信後に記録が失敗した予約は次回の実行で再送されます
		if err := s.reservationRepo.MarkNotified(ctx, ids, now); err != nil {
			utils.CloseSegment(seg, err)
			return utils.GetStackWithError(fmt.Errorf("failed to mark reservations as notified: %w", err))
		}
	}

	duration := time.Since(startTime)
	utils.AddMetadata(seg, "duration", duration.String())
	utils.AddMetadata(seg, "reservation_count", len(reservations))
	utils.AddMetadata(seg, "event_count", len(events))
	metrics.RecordBatchRecords("reservation", len(events))

	log.Info().
		Dur("duration", duration).
		Int("reservation_count", len(reservations)).
		Int("event_count", len(events)).
		Msg("Reservation batch process completed successfully")
	return nil
}

// sweepPending はPENDINGの予約ごとに確定判定を行い、確定した件数を返します
// 確定した予約は後続の未通知CONFIRMEDの収集で拾われます
// 1件の失敗でバッチ全体を止めないよう、一覧取得を含むエラーはログに記録して先に進みます
func (s *ReservationBatchService) sweepPending(ctx context.Context) int {
	reservations, err := s.reservationRepo.ListByStatus(ctx, model.ReservationStatusPending)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get pending reservations")
		return 0
	}

	log.Info().Int("count", len(reservations)).Msg("Found pending reservations")

	confirmed := 0
	for _, reservation := range reservations {
		result, err := s.acceptor.OnParticipantAccept(ctx, reservation.ID)
		if err != nil {
			log.Error().Err(err).Int64("reservation_id", reservation.ID).Msg("Failed to evaluate reservation")
			continue
		}
		if result.StateChanged() {
			confirmed++
		}
	}

	log.Info().Int("confirmed", confirmed).Msg("Pending reservations re-evaluated")
	return confirmed
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知します
// ローカル環境などで送信しなかった場合はfalseを返します
func (s *ReservationBatchService) sendTaskSuccess(ctx context.Context, events []model.ReservationEvent) (bool, error) {
	// ローカルの場合はStep Functionsの処理をスキップ
	if config.IsLocal() || s.sfnClient == nil {
		log.Info().Msg("Local environment detected. Skipping Step Functions task success notification")
		return false, nil
	}

	notifications := make([]model.Notification, len(events))
	for i, event := range events {
		notifications[i] = model.NewReservationNotification(event)
	}

	output, err := json.Marshal(map[string]any{
		"notifications": notifications,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal notifications: %w", err)
	}

	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return false, fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	_, err = s.sfnClient.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to send task success: %w", err)
	}

	log.Info().Int("notification_count", len(notifications)).Msg("Successfully sent task success")
	return true, nil
}
