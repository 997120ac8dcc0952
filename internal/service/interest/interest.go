package interest

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
)

// MinConfirmedUsers は自動予約を試みるのに必要なCONFIRMEDユーザー数です
const MinConfirmedUsers = 2

// AutoCreator は自動予約の作成を行います
type AutoCreator interface {
	TryAutoCreate(ctx context.Context, venueID int64, candidateIDs []int64, desired time.Time, creatorID int64) (*agent.AutoCreateResult, error)
}

// UpsertResult は関心の更新結果と、発火した場合の自動予約の結果です
type UpsertResult struct {
	Interest *model.Interest
	Agent    *agent.AutoCreateResult
}

type Service struct {
	interestRepo    repository.InterestRepository
	agent           AutoCreator
	reservationHour int
	now             func() time.Time
}

// NewService は関心サービスを作成します。reservationHourは自動予約の翌日の時刻です
func NewService(interestRepo repository.InterestRepository, creator AutoCreator, reservationHour int) *Service {
	return &Service{
		interestRepo:    interestRepo,
		agent:           creator,
		reservationHour: reservationHour,
		now:             time.Now,
	}
}

// Upsert は関心を作成または更新します
// CONFIRMEDに更新され、同じ店舗のCONFIRMEDユーザーが2人以上になった場合は自動予約を試みます
// 関心の更新は自動予約より先にコミットされるため、自動予約の失敗はログに記録し、
// Agentをnilにした結果を返します
func (s *Service) Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*UpsertResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InterestService.Upsert")
	defer utils.CloseSegment(seg, nil)

	interest, err := s.interestRepo.Upsert(ctx, userID, venueID, status)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Int64("venue_id", venueID).
		Str("status", string(status)).
		Msg("Upserted interest")

	result := &UpsertResult{Interest: interest}
	if status != model.InterestStatusConfirmed {
		return result, nil
	}

	confirmed, err := s.interestRepo.ConfirmedUserIDs(ctx, venueID)
	if err != nil {
		s.logAutoCreateFailure(seg, userID, venueID, fmt.Errorf("failed to list confirmed users: %w", err))
		return result, nil
	}
	if len(confirmed) < MinConfirmedUsers {
		return result, nil
	}

	agentResult, err := s.agent.TryAutoCreate(ctx, venueID, confirmed, s.nextReservationTime(), userID)
	if err != nil {
		s.logAutoCreateFailure(seg, userID, venueID, err)
		return result, nil
	}
	result.Agent = agentResult

	return result, nil
}

func (s *Service) logAutoCreateFailure(seg *xray.Segment, userID, venueID int64, err error) {
	utils.AddMetadata(seg, "auto_create_error", err.Error())
	log.Error().
		Err(err).
		Int64("user_id", userID).
		Int64("venue_id", venueID).
		Msg("Auto-create failed after interest was saved")
}

// List はユーザーの関心一覧を返します
func (s *Service) List(ctx context.Context, userID int64) ([]model.Interest, error) {
	return s.interestRepo.ListByUser(ctx, userID)
}

// nextReservationTime は翌日の指定時刻(分以下は0)を返します
func (s *Service) nextReservationTime() time.Time {
	tomorrow := s.now().AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), s.reservationHour, 0, 0, 0, tomorrow.Location())
}
