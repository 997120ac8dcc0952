package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/metrics"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
)

// WindowHalfWidth は重複判定に使う希望時刻前後の幅です
const WindowHalfWidth = 30 * time.Minute

// Agent は関心・参加状況の変化を受けて予約の自動作成・自動確定を行います
// 各エントリポイントは1トランザクション内で読み取り・判定・書き込みを行い、
// 店舗単位でプロセス内ロックとPostgresのアドバイザリロックにより直列化されます
type Agent struct {
	reservationRepo repository.ReservationRepository
	interestRepo    repository.InterestRepository
	venueLocks      *keyedMutex
}

func NewAgent(reservationRepo repository.ReservationRepository, interestRepo repository.InterestRepository) *Agent {
	return &Agent{
		reservationRepo: reservationRepo,
		interestRepo:    interestRepo,
		venueLocks:      newKeyedMutex(),
	}
}

// TryAutoCreate は候補者全員がCONFIRMEDの場合に予約を作成します
//  1. CONFIRMEDでない候補者がいれば OutcomeNotReady を返します(書き込みなし)
//  2. 希望時刻±30分にキャンセル以外の予約があり、全候補者を含んでいればそれを返します
//  3. 不足がある場合は最もIDの小さい予約に不足分をACCEPTEDで追加します
//  4. 該当がなければCONFIRMEDの予約を作成し、全員をACCEPTEDで登録します
func (a *Agent) TryAutoCreate(ctx context.Context, venueID int64, candidateIDs []int64, desired time.Time, creatorID int64) (result *AutoCreateResult, err error) {
	ctx, seg := xray.BeginSubsegment(ctx, "Agent.TryAutoCreate")
	defer utils.CloseSegment(seg, nil)

	candidates := uniqueIDs(candidateIDs)
	if len(candidates) == 0 {
		err := fmt.Errorf("auto-create for venue %d without candidates: %w", venueID, model.ErrInvariantViolation)
		utils.CloseSegment(seg, err)
		return nil, err
	}

	unlock, err := a.venueLocks.Lock(ctx, venueID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to lock venue %d: %w", venueID, err)
	}
	defer unlock()

	tx, err := a.reservationRepo.BeginTx(ctx)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Int64("venue_id", venueID).Msg("Failed to rollback transaction")
			}
		}
		if err != nil {
			utils.CloseSegment(seg, err)
			return
		}
		metrics.RecordAgentOutcome("try_auto_create", string(result.Outcome))
		log.Info().
			Int64("venue_id", venueID).
			Ints64("candidate_ids", candidates).
			Str("outcome", string(result.Outcome)).
			Msg(result.Message)
	}()

	if err := a.reservationRepo.LockVenue(ctx, tx, venueID); err != nil {
		return nil, err
	}

	statuses, err := a.interestRepo.StatusesFor(ctx, tx, venueID, candidates)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range candidates {
		if statuses[id] != model.InterestStatusConfirmed {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &AutoCreateResult{
			Outcome: OutcomeNotReady,
			Success: false,
			Message: fmt.Sprintf("Waiting for users %v to confirm interest", missing),
			Missing: missing,
		}, nil
	}

	existing, err := a.reservationRepo.FindActiveInWindow(ctx, tx, venueID, desired.Add(-WindowHalfWidth), desired.Add(WindowHalfWidth))
	if err != nil {
		return nil, err
	}

	for i := range existing {
		if existing[i].MissingParticipants(candidates) == nil {
			return &AutoCreateResult{
				Outcome:     OutcomeExisting,
				Success:     true,
				Message:     "Reservation already exists",
				Reservation: &existing[i],
			}, nil
		}
	}

	if len(existing) > 0 {
		target := &existing[0]
		if err := a.merge(ctx, tx, target, target.MissingParticipants(candidates)); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return &AutoCreateResult{
			Outcome:     OutcomeMerged,
			Success:     true,
			Message:     "Participants added to existing reservation",
			Reservation: target,
		}, nil
	}

	reservation := &model.Reservation{
		VenueID:             venueID,
		CreatedByUserID:     creatorID,
		ReservationDateTime: desired,
		Status:              model.ReservationStatusConfirmed,
		Participants:        make([]model.Participant, 0, len(candidates)),
	}
	for _, id := range candidates {
		reservation.Participants = append(reservation.Participants, model.Participant{
			UserID: id,
			Status: model.ParticipantStatusAccepted,
		})
	}
	if err := a.reservationRepo.Create(ctx, tx, reservation); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	utils.AddMetadata(seg, "reservation_id", reservation.ID)
	return &AutoCreateResult{
		Outcome:     OutcomeCreated,
		Success:     true,
		Message:     "Reservation created successfully",
		Reservation: reservation,
	}, nil
}

// merge は不足している候補者をACCEPTEDで追加し、確定条件を満たせば確定します
func (a *Agent) merge(ctx context.Context, tx *sqlx.Tx, target *model.Reservation, missing []int64) error {
	for _, id := range missing {
		p := model.Participant{
			ReservationID: target.ID,
			UserID:        id,
			Status:        model.ParticipantStatusAccepted,
		}
		if err := a.reservationRepo.AddParticipant(ctx, tx, &p); err != nil {
			return err
		}
		target.Participants = append(target.Participants, p)
	}

	if target.ReadyToConfirm() {
		if err := a.reservationRepo.UpdateStatus(ctx, tx, target.ID, model.ReservationStatusConfirmed); err != nil {
			return err
		}
		target.Status = model.ReservationStatusConfirmed
	}
	return nil
}

// OnParticipantAccept は参加者全員がACCEPTEDになった予約をPENDINGからCONFIRMEDに遷移させます
// 予約が存在しない場合は model.ErrNotFound を返します
func (a *Agent) OnParticipantAccept(ctx context.Context, reservationID int64) (*AcceptResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "Agent.OnParticipantAccept")
	defer utils.CloseSegment(seg, nil)

	result, err := a.inAcceptTx(ctx, reservationID, func(tx *sqlx.Tx, r *model.Reservation) error {
		return nil
	})
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}

	metrics.RecordAgentOutcome("on_participant_accept", string(result.Outcome))
	return result, nil
}

// inAcceptTx は予約行をロックして取得し、mutateの後に確定判定を行います
func (a *Agent) inAcceptTx(ctx context.Context, reservationID int64, mutate func(tx *sqlx.Tx, r *model.Reservation) error) (*AcceptResult, error) {
	tx, err := a.reservationRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Int64("reservation_id", reservationID).Msg("Failed to rollback transaction")
			}
		}
	}()

	reservation, err := a.reservationRepo.GetByID(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}

	if err := mutate(tx, reservation); err != nil {
		return nil, err
	}

	result, err := a.confirmIfReady(ctx, tx, reservation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	log.Info().
		Int64("reservation_id", reservationID).
		Int64("venue_id", reservation.VenueID).
		Str("outcome", string(result.Outcome)).
		Msg(result.Message)

	return result, nil
}

// confirmIfReady は予約の状態遷移を判定します。CONFIRMED/CANCELLEDからは遷移しません
func (a *Agent) confirmIfReady(ctx context.Context, tx *sqlx.Tx, reservation *model.Reservation) (*AcceptResult, error) {
	switch reservation.Status {
	case model.ReservationStatusConfirmed:
		return &AcceptResult{
			Outcome:     AcceptAlreadyConfirmed,
			Success:     true,
			Message:     "Reservation already confirmed",
			Reservation: reservation,
		}, nil
	case model.ReservationStatusCancelled:
		return &AcceptResult{
			Outcome:     AcceptTerminal,
			Success:     false,
			Message:     "Reservation is cancelled",
			Reservation: reservation,
		}, nil
	}

	if !reservation.ReadyToConfirm() {
		return &AcceptResult{
			Outcome:     AcceptWaiting,
			Success:     true,
			Message:     "Reservation accepted, waiting for other participants",
			Reservation: reservation,
		}, nil
	}

	if err := a.reservationRepo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusConfirmed); err != nil {
		return nil, err
	}
	reservation.Status = model.ReservationStatusConfirmed

	return &AcceptResult{
		Outcome:     AcceptConfirmed,
		Success:     true,
		Message:     "Reservation accepted and confirmed",
		Reservation: reservation,
	}, nil
}

// uniqueIDs は重複を除いたIDを入力順に返します
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
