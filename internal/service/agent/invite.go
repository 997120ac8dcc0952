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
)

// Invite は手動で予約を作成し、全員をINVITEDとして招待します
// 作成者は先頭のユーザーです
func (a *Agent) Invite(ctx context.Context, venueID int64, userIDs []int64, at time.Time) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "Agent.Invite")
	defer utils.CloseSegment(seg, nil)

	invitees := uniqueIDs(userIDs)
	if len(invitees) == 0 {
		err := fmt.Errorf("at least one participant is required: %w", model.ErrInvariantViolation)
		utils.CloseSegment(seg, err)
		return nil, err
	}

	reservation := &model.Reservation{
		VenueID:             venueID,
		CreatedByUserID:     invitees[0],
		ReservationDateTime: at,
		Status:              model.ReservationStatusPending,
		Participants:        make([]model.Participant, 0, len(invitees)),
	}
	for _, id := range invitees {
		reservation.Participants = append(reservation.Participants, model.Participant{
			UserID: id,
			Status: model.ParticipantStatusInvited,
		})
	}

	tx, err := a.reservationRepo.BeginTx(ctx)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := a.reservationRepo.Create(ctx, tx, reservation); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Int64("venue_id", venueID).Msg("Failed to rollback transaction")
		}
		utils.CloseSegment(seg, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int64("reservation_id", reservation.ID).
		Int64("venue_id", venueID).
		Int("participant_count", len(invitees)).
		Msg("Created reservation")

	return reservation, nil
}

// AcceptInvitation は参加者をACCEPTEDにし、同じトランザクション内で確定判定を行います
// 予約または参加者が存在しない場合は model.ErrNotFound を返します
func (a *Agent) AcceptInvitation(ctx context.Context, reservationID, userID int64) (*AcceptResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "Agent.AcceptInvitation")
	defer utils.CloseSegment(seg, nil)

	result, err := a.inAcceptTx(ctx, reservationID, func(tx *sqlx.Tx, r *model.Reservation) error {
		p, ok := r.Participant(userID)
		if !ok {
			return fmt.Errorf("user %d is not a participant of reservation %d: %w", userID, reservationID, model.ErrNotFound)
		}
		if p.Status == model.ParticipantStatusAccepted {
			return nil
		}
		if err := a.reservationRepo.UpdateParticipantStatus(ctx, tx, reservationID, userID, model.ParticipantStatusAccepted); err != nil {
			return err
		}
		p.Status = model.ParticipantStatusAccepted
		return nil
	})
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}

	metrics.RecordAgentOutcome("accept_invitation", string(result.Outcome))
	return result, nil
}
