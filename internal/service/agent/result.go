package agent

import "github.com/uma-arai/sbcntr-rendezvous/internal/model"

// Outcome は自動予約作成の判定結果です
type Outcome string

const (
	// OutcomeCreated は新しい予約をCONFIRMEDで作成したことを表します
	OutcomeCreated Outcome = "created"
	// OutcomeExisting は全候補者を含む予約が既に存在したことを表します
	OutcomeExisting Outcome = "existing"
	// OutcomeMerged は既存予約に不足している候補者を追加したことを表します
	OutcomeMerged Outcome = "merged"
	// OutcomeNotReady はCONFIRMEDでない候補者がいるため何もしなかったことを表します
	OutcomeNotReady Outcome = "not_ready"
)

// AutoCreateResult は TryAutoCreate の結果です
type AutoCreateResult struct {
	Outcome     Outcome            `json:"outcome"`
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Reservation *model.Reservation `json:"reservation"`
	// Missing はCONFIRMEDになっていない候補者のIDです
	Missing []int64 `json:"missing_user_ids,omitempty"`
}

// AcceptOutcome は参加承諾後の確定判定の結果です
type AcceptOutcome string

const (
	AcceptConfirmed        AcceptOutcome = "confirmed"
	AcceptAlreadyConfirmed AcceptOutcome = "already_confirmed"
	AcceptWaiting          AcceptOutcome = "waiting"
	AcceptTerminal         AcceptOutcome = "terminal"
)

// AcceptResult は OnParticipantAccept / AcceptInvitation の結果です
// AcceptWaiting は「状態変化なし」であり、エラーや予約の消失とは区別されます
type AcceptResult struct {
	Outcome     AcceptOutcome      `json:"outcome"`
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Reservation *model.Reservation `json:"reservation"`
}

// StateChanged reports whether the reservation was confirmed by this call.
func (r *AcceptResult) StateChanged() bool {
	return r.Outcome == AcceptConfirmed
}
