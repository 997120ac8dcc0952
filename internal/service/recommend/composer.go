package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/metrics"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
)

// DefaultCompanionLimit は店舗ごとに返すおすすめ同行者の上限です
const DefaultCompanionLimit = 5

type RecommendedPerson struct {
	User               model.User `json:"user"`
	CompatibilityScore float64    `json:"compatibility_score"`
}

type RecommendedVenue struct {
	Venue             model.Venue         `json:"venue"`
	Score             float64             `json:"score"`
	RecommendedPeople []RecommendedPerson `json:"recommended_people"`
}

// Composer はユーザーごとの店舗ランキングと店舗ごとの同行者ランキングを作成します
// 読み取りのみを行うため、並行に呼び出しても問題ありません
type Composer struct {
	userRepo       repository.UserRepository
	venueRepo      repository.VenueRepository
	interestRepo   repository.InterestRepository
	companionLimit int
}

func NewComposer(
	userRepo repository.UserRepository,
	venueRepo repository.VenueRepository,
	interestRepo repository.InterestRepository,
	companionLimit int,
) *Composer {
	if companionLimit <= 0 {
		companionLimit = DefaultCompanionLimit
	}
	return &Composer{
		userRepo:       userRepo,
		venueRepo:      venueRepo,
		interestRepo:   interestRepo,
		companionLimit: companionLimit,
	}
}

// Compose はスコアの降順に並べた全店舗と、各店舗の上位の同行者候補を返します
// 同点の場合は元の順序(店舗ID順、フレンドシップID順)を保ちます
func (c *Composer) Compose(ctx context.Context, userID int64, loc *model.Location) ([]RecommendedVenue, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "Composer.Compose")
	defer utils.CloseSegment(seg, nil)

	startTime := time.Now()

	if _, err := c.userRepo.GetByID(ctx, userID); err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}

	friends, err := c.userRepo.ListFriends(ctx, userID)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	friends = uniqueFriends(friends)

	venues, err := c.venueRepo.List(ctx, model.VenueFilter{})
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to load venues: %w", err)
	}

	friendIDs := make([]int64, len(friends))
	for i, f := range friends {
		friendIDs[i] = f.FriendID
	}

	qualifying, err := c.interestRepo.QualifyingVenueIDs(ctx, append([]int64{userID}, friendIDs...))
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to load interests: %w", err)
	}
	idx := NewInterestIndex(qualifying)

	recommendations := make([]RecommendedVenue, 0, len(venues))
	for _, venue := range venues {
		people := make([]RecommendedPerson, 0, len(friends))
		for _, f := range friends {
			people = append(people, RecommendedPerson{
				User:               f.Friend,
				CompatibilityScore: CompanionScore(userID, f.FriendID, venue.ID, f.Strength, idx),
			})
		}
		sort.SliceStable(people, func(i, j int) bool {
			return people[i].CompatibilityScore > people[j].CompatibilityScore
		})
		if len(people) > c.companionLimit {
			people = people[:c.companionLimit]
		}

		recommendations = append(recommendations, RecommendedVenue{
			Venue:             venue,
			Score:             VenueScore(userID, venue, loc, friendIDs, idx),
			RecommendedPeople: people,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	duration := time.Since(startTime)
	metrics.RecordCompose(duration)
	utils.AddMetadata(seg, "venue_count", len(recommendations))
	utils.AddMetadata(seg, "friend_count", len(friends))

	log.Debug().
		Int64("user_id", userID).
		Int("venue_count", len(recommendations)).
		Dur("duration", duration).
		Msg("Composed recommendations")

	return recommendations, nil
}

// uniqueFriends は同じ相手への重複したフレンド関係を最初の1件にまとめます
func uniqueFriends(friends []model.Friend) []model.Friend {
	seen := make(map[int64]struct{}, len(friends))
	out := make([]model.Friend, 0, len(friends))
	for _, f := range friends {
		if _, ok := seen[f.FriendID]; ok {
			continue
		}
		seen[f.FriendID] = struct{}{}
		out = append(out, f)
	}
	return out
}
