package recommend

import "github.com/uma-arai/sbcntr-rendezvous/internal/model"

const (
	historyBonus          = 10.0
	friendPopularityBonus = 5.0
	friendshipWeight      = 10.0
	sharedInterestBonus   = 3.0
	targetVenueBonus      = 20.0
)

// InterestIndex はユーザーごとの関心あり(INTERESTED/CONFIRMED)店舗集合のスナップショットです
// 一度作成した後は読み取り専用で、複数のgoroutineから参照できます
type InterestIndex map[int64]map[int64]struct{}

// NewInterestIndex はユーザーID -> 店舗IDの一覧からインデックスを作成します
func NewInterestIndex(venuesByUser map[int64][]int64) InterestIndex {
	idx := make(InterestIndex, len(venuesByUser))
	for userID, venueIDs := range venuesByUser {
		set := make(map[int64]struct{}, len(venueIDs))
		for _, venueID := range venueIDs {
			set[venueID] = struct{}{}
		}
		idx[userID] = set
	}
	return idx
}

// Qualifies はユーザーが店舗に関心ありかどうかを返します
func (idx InterestIndex) Qualifies(userID, venueID int64) bool {
	_, ok := idx[userID][venueID]
	return ok
}

// Shared returns how many venues both users qualify for.
func (idx InterestIndex) Shared(a, b int64) int {
	setA, setB := idx[a], idx[b]
	if len(setB) < len(setA) {
		setA, setB = setB, setA
	}
	n := 0
	for venueID := range setA {
		if _, ok := setB[venueID]; ok {
			n++
		}
	}
	return n
}

// VenueScore はユーザーにとっての店舗の魅力度を計算します
// 距離(locがある場合のみ)、本人の関心、関心のあるフレンド数の加算です
func VenueScore(userID int64, venue model.Venue, loc *model.Location, friendIDs []int64, idx InterestIndex) float64 {
	score := 0.0

	if loc != nil {
		score += DistanceScore(HaversineDistance(loc.Latitude, loc.Longitude, venue.Latitude, venue.Longitude))
	}

	if idx.Qualifies(userID, venue.ID) {
		score += historyBonus
	}

	for _, friendID := range friendIDs {
		if idx.Qualifies(friendID, venue.ID) {
			score += friendPopularityBonus
		}
	}

	return score
}

// CompanionScore は店舗に誘う相手としての相性を計算します
// strengthは呼び出し側でフレンド関係から解決します
func CompanionScore(userID, candidateID, venueID int64, strength float64, idx InterestIndex) float64 {
	score := strength * friendshipWeight
	score += float64(idx.Shared(userID, candidateID)) * sharedInterestBonus
	if idx.Qualifies(candidateID, venueID) {
		score += targetVenueBonus
	}
	return score
}
