package recommend

import (
	"math"
	"testing"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

func TestVenueScore(t *testing.T) {
	venue := model.Venue{ID: 1, Latitude: 40.7589, Longitude: -73.9851}

	tests := []struct {
		name      string
		loc       *model.Location
		friendIDs []int64
		index     map[int64][]int64
		want      float64
	}{
		{
			name: "位置情報なし・関心なし",
			want: 0,
		},
		{
			name:  "本人の関心あり",
			index: map[int64][]int64{100: {1}},
			want:  10,
		},
		{
			name:      "関心のあるフレンド2人",
			friendIDs: []int64{2, 3, 4},
			index:     map[int64][]int64{2: {1}, 3: {1}, 4: {9}},
			want:      10,
		},
		{
			name: "同じ地点",
			loc:  &model.Location{Latitude: 40.7589, Longitude: -73.9851},
			want: 50,
		},
		{
			name:      "全要素",
			loc:       &model.Location{Latitude: 40.7589, Longitude: -73.9851},
			friendIDs: []int64{2},
			index:     map[int64][]int64{100: {1}, 2: {1}},
			want:      65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VenueScore(100, venue, tt.loc, tt.friendIDs, NewInterestIndex(tt.index))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("VenueScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVenueScore_FriendIncrement(t *testing.T) {
	venue := model.Venue{ID: 1}
	friendIDs := []int64{2, 3, 4, 5}
	index := map[int64][]int64{}

	prev := VenueScore(100, venue, nil, friendIDs, NewInterestIndex(index))
	for _, friendID := range friendIDs {
		index[friendID] = []int64{1}
		got := VenueScore(100, venue, nil, friendIDs, NewInterestIndex(index))
		if got-prev != 5.0 {
			t.Fatalf("adding friend %d changed score by %v, want 5", friendID, got-prev)
		}
		prev = got
	}
}

func TestVenueScore_MonotonicInDistance(t *testing.T) {
	venue := model.Venue{ID: 1, Latitude: 35.0, Longitude: 139.0}
	idx := NewInterestIndex(map[int64][]int64{100: {1}})

	prev := math.Inf(1)
	for d := 0.0; d <= 1.0; d += 0.05 {
		loc := &model.Location{Latitude: 35.0 + d, Longitude: 139.0}
		got := VenueScore(100, venue, loc, nil, idx)
		if got > prev {
			t.Fatalf("score increased with distance at offset %v: %v > %v", d, got, prev)
		}
		prev = got
	}
}

func TestCompanionScore(t *testing.T) {
	idx := NewInterestIndex(map[int64][]int64{
		1: {10, 11, 12},
		2: {11, 12, 13},
		3: {20},
	})

	tests := []struct {
		name        string
		candidateID int64
		venueID     int64
		strength    float64
		want        float64
	}{
		{name: "共通の関心2件", candidateID: 2, venueID: 99, strength: 1.0, want: 10 + 6},
		{name: "対象店舗に関心あり", candidateID: 2, venueID: 13, strength: 1.0, want: 10 + 6 + 20},
		{name: "共通なし", candidateID: 3, venueID: 99, strength: 2.5, want: 25},
		{name: "関心レコードなし", candidateID: 4, venueID: 10, strength: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompanionScore(1, tt.candidateID, tt.venueID, tt.strength, idx)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CompanionScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompanionScore_LinearInStrength(t *testing.T) {
	idx := NewInterestIndex(map[int64][]int64{1: {10}, 2: {10}})
	base := CompanionScore(1, 2, 10, 0, idx)
	for _, s := range []float64{0.5, 1, 3, 7.25} {
		got := CompanionScore(1, 2, 10, s, idx)
		if math.Abs(got-base-10*s) > 1e-9 {
			t.Errorf("CompanionScore(strength=%v) = %v, want %v", s, got, base+10*s)
		}
	}
}
