package api

import (
	"context"
	"fmt"
	"time"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/interest"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/recommend"
)

type stubUsers struct {
	users   map[int64]model.User
	friends map[int64][]model.Friend
	err     error
}

func (s *stubUsers) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}
	return &u, nil
}

func (s *stubUsers) List(ctx context.Context) ([]model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.User, 0, len(s.users))
	for id := int64(1); id <= int64(len(s.users)); id++ {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *stubUsers) ListFriends(ctx context.Context, userID int64) ([]model.Friend, error) {
	return s.friends[userID], nil
}

type stubVenues struct {
	venues     map[int64]model.Venue
	lastFilter model.VenueFilter
}

func (s *stubVenues) List(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	s.lastFilter = filter
	out := make([]model.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		out = append(out, v)
	}
	return out, nil
}

func (s *stubVenues) GetByID(ctx context.Context, venueID int64) (*model.Venue, error) {
	v, ok := s.venues[venueID]
	if !ok {
		return nil, fmt.Errorf("venue %d: %w", venueID, model.ErrNotFound)
	}
	return &v, nil
}

type stubInterests struct {
	result  *interest.UpsertResult
	upserts []model.Interest
	listed  []model.Interest
}

func (s *stubInterests) Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*interest.UpsertResult, error) {
	in := model.Interest{ID: 1, UserID: userID, VenueID: venueID, Status: status}
	s.upserts = append(s.upserts, in)
	if s.result != nil {
		s.result.Interest = &in
		return s.result, nil
	}
	return &interest.UpsertResult{Interest: &in}, nil
}

func (s *stubInterests) List(ctx context.Context, userID int64) ([]model.Interest, error) {
	return s.listed, nil
}

type stubRecommender struct {
	venues  []recommend.RecommendedVenue
	lastLoc *model.Location
	called  bool
	err     error
}

func (s *stubRecommender) Compose(ctx context.Context, userID int64, loc *model.Location) ([]recommend.RecommendedVenue, error) {
	s.called = true
	s.lastLoc = loc
	return s.venues, s.err
}

type stubReservations struct {
	invited   []int64
	inviteAt  time.Time
	accept    *agent.AcceptResult
	acceptErr error
	listed    []model.Reservation
}

func (s *stubReservations) Invite(ctx context.Context, venueID int64, userIDs []int64, at time.Time) (*model.Reservation, error) {
	s.invited = userIDs
	s.inviteAt = at
	r := &model.Reservation{ID: 42, VenueID: venueID, CreatedByUserID: userIDs[0], ReservationDateTime: at, Status: model.ReservationStatusPending}
	for _, id := range userIDs {
		r.Participants = append(r.Participants, model.Participant{ReservationID: 42, UserID: id, Status: model.ParticipantStatusInvited})
	}
	return r, nil
}

func (s *stubReservations) AcceptInvitation(ctx context.Context, reservationID, userID int64) (*agent.AcceptResult, error) {
	return s.accept, s.acceptErr
}

func (s *stubReservations) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.listed, nil
}

type stubNotifications struct {
	records []model.NotificationRecord
	marked  []int64
}

func (s *stubNotifications) GetByUserID(ctx context.Context, userID int64) ([]model.NotificationRecord, error) {
	return s.records, nil
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID, id int64) error {
	for _, rec := range s.records {
		if rec.ID == id && rec.UserID == userID {
			s.marked = append(s.marked, id)
			return nil
		}
	}
	return fmt.Errorf("notification %d of user %d: %w", id, userID, model.ErrNotFound)
}

type fixture struct {
	users         *stubUsers
	venues        *stubVenues
	interests     *stubInterests
	recommender   *stubRecommender
	reservations  *stubReservations
	notifications *stubNotifications
}

func newFixture() *fixture {
	return &fixture{
		users: &stubUsers{users: map[int64]model.User{
			1: {ID: 1, Name: "Aiko"},
			2: {ID: 2, Name: "Ben"},
		}},
		venues: &stubVenues{venues: map[int64]model.Venue{
			10: {ID: 10, Name: "Blue Note", Category: "bar", Latitude: 35.66, Longitude: 139.7},
		}},
		interests:     &stubInterests{},
		recommender:   &stubRecommender{},
		reservations:  &stubReservations{},
		notifications: &stubNotifications{},
	}
}

func (f *fixture) server(opts Options) *Server {
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 6000
	}
	if opts.RateLimitBurst == 0 {
		opts.RateLimitBurst = 100
	}
	return NewServer(Deps{
		Users:         f.users,
		Venues:        f.venues,
		Interests:     f.interests,
		Recommender:   f.recommender,
		Reservations:  f.reservations,
		Bookings:      f.reservations,
		Notifications: f.notifications,
	}, opts)
}
