// Package api は予約・レコメンドのHTTP APIを提供します
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/interest"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/recommend"
)

const serviceName = "sbcntr-rendezvous-api"

// UserReader はユーザーとフレンド関係を参照します
type UserReader interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListFriends(ctx context.Context, userID int64) ([]model.Friend, error)
}

// VenueReader は店舗を参照します
type VenueReader interface {
	List(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error)
	GetByID(ctx context.Context, venueID int64) (*model.Venue, error)
}

// InterestService は関心の登録と、それに続く自動予約作成を行います
type InterestService interface {
	Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*interest.UpsertResult, error)
	List(ctx context.Context, userID int64) ([]model.Interest, error)
}

// Recommender は店舗と同行者のレコメンドを作成します
type Recommender interface {
	Compose(ctx context.Context, userID int64, loc *model.Location) ([]recommend.RecommendedVenue, error)
}

// Reservations は手動予約の作成と参加承諾を行います
type Reservations interface {
	Invite(ctx context.Context, venueID int64, userIDs []int64, at time.Time) (*model.Reservation, error)
	AcceptInvitation(ctx context.Context, reservationID, userID int64) (*agent.AcceptResult, error)
}

// ReservationLister はユーザーが作成または参加している予約を返します
type ReservationLister interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
}

// NotificationStore はユーザーへの通知を参照・既読化します
type NotificationStore interface {
	GetByUserID(ctx context.Context, userID int64) ([]model.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, id int64) error
}

// Deps はハンドラが利用するサービス群です
type Deps struct {
	Users         UserReader
	Venues        VenueReader
	Interests     InterestService
	Recommender   Recommender
	Reservations  Reservations
	Bookings      ReservationLister
	Notifications NotificationStore
}

// Options はミドルウェアの設定です
type Options struct {
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Server はHTTPハンドラをまとめたものです
type Server struct {
	deps    Deps
	limiter *IPRateLimiter
}

// NewServer は新しいServerを作成します
func NewServer(deps Deps, opts Options) *Server {
	return &Server{
		deps:    deps,
		limiter: NewIPRateLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst, 5*time.Minute),
	}
}

// Routes はchiルーターを組み立て、X-Rayのハンドラでラップして返します
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics)

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimitByIP(s.limiter))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.ListUsers)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", s.GetUser)
				r.Get("/friends", s.ListFriends)
				r.Get("/interests", s.ListInterests)
				r.Post("/interests", s.UpsertInterest)
				r.Get("/notifications", s.ListNotifications)
				r.Post("/notifications/{notificationID}/read", s.MarkNotificationRead)
			})
		})

		r.Route("/venues", func(r chi.Router) {
			r.Get("/", s.ListVenues)
			r.Get("/{venueID}", s.GetVenue)
		})

		r.Get("/recommendations/{userID}", s.GetRecommendations)

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", s.CreateReservation)
			r.Post("/accept", s.AcceptReservation)
			r.Get("/{userID}", s.ListReservations)
		})
	})

	return xray.Handler(xray.NewFixedSegmentNamer(serviceName), r)
}

// Health はヘルスチェック用のハンドラです
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
