package recommend

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// MockUserRepository はテスト用のモックリポジトリです
type MockUserRepository struct {
	users            map[int64]model.User
	friends          map[int64][]model.Friend
	listFriendsCalls int
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}
	return &u, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MockUserRepository) ListFriends(ctx context.Context, userID int64) ([]model.Friend, error) {
	m.listFriendsCalls++
	return m.friends[userID], nil
}

// MockVenueRepository はテスト用のモックリポジトリです
type MockVenueRepository struct {
	venues  []model.Venue
	listErr error
}

func (m *MockVenueRepository) List(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	return m.venues, m.listErr
}

func (m *MockVenueRepository) GetByID(ctx context.Context, venueID int64) (*model.Venue, error) {
	for _, v := range m.venues {
		if v.ID == venueID {
			return &v, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *MockVenueRepository) GetNameByID(ctx context.Context, venueID int64) (string, error) {
	v, err := m.GetByID(ctx, venueID)
	if err != nil {
		return "", err
	}
	return v.Name, nil
}

// MockInterestRepository は関心レコードをメモリ上に保持するモックです
type MockInterestRepository struct {
	mu              sync.Mutex
	interests       []model.Interest
	qualifyingCalls int
}

func (m *MockInterestRepository) Upsert(ctx context.Context, userID, venueID int64, status model.InterestStatus) (*model.Interest, error) {
	return nil, nil
}

func (m *MockInterestRepository) ListByUser(ctx context.Context, userID int64) ([]model.Interest, error) {
	return nil, nil
}

func (m *MockInterestRepository) StatusesFor(ctx context.Context, tx *sqlx.Tx, venueID int64, userIDs []int64) (map[int64]model.InterestStatus, error) {
	return nil, nil
}

func (m *MockInterestRepository) ConfirmedUserIDs(ctx context.Context, venueID int64) ([]int64, error) {
	return nil, nil
}

func (m *MockInterestRepository) QualifyingVenueIDs(ctx context.Context, userIDs []int64) (map[int64][]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qualifyingCalls++

	wanted := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	result := make(map[int64][]int64)
	for _, in := range m.interests {
		if wanted[in.UserID] && in.Status.Qualifies() {
			result[in.UserID] = append(result[in.UserID], in.VenueID)
		}
	}
	return result, nil
}
