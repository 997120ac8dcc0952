package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// UserRepository はユーザーとフレンド関係の参照を担当するインターフェースです
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListFriends(ctx context.Context, userID int64) ([]model.Friend, error)
}

type UserRepositoryImpl struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// GetByID は指定されたユーザーを取得します。存在しない場合はmodel.ErrNotFoundを返します
func (r *UserRepositoryImpl) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "UserRepository.GetByID")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT id, name, avatar_url, bio
		FROM users
		WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
		}
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// List returns every user ordered by id.
func (r *UserRepositoryImpl) List(ctx context.Context) ([]model.User, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "UserRepository.List")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT id, name, avatar_url, bio
		FROM users
		ORDER BY id`

	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// ListFriends は user_id -> friend_id 方向のフレンド関係のみをフレンドシップID順に返します
// strengthが未設定の場合はmodel.DefaultFriendshipStrengthとして扱います
func (r *UserRepositoryImpl) ListFriends(ctx context.Context, userID int64) ([]model.Friend, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "UserRepository.ListFriends")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT
			f.id,
			f.user_id,
			f.friend_id,
			COALESCE(f.strength, $2) AS strength,
			u.id AS "friend.id",
			u.name AS "friend.name",
			u.avatar_url AS "friend.avatar_url",
			u.bio AS "friend.bio"
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY f.id`

	friends := []model.Friend{}
	if err := r.db.SelectContext(ctx, &friends, query, userID, model.DefaultFriendshipStrength); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list friends of user %d: %w", userID, err)
	}

	return friends, nil
}
