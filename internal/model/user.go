package model

// User はアプリの利用者です
type User struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
	Bio       *string `db:"bio" json:"bio"`
}

// DefaultFriendshipStrength is used when no strength is recorded.
const DefaultFriendshipStrength = 1.0

// Friendship は user -> friend の有向な関係です。対称性は仮定しません
type Friendship struct {
	ID       int64   `db:"id" json:"id"`
	UserID   int64   `db:"user_id" json:"user_id"`
	FriendID int64   `db:"friend_id" json:"friend_id"`
	Strength float64 `db:"strength" json:"strength"`
}

// Friend はフレンド関係と相手ユーザーをまとめたものです
type Friend struct {
	Friendship
	Friend User `db:"friend" json:"friend"`
}
