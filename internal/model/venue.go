package model

// Venue は予約可能な店舗です
type Venue struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Category    string  `db:"category" json:"category"`
	Address     string  `db:"address" json:"address"`
	Latitude    float64 `db:"latitude" json:"latitude"`
	Longitude   float64 `db:"longitude" json:"longitude"`
	Description *string `db:"description" json:"description"`
}

// Location is a point in degrees. Range checks belong to the caller.
type Location struct {
	Latitude  float64
	Longitude float64
}

// VenueFilter は店舗一覧の絞り込み条件です。nilの項目は無視されます
type VenueFilter struct {
	Category *string
	MinLat   *float64
	MaxLat   *float64
	MinLon   *float64
	MaxLon   *float64
}
