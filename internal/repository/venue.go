package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// VenueRepository は店舗情報の参照を担当するインターフェースです
type VenueRepository interface {
	List(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error)
	GetByID(ctx context.Context, venueID int64) (*model.Venue, error)
	GetNameByID(ctx context.Context, venueID int64) (string, error)
}

// VenueRepositoryImpl はVenueRepositoryの実装です
type VenueRepositoryImpl struct {
	db *DB
}

// NewVenueRepository は新しいVenueRepositoryを作成します
func NewVenueRepository(db *DB) *VenueRepositoryImpl {
	return &VenueRepositoryImpl{
		db: db,
	}
}

const venueColumns = `id, name, category, address, latitude, longitude, description`

// List は条件に一致する店舗をID順に返します
func (r *VenueRepositoryImpl) List(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "VenueRepository.List")
	defer utils.CloseSegment(seg, nil)

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Category != nil && *filter.Category != "" {
		add("category = $%d", *filter.Category)
	}
	if filter.MinLat != nil {
		add("latitude >= $%d", *filter.MinLat)
	}
	if filter.MaxLat != nil {
		add("latitude <= $%d", *filter.MaxLat)
	}
	if filter.MinLon != nil {
		add("longitude >= $%d", *filter.MinLon)
	}
	if filter.MaxLon != nil {
		add("longitude <= $%d", *filter.MaxLon)
	}

	query := "SELECT " + venueColumns + " FROM venues"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	venues := []model.Venue{}
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	return venues, nil
}

// GetByID は指定された店舗を取得します
func (r *VenueRepositoryImpl) GetByID(ctx context.Context, venueID int64) (*model.Venue, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "VenueRepository.GetByID")
	defer utils.CloseSegment(seg, nil)

	query := "SELECT " + venueColumns + " FROM venues WHERE id = $1"

	var venue model.Venue
	if err := r.db.GetContext(ctx, &venue, query, venueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("venue %d: %w", venueID, model.ErrNotFound)
		}
		utils.CloseSegment(seg, err)
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	return &venue, nil
}

// GetNameByID は指定された店舗IDから店舗名を取得します
func (r *VenueRepositoryImpl) GetNameByID(ctx context.Context, venueID int64) (string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "VenueRepository.GetNameByID")
	defer utils.CloseSegment(seg, nil)

	query := `
		SELECT name
		FROM venues
		WHERE id = $1`

	var name string
	if err := r.db.GetContext(ctx, &name, query, venueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("venue %d: %w", venueID, model.ErrNotFound)
		}
		utils.CloseSegment(seg, err)
		return "", fmt.Errorf("failed to get venue name: %w", err)
	}

	return name, nil
}
