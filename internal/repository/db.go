package repository

import (
	"context"
	"database/sql"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
)

// DB はX-Rayのサブセグメントを付与したsqlx.DBのラッパーです
type DB struct {
	*sqlx.DB
}

// NewDB は既存のsqlx.DBをラップします
func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.BeginTx")
	defer utils.CloseSegment(seg, nil)

	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return tx, nil
}

// SelectContext wraps sqlx.DB.SelectContext with X-Ray tracing
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Select")
	defer utils.CloseSegment(seg, nil)

	// クエリをメタデータとして追加
	utils.AddMetadata(seg, "query", query)

	if err := db.DB.SelectContext(ctx, dest, query, args...); err != nil {
		utils.CloseSegment(seg, err)
		return err
	}
	return nil
}

// GetContext wraps sqlx.DB.GetContext with X-Ray tracing
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Get")
	defer utils.CloseSegment(seg, nil)

	utils.AddMetadata(seg, "query", query)

	// sql.ErrNoRowsは呼び出し側で判定するため、セグメントにはエラーとして記録しない
	err := db.DB.GetContext(ctx, dest, query, args...)
	if err != nil && err != sql.ErrNoRows {
		utils.CloseSegment(seg, err)
	}
	return err
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Exec")
	defer utils.CloseSegment(seg, nil)

	utils.AddMetadata(seg, "query", query)

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		utils.CloseSegment(seg, err)
		return nil, err
	}
	return result, nil
}

// queryer はトランザクションが渡された場合はそれを、なければDBを返します
func (db *DB) queryer(tx *sqlx.Tx) sqlx.QueryerContext {
	if tx != nil {
		return tx
	}
	return db.DB
}
