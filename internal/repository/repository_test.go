package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
)

// newMockDB はsqlmockを使ったDBを返します
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return NewDB(sqlx.NewDb(db, "sqlmock")), mock
}

// testContext はX-Rayのルートセグメントを持つコンテキストを返します
func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, seg := xray.BeginSegment(context.Background(), "RepositoryTest")
	t.Cleanup(func() {
		seg.Close(nil)
	})
	return ctx
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}
