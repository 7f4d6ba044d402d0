package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIgnore_EmptyRows(t *testing.T) {
	n, err := InsertIgnore(context.TODO(), nil, InsertConfig{
		Table:        "leads",
		Columns:      []string{"place_id", "business_name"},
		ConflictKeys: []string{"place_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertIgnore_NoColumns(t *testing.T) {
	_, err := InsertIgnore(context.TODO(), nil, InsertConfig{
		Table:        "leads",
		ConflictKeys: []string{"place_id"},
	}, [][]any{{"p1", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestInsertIgnore_NoConflictKeys(t *testing.T) {
	_, err := InsertIgnore(context.TODO(), nil, InsertConfig{
		Table:   "leads",
		Columns: []string{"place_id", "business_name"},
	}, [][]any{{"p1", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestInsertIgnore_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"place_id", "business_name"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_insert_leads" \(LIKE "leads" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_leads"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "leads" \("place_id", "business_name"\) SELECT .* ON CONFLICT \("place_id"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := InsertIgnore(context.Background(), mock, InsertConfig{
		Table:        "leads",
		Columns:      cols,
		ConflictKeys: []string{"place_id"},
	}, [][]any{{"p1", "Acme"}, {"p2", "Bright"}})

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIgnore_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_leads"}, []string{"place_id"}).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = InsertIgnore(context.Background(), mock, InsertConfig{
		Table:        "leads",
		Columns:      []string{"place_id"},
		ConflictKeys: []string{"place_id"},
	}, [][]any{{"p1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for leads")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"leadgen.contacts", `"leadgen"."contacts"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, identifier(tt.input).Sanitize())
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
