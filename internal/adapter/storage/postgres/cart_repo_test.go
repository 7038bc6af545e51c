package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartColumns() []string {
	return []string{"id", "user_id", "name", "price", "quantity", "image_ref", "created_at"}
}

func strPtr(s string) *string { return &s }

func TestCartRepo_Add(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	line := &domain.CartLine{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "Pizza",
		Price:     json.RawMessage(`"10"`),
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO cart_lines").
		WithArgs(line.ID, line.UserID, "Pizza", `"10"`, nil, "", line.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Add(context.Background(), line)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_ListByUser_KeepsRawValues(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	userID := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows(cartColumns()).
		AddRow(uuid.New(), userID, "Burger", strPtr("10"), strPtr("2"), "img/burger.png", now).
		AddRow(uuid.New(), userID, "Mystery", strPtr(`"abc"`), nil, "", now)

	mock.ExpectQuery("SELECT .+ FROM cart_lines WHERE user_id").
		WithArgs(userID).
		WillReturnRows(rows)

	lines, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, json.RawMessage("10"), lines[0].Price)
	assert.Equal(t, int64(2), lines[0].Qty())
	assert.Equal(t, json.RawMessage(`"abc"`), lines[1].Price)
	assert.Nil(t, lines[1].Quantity)
	assert.Equal(t, "20", domain.ComputeTotal(lines).String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_ListByUserForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM cart_lines WHERE user_id = .+ FOR UPDATE").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(cartColumns()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	lines, err := repo.ListByUserForUpdate(context.Background(), tx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	userID, lineID := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM cart_lines WHERE user_id").
		WithArgs(userID, lineID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	removed, err := repo.Delete(context.Background(), userID, lineID)
	assert.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_DeleteLines(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	userID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_lines WHERE user_id = .+ AND id = ANY").
		WithArgs(userID, []string{ids[0].String(), ids[1].String()}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.DeleteLines(context.Background(), tx, userID, ids)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_DeleteLines_EmptyIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.DeleteLines(context.Background(), tx, uuid.New(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCartRepo(mock)
	userID := uuid.New()

	mock.ExpectExec("DELETE FROM cart_lines WHERE user_id").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.Clear(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
