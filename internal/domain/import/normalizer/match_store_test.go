package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchRows(matches ...ManualMatch) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "match_type", "normalized_name", "matched_id", "matched_name",
		"created_at", "updated_at",
	})
	for _, m := range matches {
		rows.AddRow(m.ID, m.Type, m.NormalizedCSVName, m.MatchedID, m.MatchedName, m.CreatedAt, m.UpdatedAt)
	}
	return rows
}

func TestMatchType_Valid(t *testing.T) {
	assert.True(t, MatchTypeProduct.Valid())
	assert.True(t, MatchTypeClient.Valid())
	assert.False(t, MatchType("merchant").Valid())
	assert.False(t, MatchType("").Valid())
}

func TestPostgresMatchStore_ListByType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	saved := ManualMatch{
		ID:                uuid.New(),
		Type:              MatchTypeProduct,
		NormalizedCSVName: "plexgrip jarabe",
		MatchedID:         uuid.New(),
		MatchedName:       "Plexgrip Jarabe 120ml",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	mock.ExpectQuery(`SELECT id, match_type, normalized_name`).
		WithArgs(MatchTypeProduct).
		WillReturnRows(matchRows(saved))

	store := NewPostgresMatchStore(mock)
	matches, err := store.ListByType(context.Background(), MatchTypeProduct)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, saved.NormalizedCSVName, matches[0].NormalizedCSVName)
	assert.Equal(t, saved.MatchedID, matches[0].MatchedID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatchStore_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	productMatch := ManualMatch{
		ID:                uuid.New(),
		Type:              MatchTypeProduct,
		NormalizedCSVName: "vitamina c 1000mg",
		MatchedID:         uuid.New(),
		MatchedName:       "Vitamina C 1000mg",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	clientMatch := ManualMatch{
		ID:                uuid.New(),
		Type:              MatchTypeClient,
		NormalizedCSVName: "farmacia central",
		MatchedID:         uuid.New(),
		MatchedName:       "Farmacia Central",
		CreatedAt:         now.Add(-time.Hour),
		UpdatedAt:         now.Add(-time.Hour),
	}

	mock.ExpectQuery(`SELECT id, match_type, normalized_name`).
		WillReturnRows(matchRows(productMatch, clientMatch))

	store := NewPostgresMatchStore(mock)
	matches, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, MatchTypeProduct, matches[0].Type)
	assert.Equal(t, MatchTypeClient, matches[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatchStore_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	matchID := uuid.New()
	newEntityID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE manual_matches`).
		WithArgs(matchID, newEntityID, "Plexgrip Jarabe 120ml Pediatrico").
		WillReturnRows(matchRows(ManualMatch{
			ID:                matchID,
			Type:              MatchTypeProduct,
			NormalizedCSVName: "plexgrip jarabe",
			MatchedID:         newEntityID,
			MatchedName:       "Plexgrip Jarabe 120ml Pediatrico",
			CreatedAt:         now.Add(-24 * time.Hour),
			UpdatedAt:         now,
		}))

	store := NewPostgresMatchStore(mock)
	m, err := store.Update(context.Background(), matchID, newEntityID, "Plexgrip Jarabe 120ml Pediatrico")
	require.NoError(t, err)
	assert.Equal(t, matchID, m.ID)
	assert.Equal(t, newEntityID, m.MatchedID)
	assert.Equal(t, "plexgrip jarabe", m.NormalizedCSVName, "the key survives a repoint")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatchStore_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	matchID := uuid.New()
	mock.ExpectQuery(`UPDATE manual_matches`).
		WithArgs(matchID, pgxmock.AnyArg(), "Azúcar Crema").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresMatchStore(mock)
	_, err = store.Update(context.Background(), matchID, uuid.New(), "Azúcar Crema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresMatchStore_Upsert_NormalizesKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entityID := uuid.New()
	now := time.Now()

	// The raw CSV spelling is normalized before it becomes the key
	mock.ExpectQuery(`INSERT INTO manual_matches`).
		WithArgs(MatchTypeProduct, "plexgrip jarabe", entityID, "Plexgrip Jarabe 120ml").
		WillReturnRows(matchRows(ManualMatch{
			ID:                uuid.New(),
			Type:              MatchTypeProduct,
			NormalizedCSVName: "plexgrip jarabe",
			MatchedID:         entityID,
			MatchedName:       "Plexgrip Jarabe 120ml",
			CreatedAt:         now,
			UpdatedAt:         now,
		}))

	store := NewPostgresMatchStore(mock)
	m, err := store.Upsert(context.Background(), MatchTypeProduct, "  PLEXGRIP--JARABE  ", entityID, "Plexgrip Jarabe 120ml")
	require.NoError(t, err)
	assert.Equal(t, "plexgrip jarabe", m.NormalizedCSVName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatchStore_Upsert_RejectsEmptyName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresMatchStore(mock)
	_, err = store.Upsert(context.Background(), MatchTypeProduct, "  --  ", uuid.New(), "Something")
	assert.Error(t, err)
}

func TestPostgresMatchStore_Upsert_RejectsUnknownType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresMatchStore(mock)
	_, err = store.Upsert(context.Background(), MatchType("merchant"), "azucar", uuid.New(), "Azúcar")
	assert.Error(t, err)
}

func TestPostgresMatchStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	matchID := uuid.New()
	mock.ExpectExec(`DELETE FROM manual_matches`).
		WithArgs(matchID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	store := NewPostgresMatchStore(mock)
	require.NoError(t, store.Delete(context.Background(), matchID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatchStore_Delete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	matchID := uuid.New()
	mock.ExpectExec(`DELETE FROM manual_matches`).
		WithArgs(matchID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPostgresMatchStore(mock)
	err = store.Delete(context.Background(), matchID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgresMatchStore_DeleteByMatchedIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	mock.ExpectExec(`DELETE FROM manual_matches`).
		WithArgs(MatchTypeClient, ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	store := NewPostgresMatchStore(mock)
	deleted, err := store.DeleteByMatchedIDs(context.Background(), MatchTypeClient, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestPostgresMatchStore_DeleteByMatchedIDs_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// No round trip for an empty id list
	store := NewPostgresMatchStore(mock)
	deleted, err := store.DeleteByMatchedIDs(context.Background(), MatchTypeProduct, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
