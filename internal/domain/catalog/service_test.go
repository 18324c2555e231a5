package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() []Product {
	return []Product{
		{ID: uuid.New(), Name: "Acetaminofen 500mg", Percentage: decimal.NewFromInt(10)},
		{ID: uuid.New(), Name: "Plexgrip Jarabe 120ml", Percentage: decimal.NewFromFloat(12.5)},
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	products := testProducts()
	clients := []Client{{ID: uuid.New(), Name: "Farmacia San Rafael"}}
	snap := NewSnapshot(products, clients)

	p, ok := snap.ProductByID(products[1].ID)
	require.True(t, ok)
	assert.Equal(t, "Plexgrip Jarabe 120ml", p.Name)

	_, ok = snap.ProductByID(uuid.New())
	assert.False(t, ok)

	c, ok := snap.ClientByID(clients[0].ID)
	require.True(t, ok)
	assert.Equal(t, "Farmacia San Rafael", c.Name)
}

func TestSnapshot_NormalizedNameLookup(t *testing.T) {
	products := testProducts()
	snap := NewSnapshot(products, nil)

	// Lookup keys are normalized catalog names
	p, ok := snap.ProductByNormalizedName("acetaminofen 500mg")
	require.True(t, ok)
	assert.Equal(t, products[0].ID, p.ID)

	_, ok = snap.ProductByNormalizedName("ACETAMINOFEN 500MG")
	assert.False(t, ok, "callers must pass already-normalized input")
}

func TestSnapshot_FirstEntryWinsOnDuplicateNames(t *testing.T) {
	first := Product{ID: uuid.New(), Name: "Azúcar"}
	second := Product{ID: uuid.New(), Name: "AZUCAR"}
	snap := NewSnapshot([]Product{first, second}, nil)

	p, ok := snap.ProductByNormalizedName("azucar")
	require.True(t, ok)
	assert.Equal(t, first.ID, p.ID)
}
