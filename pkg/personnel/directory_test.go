package personnel_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fixture() []models.PersonnelIdentity {
	return []models.PersonnelIdentity{
		{PNO: "AE001", Name: "Rajesh Kumar", Rank: "Sergeant", Trade: models.TradeAE},
		{PNO: "AE002", Name: "Amit Sharma", Rank: "Corporal", Trade: models.TradeAE},
		{PNO: "AL001", Name: "Suresh Patel", Rank: "Sergeant", Trade: models.TradeAL},
		{PNO: "AR001", Name: "Vikram Singh", Rank: "Corporal", Trade: models.TradeAR},
		{PNO: "AO001", Name: "Ravi Aenugu", Rank: "Sergeant", Trade: models.TradeAO},
		{PNO: "SUP001", Name: "Vijay Reddy", Rank: "JWO", Trade: models.TradeSUP},
		{PNO: "AE003", Name: "Deepak Rao", Rank: "LAC", Trade: models.TradeAE},
		{PNO: "AE004", Name: "Kiran Das", Rank: "LAC", Trade: models.TradeAE},
		{PNO: "AE005", Name: "Manoj Nair", Rank: "LAC", Trade: models.TradeAE},
	}
}

func TestMemoryDirectory_Search(t *testing.T) {
	t.Parallel()

	dir := personnel.NewMemoryDirectory(fixture()...)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "short query yields nothing", query: "A", want: []string{}},
		{name: "blank query yields nothing", query: "  ", want: []string{}},
		{name: "name substring", query: "redd", want: []string{"SUP001"}},
		{name: "case insensitive pno", query: "al0", want: []string{"AL001"}},
		{name: "capped at five", query: "ae0", want: []string{"AE001", "AE002", "AE003", "AE004", "AE005"}},
		{name: "pno prefix ranks before name match", query: "ae", want: []string{"AE001", "AE002", "AE003", "AE004", "AE005"}},
		{name: "name prefix ranks before infix", query: "ra", want: []string{"AE001", "AO001", "AR001", "AE003", "AE004"}},
		{name: "no match", query: "zz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := dir.Search(context.Background(), tt.query)
			require.NoError(t, err)

			pnos := make([]string, 0, len(got))
			for _, c := range got {
				pnos = append(pnos, c.PNO)
			}

			assert.Equal(t, tt.want, pnos)
		})
	}
}

func TestMemoryDirectory_Lookup(t *testing.T) {
	t.Parallel()

	dir := personnel.NewMemoryDirectory(fixture()...)

	p, err := dir.Lookup(context.Background(), "sup001")
	require.NoError(t, err)
	assert.Equal(t, "Vijay Reddy", p.Name)
	assert.Equal(t, models.TradeSUP, p.Trade)

	_, err = dir.Lookup(context.Background(), "XX999")
	assert.True(t, opserr.HasCode(err, opserr.CodePersonnelNotFound))
}

func TestNewMemoryDirectory_IgnoresDuplicatePNO(t *testing.T) {
	t.Parallel()

	dir := personnel.NewMemoryDirectory(
		models.PersonnelIdentity{PNO: "AE001", Name: "First"},
		models.PersonnelIdentity{PNO: "ae001", Name: "Second"},
	)

	assert.Equal(t, 1, dir.Len())

	p, err := dir.Lookup(context.Background(), "AE001")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Name)
}

func TestHashPIN(t *testing.T) {
	t.Parallel()

	hash, err := personnel.HashPIN("1111", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "1111", hash)
	assert.True(t, personnel.ComparePIN(hash, "1111"))
	assert.False(t, personnel.ComparePIN(hash, "0000"))
	assert.False(t, personnel.ComparePIN("", "1111"))

	_, err = personnel.HashPIN("   ", bcrypt.MinCost)
	assert.ErrorIs(t, err, personnel.ErrEmptyPIN)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	hash, err := personnel.HashPIN("9999", bcrypt.MinCost)
	require.NoError(t, err)

	doc := `[
		{"pno": "AE001", "name": "Rajesh Kumar", "rank": "Sergeant", "trade": "AE", "pin": "1111"},
		{"pno": "SUP001", "name": "Vijay Reddy", "rank": "JWO", "trade": "SUP", "roles": ["FSI"], "pin_hash": "` + hash + `"}
	]`

	path := filepath.Join(t.TempDir(), "personnel.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	dir, err := personnel.LoadFile(slog.Default(), path, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())

	ae, err := dir.Lookup(context.Background(), "AE001")
	require.NoError(t, err)
	assert.True(t, personnel.ComparePIN(ae.PINHash, "1111"))

	sup, err := dir.Lookup(context.Background(), "SUP001")
	require.NoError(t, err)
	assert.True(t, sup.HasRole(models.RoleFSI))
	assert.True(t, personnel.ComparePIN(sup.PINHash, "9999"))
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown trade", doc: `[{"pno": "X1", "name": "X", "rank": "LAC", "trade": "ZZ", "pin": "1234"}]`},
		{name: "missing pin", doc: `[{"pno": "X1", "name": "X", "rank": "LAC", "trade": "AE"}]`},
		{name: "both pin forms", doc: `[{"pno": "X1", "name": "X", "rank": "LAC", "trade": "AE", "pin": "1234", "pin_hash": "$2a$04$abc"}]`},
		{name: "unknown role", doc: `[{"pno": "X1", "name": "X", "rank": "LAC", "trade": "AE", "pin": "1234", "roles": ["ADMIN"]}]`},
		{name: "not an array", doc: `{"pno": "X1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, personnel.ValidateDocument([]byte(tt.doc)))
		})
	}
}
