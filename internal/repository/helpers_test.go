package repository

import (
	"fmt"
	"snaptrade/internal/client"
	"snaptrade/internal/model"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, client.Migrate(db))
	return db
}

func newProduct(t *testing.T, owner, name string, kinds ...model.VariantKind) *model.Product {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	p := &model.Product{
		ID:          id.String(),
		Name:        name,
		Description: name + " description",
		Owner:       owner,
		Version:     1,
	}
	for i, k := range kinds {
		spec, _ := k.Spec()
		p.Variants = append(p.Variants, model.Variant{
			ID:            uuid.NewString(),
			Owner:         owner,
			Kind:          k,
			Price:         decimal.NewFromInt(int64(100 * (i + 1))),
			Dimensions:    spec.Dimensions,
			ImageURL:      "https://cdn.example/" + string(k) + ".jpg",
			StorageFileID: "file_" + string(k),
		})
	}
	return p
}
