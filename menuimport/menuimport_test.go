package menuimport

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

const sheet = `Name,Category,Base_Price,glass_price,bottle_price,cost,preparation_time,is_raw,sku
California Roll,Sushi Rolls,10.50,,,3.20,8,no,ROLL-CA
Salmon Nigiri,sushi rolls,6,,,,5,yes,

Junmai,Sake,9,9,42,,1,,SAKE-JM
`

func TestParse(t *testing.T) {
	rows, rowErrs, err := Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, rows, 3)

	roll := rows[0]
	assert.Equal(t, 2, roll.Line)
	assert.Equal(t, "Sushi Rolls", roll.Category)
	assert.Equal(t, 10.5, roll.Item.BasePrice)
	require.NotNil(t, roll.Item.Cost)
	assert.Equal(t, 3.2, *roll.Item.Cost)
	assert.Nil(t, roll.Item.GlassPrice)
	assert.False(t, roll.Item.IsRaw)
	require.NotNil(t, roll.Item.SKU)
	assert.Equal(t, "ROLL-CA", *roll.Item.SKU)
	assert.True(t, roll.Item.IsAvailable)

	assert.True(t, rows[1].Item.IsRaw)
	assert.Nil(t, rows[1].Item.SKU)

	sake := rows[2]
	assert.Equal(t, 5, sake.Line, "line numbers survive the blank line")
	require.NotNil(t, sake.Item.BottlePrice)
	assert.Equal(t, 42.0, *sake.Item.BottlePrice)
}

func TestParseMissingColumns(t *testing.T) {
	_, _, err := Parse(strings.NewReader("name,price\nRoll,10\n"))
	require.ErrorIs(t, err, apperrors.ErrValidation)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"missing": []string{ColCategory, ColBasePrice}}, appErr.Details)

	_, _, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseReportsBadCells(t *testing.T) {
	input := `name,category,base_price,preparation_time,is_vegetarian
Roll,Rolls,abc,,
,Rolls,4,,
Edamame,Starters,4,-1,
Miso,Starters,3,,maybe
Tofu,Starters,5,,y
`
	rows, rowErrs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Item.IsVegetarian)
	assert.Equal(t, 15, rows[0].Item.PreparationTime)

	require.Len(t, rowErrs, 4)
	assert.Equal(t, RowError{Row: 2, Column: ColBasePrice, Message: `invalid price "abc"`}, rowErrs[0])
	assert.Equal(t, ColName, rowErrs[1].Column)
	assert.Equal(t, 3, rowErrs[1].Row)
	assert.Equal(t, ColPreparationTime, rowErrs[2].Column)
	assert.Equal(t, "row 5, column is_vegetarian: invalid boolean \"maybe\"", rowErrs[3].Error())
}

func TestImportUpsertsInBatches(t *testing.T) {
	db := newTestDB(t)
	im := NewImporter(db, 2)
	ctx := context.Background()

	res, err := im.Import(ctx, strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Empty(t, res.Errors)

	var categories []models.MenuCategory
	require.NoError(t, db.Order("id").Find(&categories).Error)
	require.Len(t, categories, 2, "category names match case-insensitively")
	assert.Equal(t, "Sushi Rolls", categories[0].Name)

	edited := strings.Replace(sheet, "California Roll,Sushi Rolls,10.50", "California Roll,Sushi Rolls,11.25", 1)
	edited += "Uni,Sushi Rolls,not-a-price,,,,,,\n"
	res, err = im.Import(ctx, strings.NewReader(edited))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 6, res.Errors[0].Row)

	var roll models.MenuItem
	require.NoError(t, db.Where("name = ?", "California Roll").First(&roll).Error)
	assert.Equal(t, 11.25, roll.BasePrice)
	assert.Equal(t, categories[0].ID, roll.CategoryID)

	var count int64
	require.NoError(t, db.Model(&models.MenuItem{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestNewImporterDefaultsBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewImporter(nil, 0).BatchSize)
}
