// Package menuimport loads menu items from a CSV sheet.
//
// The first line is a header. Columns may appear in any order; unknown columns
// are ignored. name, category and base_price are required. Rows are upserted on
// (name, category) so a sheet can be re-imported after edits.
package menuimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

const DefaultBatchSize = 50

// Column names.
const (
	ColName            = "name"
	ColCategory        = "category"
	ColBasePrice       = "base_price"
	ColGlassPrice      = "glass_price"
	ColBottlePrice     = "bottle_price"
	ColLunchPrice      = "lunch_price"
	ColDinnerPrice     = "dinner_price"
	ColCost            = "cost"
	ColPreparationTime = "preparation_time"
	ColVegetarian      = "is_vegetarian"
	ColGlutenFree      = "is_gluten_free"
	ColRaw             = "is_raw"
	ColSKU             = "sku"
	ColDescription     = "description"
)

var requiredColumns = []string{ColName, ColCategory, ColBasePrice}

// RowError points at one bad cell. Row numbers count the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// Row is one parsed line of the sheet.
type Row struct {
	Line     int
	Category string
	Item     models.MenuItem
}

type Result struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors,omitempty"`
}

// Parse reads the whole sheet. Bad rows are reported and skipped; a missing
// required column fails the sheet.
func Parse(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.Validation("menu sheet is empty")
	}
	if err != nil {
		return nil, nil, apperrors.Validation("read header: %v", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.Validation("missing required columns: %s", strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"missing": missing})
	}

	var rows []Row
	var rowErrs []RowError
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			rowErrs = append(rowErrs, RowError{Row: line, Message: err.Error()})
			continue
		}
		// csv skips empty lines, so count from the reader's position
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		row, rowErr := parseRow(line, record, index)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func parseRow(line int, record []string, index map[string]int) (Row, *RowError) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	fail := func(col, format string, args ...interface{}) (Row, *RowError) {
		return Row{}, &RowError{Row: line, Column: col, Message: fmt.Sprintf(format, args...)}
	}

	row := Row{Line: line, Category: cell(ColCategory)}
	item := &row.Item
	item.Name = cell(ColName)
	if item.Name == "" {
		return fail(ColName, "name is required")
	}
	if row.Category == "" {
		return fail(ColCategory, "category is required")
	}

	base := cell(ColBasePrice)
	if base == "" {
		return fail(ColBasePrice, "base_price is required")
	}
	v, err := strconv.ParseFloat(base, 64)
	if err != nil || v < 0 {
		return fail(ColBasePrice, "invalid price %q", base)
	}
	item.BasePrice = v

	optional := []struct {
		col string
		dst **float64
	}{
		{ColGlassPrice, &item.GlassPrice},
		{ColBottlePrice, &item.BottlePrice},
		{ColLunchPrice, &item.LunchPrice},
		{ColDinnerPrice, &item.DinnerPrice},
		{ColCost, &item.Cost},
	}
	for _, o := range optional {
		raw := cell(o.col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return fail(o.col, "invalid price %q", raw)
		}
		*o.dst = &v
	}

	item.PreparationTime = 15
	if raw := cell(ColPreparationTime); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fail(ColPreparationTime, "invalid minutes %q", raw)
		}
		item.PreparationTime = n
	}

	flags := []struct {
		col string
		dst *bool
	}{
		{ColVegetarian, &item.IsVegetarian},
		{ColGlutenFree, &item.IsGlutenFree},
		{ColRaw, &item.IsRaw},
	}
	for _, f := range flags {
		raw := cell(f.col)
		if raw == "" {
			continue
		}
		b, ok := parseBool(raw)
		if !ok {
			return fail(f.col, "invalid boolean %q", raw)
		}
		*f.dst = b
	}

	if sku := cell(ColSKU); sku != "" {
		item.SKU = &sku
	}
	item.Description = cell(ColDescription)
	item.IsAvailable = true
	return row, nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	return b, err == nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type Importer struct {
	DB        *gorm.DB
	BatchSize int
}

func NewImporter(db *gorm.DB, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{DB: db, BatchSize: batchSize}
}

// Import parses r and upserts every valid row. Each batch commits on its own;
// a failed batch stops the import and earlier batches stay written.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	rows, rowErrs, err := Parse(r)
	if err != nil {
		return nil, err
	}
	result := &Result{Errors: rowErrs}
	categories := map[string]uint{}

	for start := 0; start < len(rows); start += im.BatchSize {
		end := start + im.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		created, updated := 0, 0
		err := im.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, row := range batch {
				categoryID, err := resolveCategory(tx, categories, row.Category)
				if err != nil {
					return err
				}
				isNew, err := upsertItem(tx, categoryID, row.Item)
				if err != nil {
					return fmt.Errorf("row %d: %w", row.Line, err)
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			return nil
		})
		if err != nil {
			return result, apperrors.Internal("import batch starting at row %d: %v", batch[0].Line, err)
		}
		result.Created += created
		result.Updated += updated
	}

	utils.InfoLogger.Printf("Menu import: %d created, %d updated, %d rejected", result.Created, result.Updated, len(result.Errors))
	return result, nil
}

func resolveCategory(tx *gorm.DB, seen map[string]uint, name string) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := seen[key]; ok {
		return id, nil
	}
	category := models.MenuCategory{Name: name, IsActive: true}
	if err := tx.Where("LOWER(name) = ?", key).FirstOrCreate(&category).Error; err != nil {
		return 0, fmt.Errorf("category %s: %w", name, err)
	}
	seen[key] = category.ID
	return category.ID, nil
}

func upsertItem(tx *gorm.DB, categoryID uint, item models.MenuItem) (bool, error) {
	var existing models.MenuItem
	err := tx.Where("name = ? AND category_id = ?", item.Name, categoryID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item.CategoryID = categoryID
		return true, tx.Create(&item).Error
	}
	if err != nil {
		return false, err
	}
	return false, tx.Model(&existing).Select(
		"sku", "description", "base_price", "glass_price", "bottle_price", "lunch_price",
		"dinner_price", "cost", "preparation_time", "is_vegetarian", "is_gluten_free", "is_raw",
	).Updates(item).Error
}
