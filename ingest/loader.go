// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/allanbutler/kg-rag-grocery/core"
)

// Product table columns.
const (
	ColumnProductID     = "product_id"
	ColumnName          = "name"
	ColumnBrand         = "brand"
	ColumnCategory      = "category"
	ColumnSubCategory   = "sub_category"
	ColumnPrice         = "price"
	ColumnIngredients   = "ingredients"
	ColumnAttributes    = "attributes"
	ColumnNutritionText = "nutrition_text"
)

var requiredColumns = []string{ColumnProductID, ColumnName, ColumnPrice}

// LoadResult holds the products read from a table and the number of rows
// that were skipped.
type LoadResult struct {
	Products []*core.Product
	Skipped  int
}

// LoadProducts reads a product table from a .csv or .xlsx file.
func LoadProducts(path string) (*LoadResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening CSV: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening XLSX: %w", err)
		}
		defer f.Close()
		return readWorkbook(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV reads a product table in CSV form.
func ReadCSV(r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return parseRows(rows)
}

// ReadXLSX reads a product table from the first sheet of an XLSX workbook.
func ReadXLSX(r io.Reader) (*LoadResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*LoadResult, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return parseRows(rows)
}

// parseRows converts a header row plus data rows into products. Rows with a
// malformed id or price, or that fail validation, are skipped.
func parseRows(rows [][]string) (*LoadResult, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	logger := slog.Default().With("component", "product-loader")
	result := &LoadResult{Products: make([]*core.Product, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		line := i + 2
		field := func(col string) string {
			idx, ok := columns[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlank(row) {
			continue
		}

		id, err := strconv.ParseInt(field(ColumnProductID), 10, 64)
		if err != nil {
			logger.Warn("skipping row with malformed product id", "line", line, "err", err)
			result.Skipped++
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimPrefix(field(ColumnPrice), "$"), 64)
		if err != nil {
			logger.Warn("skipping row with malformed price", "line", line, "productID", id, "err", err)
			result.Skipped++
			continue
		}

		p := &core.Product{
			ID:            id,
			Row:           len(result.Products),
			Name:          field(ColumnName),
			Brand:         field(ColumnBrand),
			Category:      field(ColumnCategory),
			SubCategory:   field(ColumnSubCategory),
			Price:         price,
			Ingredients:   field(ColumnIngredients),
			Attributes:    field(ColumnAttributes),
			NutritionText: field(ColumnNutritionText),
		}
		if err := core.ValidateProduct(p); err != nil {
			logger.Warn("skipping invalid row", "line", line, "productID", id, "err", err)
			result.Skipped++
			continue
		}
		result.Products = append(result.Products, p)
	}

	logger.Debug("loaded product table", "products", len(result.Products), "skipped", result.Skipped)
	return result, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
