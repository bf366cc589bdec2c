package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/allanbutler/kg-rag-grocery/core"
)

const sampleCSV = `product_id,name,brand,category,sub_category,price,ingredients,attributes,nutrition_text
1,Crunchy Oat Granola,Acme,Pantry,Cereal,3.99,"oats, honey",nut_free;vegetarian,120 kcal
2,Oat Milk,Dairyless,Dairy,Milk Alternatives,3.29,"oats, water",vegan;nut_free,90 kcal
`

func TestReadCSV(t *testing.T) {
	result, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Zero(t, result.Skipped)

	p := result.Products[0]
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, 0, p.Row)
	assert.Equal(t, "Crunchy Oat Granola", p.Name)
	assert.Equal(t, "Acme", p.Brand)
	assert.Equal(t, "Pantry", p.Category)
	assert.Equal(t, "Cereal", p.SubCategory)
	assert.InDelta(t, 3.99, p.Price, 1e-9)
	assert.Equal(t, "oats, honey", p.Ingredients)
	assert.Equal(t, []string{"nut_free", "vegetarian"}, p.AttributeSet())
	assert.Equal(t, "120 kcal", p.NutritionText)

	assert.Equal(t, 1, result.Products[1].Row)
}

func TestReadCSVHeaderVariants(t *testing.T) {
	data := "\ufeffPRODUCT_ID, Name ,price\n7,Rice Cakes,$1.50\n"
	result, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, int64(7), result.Products[0].ID)
	assert.Equal(t, "Rice Cakes", result.Products[0].Name)
	assert.InDelta(t, 1.50, result.Products[0].Price, 1e-9)
	assert.Empty(t, result.Products[0].Brand)
}

func TestReadCSVSkipsMalformedRows(t *testing.T) {
	data := `product_id,name,price
abc,Bad Id,1.00
2,Bad Price,cheap
3,,1.00
4,Negative,-2
,,

5,Good,2.50
`
	result, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, int64(5), result.Products[0].ID)
	assert.Equal(t, 0, result.Products[0].Row)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("product_id,name\n1,Milk\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func writeWorkbook(t *testing.T, rows [][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	return f
}

func TestReadXLSX(t *testing.T) {
	f := writeWorkbook(t, [][]any{
		{"product_id", "name", "brand", "price", "attributes"},
		{"11", "Kids Granola Bites", "Summit", "2.49", "nut_free;kids"},
		{"12", "Whole Milk", "Farm Co", "2.99", "vegetarian"},
	})
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Equal(t, int64(11), result.Products[0].ID)
	assert.Equal(t, "Summit", result.Products[0].Brand)
	assert.Equal(t, []string{"kids", "nut_free"}, result.Products[0].AttributeSet())
	assert.InDelta(t, 2.99, result.Products[1].Price, 1e-9)
}

func TestLoadProducts(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "products.csv")
		require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
		result, err := LoadProducts(path)
		require.NoError(t, err)
		assert.Len(t, result.Products, 2)
	})

	t.Run("xlsx", func(t *testing.T) {
		path := filepath.Join(dir, "products.XLSX")
		f := writeWorkbook(t, [][]any{
			{"product_id", "name", "price"},
			{"1", "Oat Milk", "3.29"},
		})
		require.NoError(t, f.SaveAs(path))
		require.NoError(t, f.Close())

		result, err := LoadProducts(path)
		require.NoError(t, err)
		require.Len(t, result.Products, 1)
		assert.Equal(t, "Oat Milk", result.Products[0].Name)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := LoadProducts(filepath.Join(dir, "products.json"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProducts(filepath.Join(dir, "absent.csv"))
		assert.Error(t, err)
	})
}

func TestLoadedProductsValidate(t *testing.T) {
	result, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	for _, p := range result.Products {
		assert.NoError(t, core.ValidateProduct(p))
	}
}
