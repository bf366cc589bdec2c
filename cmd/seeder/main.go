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

package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	grocery "github.com/allanbutler/kg-rag-grocery"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/ingest"
)

var demoProducts = []core.Product{
	{Name: "Crunchy Oat Granola", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal", Price: 3.99,
		Ingredients: "oats, honey, sunflower oil", Attributes: "nut_free;vegetarian", NutritionText: "Per 45g: 190 kcal, 4g protein"},
	{Name: "Almond Granola Clusters", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal", Price: 4.49,
		Ingredients: "oats, almonds, honey", Attributes: "vegetarian", NutritionText: "Per 45g: 210 kcal, 6g protein"},
	{Name: "Maple Granola Deluxe", Brand: "Summit", Category: "Pantry", SubCategory: "Cereal", Price: 6.99,
		Ingredients: "oats, maple syrup, coconut", Attributes: "nut_free;vegan", NutritionText: "Per 45g: 200 kcal"},
	{Name: "Kids Granola Bites", Brand: "Summit", Category: "Snacks", SubCategory: "Bars", Price: 2.49,
		Ingredients: "oats, rice, apple juice", Attributes: "nut_free;kids", NutritionText: "Per bar: 90 kcal, 5g sugar"},
	{Name: "Oat Milk", Brand: "Dairyless", Category: "Dairy", SubCategory: "Milk Alternatives", Price: 3.29,
		Ingredients: "oats, water, rapeseed oil", Attributes: "vegan;nut_free;gluten_free", NutritionText: "Per 250ml: 120 kcal"},
	{Name: "Almond Milk Unsweetened", Brand: "Dairyless", Category: "Dairy", SubCategory: "Milk Alternatives", Price: 3.49,
		Ingredients: "water, almonds", Attributes: "vegan;gluten_free;low_sugar", NutritionText: "Per 250ml: 35 kcal"},
	{Name: "Whole Milk", Brand: "Farm Co", Category: "Dairy", SubCategory: "Milk", Price: 2.99,
		Ingredients: "milk", Attributes: "vegetarian;gluten_free", NutritionText: "Per 250ml: 160 kcal, 8g protein"},
	{Name: "Greek Yogurt Plain", Brand: "Farm Co", Category: "Dairy", SubCategory: "Yogurt", Price: 4.29,
		Ingredients: "milk, live cultures", Attributes: "vegetarian;gluten_free;high_protein", NutritionText: "Per 170g: 100 kcal, 17g protein"},
	{Name: "Strawberry Kids Yogurt Tubes", Brand: "Farm Co", Category: "Dairy", SubCategory: "Yogurt", Price: 3.79,
		Ingredients: "milk, sugar, strawberries", Attributes: "vegetarian;kids;gluten_free;nut_free", NutritionText: "Per tube: 60 kcal"},
	{Name: "Peanut Butter Crunchy", Brand: "Nutty Co", Category: "Pantry", SubCategory: "Spreads", Price: 4.99,
		Ingredients: "peanuts, salt", Attributes: "vegan;gluten_free", NutritionText: "Per 32g: 190 kcal, 7g protein"},
	{Name: "Sunflower Seed Butter", Brand: "Safe Snacks", Category: "Pantry", SubCategory: "Spreads", Price: 5.49,
		Ingredients: "sunflower seeds, sugar, salt", Attributes: "vegan;nut_free;gluten_free", NutritionText: "Per 32g: 200 kcal"},
	{Name: "Whole Wheat Bread", Brand: "Baker Bros", Category: "Bakery", SubCategory: "Bread", Price: 3.49,
		Ingredients: "whole wheat flour, water, yeast, salt", Attributes: "vegan;nut_free", NutritionText: "Per slice: 80 kcal, 3g fiber"},
	{Name: "Gluten Free Sandwich Bread", Brand: "Baker Bros", Category: "Bakery", SubCategory: "Bread", Price: 5.99,
		Ingredients: "rice flour, tapioca starch, eggs", Attributes: "vegetarian;gluten_free;nut_free", NutritionText: "Per slice: 90 kcal"},
	{Name: "Rice Cakes Lightly Salted", Brand: "Safe Snacks", Category: "Snacks", SubCategory: "Crackers", Price: 1.99,
		Ingredients: "brown rice, salt", Attributes: "vegan;gluten_free;nut_free;low_sugar", NutritionText: "Per cake: 35 kcal"},
	{Name: "Cheddar Crackers", Brand: "Acme", Category: "Snacks", SubCategory: "Crackers", Price: 2.79,
		Ingredients: "wheat flour, cheddar cheese, butter", Attributes: "vegetarian;kids", NutritionText: "Per 30g: 150 kcal"},
	{Name: "Dark Chocolate Almond Bar", Brand: "Summit", Category: "Snacks", SubCategory: "Bars", Price: 2.99,
		Ingredients: "dark chocolate, almonds, dates", Attributes: "vegan;gluten_free", NutritionText: "Per bar: 210 kcal"},
	{Name: "Protein Bar Peanut", Brand: "Nutty Co", Category: "Snacks", SubCategory: "Bars", Price: 2.49,
		Ingredients: "peanuts, whey protein, honey", Attributes: "vegetarian;high_protein;gluten_free", NutritionText: "Per bar: 220 kcal, 20g protein"},
	{Name: "Black Beans Canned", Brand: "Pantry Basics", Category: "Pantry", SubCategory: "Canned Goods", Price: 1.29,
		Ingredients: "black beans, water, salt", Attributes: "vegan;gluten_free;nut_free;high_protein", NutritionText: "Per 130g: 110 kcal, 7g protein"},
	{Name: "Chickpeas Canned", Brand: "Pantry Basics", Category: "Pantry", SubCategory: "Canned Goods", Price: 1.19,
		Ingredients: "chickpeas, water, salt", Attributes: "vegan;gluten_free;nut_free", NutritionText: "Per 130g: 120 kcal"},
	{Name: "Spaghetti", Brand: "Pantry Basics", Category: "Pantry", SubCategory: "Pasta", Price: 1.49,
		Ingredients: "durum wheat semolina", Attributes: "vegan;nut_free", NutritionText: "Per 75g: 270 kcal"},
	{Name: "Chickpea Pasta", Brand: "Summit", Category: "Pantry", SubCategory: "Pasta", Price: 3.99,
		Ingredients: "chickpea flour", Attributes: "vegan;gluten_free;nut_free;high_protein", NutritionText: "Per 75g: 250 kcal, 14g protein"},
	{Name: "Bananas", Brand: "Fresh Farms", Category: "Produce", SubCategory: "Fruit", Price: 0.59,
		Ingredients: "bananas", Attributes: "vegan;gluten_free;nut_free;kids", NutritionText: "Per banana: 105 kcal"},
	{Name: "Baby Spinach", Brand: "Fresh Farms", Category: "Produce", SubCategory: "Vegetables", Price: 2.99,
		Ingredients: "spinach", Attributes: "vegan;gluten_free;nut_free;low_sugar", NutritionText: "Per 85g: 20 kcal"},
	{Name: "Honey Oat Cereal for Kids", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal", Price: 4.79,
		Ingredients: "oats, corn, honey, sugar", Attributes: "vegetarian;kids;nut_free", NutritionText: "Per 30g: 120 kcal, 9g sugar"},
}

var header = []string{
	ingest.ColumnProductID, ingest.ColumnName, ingest.ColumnBrand, ingest.ColumnCategory,
	ingest.ColumnSubCategory, ingest.ColumnPrice, ingest.ColumnIngredients, ingest.ColumnAttributes,
	ingest.ColumnNutritionText,
}

var (
	outFileName = flag.String("out", filepath.Join("data", "sample_products.csv"), "product table to write (.csv or .xlsx)")
	dbPath      = flag.String("db", "", "when set, prepare this catalog from the written table (offline)")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// rowsFromSlice returns an iterator over table rows for products, numbering
// them from 1 in slice order.
func rowsFromSlice(products []core.Product) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for i, p := range products {
			row := []string{
				strconv.Itoa(i + 1), p.Name, p.Brand, p.Category, p.SubCategory,
				strconv.FormatFloat(p.Price, 'f', 2, 64), p.Ingredients, p.Attributes, p.NutritionText,
			}
			if !yield(row) {
				return
			}
		}
	}
}

func writeCSV(path string, rows iter.Seq[[]string]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeXLSX(path string, rows iter.Seq[[]string]) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	line := 1
	writeRow := func(cells []string) error {
		values := make([]any, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return sw.SetRow(cell, values)
	}

	if err := writeRow(header); err != nil {
		return err
	}
	for row := range rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeTable(path string, rows iter.Seq[[]string]) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(path, rows)
	case ".xlsx":
		return writeXLSX(path, rows)
	default:
		return fmt.Errorf("%w: %q", ingest.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func prepare(ctx context.Context, db, table string) error {
	cat, err := grocery.Open(db, grocery.WithOffline())
	if err != nil {
		return err
	}
	defer cat.Close()

	pipeline, err := cat.NewPipeline()
	if err != nil {
		return err
	}
	report, err := pipeline.PrepareFile(ctx, table)
	if err != nil {
		return err
	}
	slog.Info("prepared demo catalog", "db", db, "products", report.Products, "nodes", report.Nodes, "edges", report.Edges)
	return nil
}

func main() {
	flag.Parse()

	if err := writeTable(*outFileName, rowsFromSlice(demoProducts)); err != nil {
		panic(err)
	}
	slog.Info("wrote demo product table", "path", *outFileName, "products", len(demoProducts))

	if *dbPath != "" {
		if err := prepare(context.Background(), *dbPath, *outFileName); err != nil {
			panic(err)
		}
	}
}
