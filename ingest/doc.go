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

// Package ingest prepares the read-only stores used by search.
//
// Prepare runs three stages over a product table:
//   - products: validate rows and persist them in table order
//   - graph: build the entity graph from the stored table and persist it
//   - embeddings: embed changed products into the similarity index
//
// Product tables are read from CSV or XLSX files with a header row naming
// the columns product_id, name, brand, category, sub_category, price,
// ingredients, attributes and nutrition_text. Malformed rows are skipped
// and counted; they never fail the whole load.
package ingest
