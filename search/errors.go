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

package search

import "errors"

var (
	// ErrGraphRequired is returned when an entity graph is not provided.
	ErrGraphRequired = errors.New("entity graph required")

	// ErrProductTableRequired is returned when a product table is not provided.
	ErrProductTableRequired = errors.New("product table required")

	// ErrEmbedderRequired is returned when a similarity index is provided without an embedder.
	ErrEmbedderRequired = errors.New("embedder required when a similarity index is provided")
)
