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

package ai

// Suggestion is one recommended product with a short reason.
// Brand and Price are empty when the suggestion came from a bare snippet.
type Suggestion struct {
	Product string   `json:"product"`
	Brand   string   `json:"brand,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Why     string   `json:"why"`
}
