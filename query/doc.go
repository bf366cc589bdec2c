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

// Package query turns free-text grocery queries into structured constraints.
//
// Interpret extracts three things from a query:
//   - an optional price ceiling, when the query carries a budget marker
//     ("under", "less than", "max", "at most", "<", "≤", ...)
//   - the canonical attribute tags requested through a fixed synonym table
//   - a token set for lexical matching against entity names
//
// Interpret is a pure function of its input and is safe for concurrent use.
package query
