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

// Package answer turns search results into product suggestions and grounded
// answers.
//
// Generation is delegated to an ai.Generator. When the generator is missing
// or fails, a deterministic heuristic built from the same candidates and
// contexts takes its place. Every call returns an Outcome that says which
// branch produced it and, for the fallback branch, why.
package answer
