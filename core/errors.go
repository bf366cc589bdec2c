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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidProduct indicates a Product failed validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidNode indicates a graph Node failed validation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge indicates a graph Edge failed validation.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrEmptyName indicates the name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNegativePrice indicates a price below zero.
	ErrNegativePrice = errors.New("price cannot be negative")

	// ErrInvalidProductID indicates a product id that is not positive.
	ErrInvalidProductID = errors.New("product id must be positive")

	// ErrUnknownLabel indicates a node label outside the fixed label set.
	ErrUnknownLabel = errors.New("unknown node label")

	// ErrUnknownRelation indicates an edge type outside the fixed relation set.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrKeyPrefixMismatch indicates a node key whose prefix does not match its label.
	ErrKeyPrefixMismatch = errors.New("node key prefix does not match label")

	// ErrDanglingEdge indicates an edge referencing a node that does not exist.
	ErrDanglingEdge = errors.New("edge references unknown node")
)
