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

package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	productPrefix   = "prod:"
	productRowIndex = "prodrow:"
	nodePrefix      = "gnode:"
	edgePrefix      = "gedge:"
	embeddingPrefix = "vec:"
)

func appendUint64(prefix string, vals ...uint64) []byte {
	buf := make([]byte, len(prefix)+8*len(vals))
	offset := copy(buf, prefix)
	for _, v := range vals {
		// BigEndian so lexicographic order matches numeric order
		binary.BigEndian.PutUint64(buf[offset:], v)
		offset += 8
	}
	return buf
}

// makeProductKey generates the primary key for a product.
// Format: prefix:id
func makeProductKey(id int64) []byte {
	return appendUint64(productPrefix, uint64(id))
}

// makeProductRowKey generates the table-order index key.
// Format: prefix:row:id
func makeProductRowKey(row int, id int64) []byte {
	return appendUint64(productRowIndex, uint64(row), uint64(id))
}

// makeNodeKey generates a key for the i-th graph node.
// Nodes are keyed by position so loading preserves insertion order.
func makeNodeKey(i int) []byte {
	return appendUint64(nodePrefix, uint64(i))
}

// makeEdgeKey generates a key for the i-th graph edge.
func makeEdgeKey(i int) []byte {
	return appendUint64(edgePrefix, uint64(i))
}

// makeEmbeddingKey generates a key for a product embedding.
func makeEmbeddingKey(productID int64) []byte {
	return appendUint64(embeddingPrefix, uint64(productID))
}
