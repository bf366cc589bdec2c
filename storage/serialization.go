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

package storage

import (
	"github.com/allanbutler/kg-rag-grocery/core"
)

func marshal[T any](m marshaller[T], v T) []byte {
	buf := make([]byte, m.Size(v))
	m.Marshal(v, buf)
	return buf
}

// MarshalProduct serializes a Product to bytes.
func MarshalProduct(p *core.Product) []byte {
	return marshal(ProductMUS, *p)
}

// UnmarshalProduct deserializes a Product from bytes.
func UnmarshalProduct(data []byte) (*core.Product, error) {
	p, _, err := ProductMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarshalNode serializes a graph Node to bytes.
func MarshalNode(n *core.Node) []byte {
	return marshal(NodeMUS, *n)
}

// UnmarshalNode deserializes a graph Node from bytes.
func UnmarshalNode(data []byte) (*core.Node, error) {
	n, _, err := NodeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarshalEdge serializes a graph Edge to bytes.
func MarshalEdge(e *core.Edge) []byte {
	return marshal(EdgeMUS, *e)
}

// UnmarshalEdge deserializes a graph Edge from bytes.
func UnmarshalEdge(data []byte) (*core.Edge, error) {
	e, _, err := EdgeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarshalEmbedding serializes an Embedding to bytes.
func MarshalEmbedding(e *core.Embedding) []byte {
	return marshal(EmbeddingMUS, *e)
}

// UnmarshalEmbedding deserializes an Embedding from bytes.
func UnmarshalEmbedding(data []byte) (*core.Embedding, error) {
	e, _, err := EmbeddingMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
