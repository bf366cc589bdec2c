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
	"fmt"
	"maps"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/allanbutler/kg-rag-grocery/core"
)

type marshaller[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Size(v T) (size int)
}

type unmarshaller[T any] interface {
	Unmarshal(bs []byte) (v T, n int, err error)
}

// decoder reads consecutive fields and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func read[T any](d *decoder, u unmarshaller[T], dst *T) {
	if d.err != nil {
		return
	}
	v, n, err := u.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		return
	}
	*dst = v
	d.n += n
}

func readLen(d *decoder) int {
	var l int
	read(d, varint.Int, &l)
	if d.err == nil && (l < 0 || l > len(d.bs)-d.n) {
		d.err = fmt.Errorf("%w: length %d", ErrTruncatedData, l)
		return 0
	}
	return l
}

func write[T any](m marshaller[T], v T, bs []byte) int {
	return m.Marshal(v, bs)
}

// ProductMUS encodes core.Product.
var ProductMUS = productMUS{}

type productMUS struct{}

func (productMUS) Marshal(p core.Product, bs []byte) (n int) {
	n = write(varint.Int64, p.ID, bs)
	n += write(varint.Int, p.Row, bs[n:])
	n += write(ord.String, p.Name, bs[n:])
	n += write(ord.String, p.Brand, bs[n:])
	n += write(ord.String, p.Category, bs[n:])
	n += write(ord.String, p.SubCategory, bs[n:])
	n += write(raw.Float64, p.Price, bs[n:])
	n += write(ord.String, p.Ingredients, bs[n:])
	n += write(ord.String, p.Attributes, bs[n:])
	n += write(ord.String, p.NutritionText, bs[n:])
	return
}

func (productMUS) Unmarshal(bs []byte) (p core.Product, n int, err error) {
	d := &decoder{bs: bs}
	read(d, varint.Int64, &p.ID)
	read(d, varint.Int, &p.Row)
	read(d, ord.String, &p.Name)
	read(d, ord.String, &p.Brand)
	read(d, ord.String, &p.Category)
	read(d, ord.String, &p.SubCategory)
	read(d, raw.Float64, &p.Price)
	read(d, ord.String, &p.Ingredients)
	read(d, ord.String, &p.Attributes)
	read(d, ord.String, &p.NutritionText)
	return p, d.n, d.err
}

func (productMUS) Size(p core.Product) (size int) {
	size = varint.Int64.Size(p.ID)
	size += varint.Int.Size(p.Row)
	size += ord.String.Size(p.Name)
	size += ord.String.Size(p.Brand)
	size += ord.String.Size(p.Category)
	size += ord.String.Size(p.SubCategory)
	size += raw.Float64.Size(p.Price)
	size += ord.String.Size(p.Ingredients)
	size += ord.String.Size(p.Attributes)
	size += ord.String.Size(p.NutritionText)
	return
}

// NodeMUS encodes core.Node. Attributes are written in key order so equal
// nodes encode to equal bytes.
var NodeMUS = nodeMUS{}

type nodeMUS struct{}

func (nodeMUS) Marshal(node core.Node, bs []byte) (n int) {
	n = write(ord.String, node.Key, bs)
	n += write(varint.Uint64, uint64(node.Label), bs[n:])
	n += write(varint.Int, len(node.Attrs), bs[n:])
	for _, k := range slices.Sorted(maps.Keys(node.Attrs)) {
		n += write(ord.String, k, bs[n:])
		n += write(ord.String, node.Attrs[k], bs[n:])
	}
	return
}

func (nodeMUS) Unmarshal(bs []byte) (node core.Node, n int, err error) {
	d := &decoder{bs: bs}
	read(d, ord.String, &node.Key)
	var label uint64
	read(d, varint.Uint64, &label)
	node.Label = core.Label(label)
	count := readLen(d)
	if d.err == nil {
		node.Attrs = make(map[string]string, count)
	}
	for i := 0; i < count && d.err == nil; i++ {
		var k, v string
		read(d, ord.String, &k)
		read(d, ord.String, &v)
		node.Attrs[k] = v
	}
	return node, d.n, d.err
}

func (nodeMUS) Size(node core.Node) (size int) {
	size = ord.String.Size(node.Key)
	size += varint.Uint64.Size(uint64(node.Label))
	size += varint.Int.Size(len(node.Attrs))
	for k, v := range node.Attrs {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return
}

// EdgeMUS encodes core.Edge.
var EdgeMUS = edgeMUS{}

type edgeMUS struct{}

func (edgeMUS) Marshal(e core.Edge, bs []byte) (n int) {
	n = write(ord.String, e.From, bs)
	n += write(ord.String, e.To, bs[n:])
	n += write(varint.Uint64, uint64(e.Relation), bs[n:])
	return
}

func (edgeMUS) Unmarshal(bs []byte) (e core.Edge, n int, err error) {
	d := &decoder{bs: bs}
	read(d, ord.String, &e.From)
	read(d, ord.String, &e.To)
	var rel uint64
	read(d, varint.Uint64, &rel)
	e.Relation = core.Relation(rel)
	return e, d.n, d.err
}

func (edgeMUS) Size(e core.Edge) (size int) {
	return ord.String.Size(e.From) + ord.String.Size(e.To) + varint.Uint64.Size(uint64(e.Relation))
}

// EmbeddingMUS encodes core.Embedding. Vector components are fixed-width.
var EmbeddingMUS = embeddingMUS{}

type embeddingMUS struct{}

func (embeddingMUS) Marshal(e core.Embedding, bs []byte) (n int) {
	n = write(varint.Int64, e.ProductID, bs)
	n += write(varint.Uint64, uint64(e.Fingerprint), bs[n:])
	n += write(varint.Int, len(e.Vector), bs[n:])
	for _, f := range e.Vector {
		n += write(raw.Float32, f, bs[n:])
	}
	return
}

func (embeddingMUS) Unmarshal(bs []byte) (e core.Embedding, n int, err error) {
	d := &decoder{bs: bs}
	read(d, varint.Int64, &e.ProductID)
	var fp uint64
	read(d, varint.Uint64, &fp)
	e.Fingerprint = core.ID(fp)
	count := readLen(d)
	if d.err == nil && count > 0 {
		e.Vector = make([]float32, count)
	}
	for i := 0; i < count && d.err == nil; i++ {
		read(d, raw.Float32, &e.Vector[i])
	}
	return e, d.n, d.err
}

func (embeddingMUS) Size(e core.Embedding) (size int) {
	size = varint.Int64.Size(e.ProductID)
	size += varint.Uint64.Size(uint64(e.Fingerprint))
	size += varint.Int.Size(len(e.Vector))
	for _, f := range e.Vector {
		size += raw.Float32.Size(f)
	}
	return
}
