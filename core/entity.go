package core

import (
	"strconv"
	"strings"
)

// Label is the type of an entity graph node.
type Label uint8

const (
	LabelUnknown Label = iota
	LabelProduct
	LabelBrand
	LabelCategory
	LabelSubCategory
	LabelIngredient
	LabelAttribute
)

var labelNames = [...]string{
	LabelUnknown:     "",
	LabelProduct:     "Product",
	LabelBrand:       "Brand",
	LabelCategory:    "Category",
	LabelSubCategory: "SubCategory",
	LabelIngredient:  "Ingredient",
	LabelAttribute:   "Attribute",
}

// Key prefixes, one per label. A node key is "<prefix>:<value>".
var labelPrefixes = [...]string{
	LabelUnknown:     "",
	LabelProduct:     "product",
	LabelBrand:       "brand",
	LabelCategory:    "category",
	LabelSubCategory: "subcat",
	LabelIngredient:  "ing",
	LabelAttribute:   "attr",
}

func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return ""
}

// Prefix returns the node key prefix for the label.
func (l Label) Prefix() string {
	if int(l) < len(labelPrefixes) {
		return labelPrefixes[l]
	}
	return ""
}

// Valid reports whether l is one of the fixed node labels.
func (l Label) Valid() bool {
	return l > LabelUnknown && int(l) < len(labelNames)
}

// ParseLabel returns the label with the given name, or LabelUnknown.
func ParseLabel(name string) Label {
	for i, n := range labelNames {
		if n != "" && n == name {
			return Label(i)
		}
	}
	return LabelUnknown
}

// Relation is the type of an entity graph edge.
type Relation uint8

const (
	RelationUnknown Relation = iota
	RelationMadeBy
	RelationInSubCategory
	RelationInCategory
	RelationHasIngredient
	RelationHasAttribute
)

var relationNames = [...]string{
	RelationUnknown:       "",
	RelationMadeBy:        "MADE_BY",
	RelationInSubCategory: "IN_SUBCATEGORY",
	RelationInCategory:    "IN_CATEGORY",
	RelationHasIngredient: "HAS_INGREDIENT",
	RelationHasAttribute:  "HAS_ATTRIBUTE",
}

func (r Relation) String() string {
	if int(r) < len(relationNames) {
		return relationNames[r]
	}
	return ""
}

// Valid reports whether r is one of the fixed relation types.
func (r Relation) Valid() bool {
	return r > RelationUnknown && int(r) < len(relationNames)
}

// ParseRelation returns the relation with the given name, or RelationUnknown.
func ParseRelation(name string) Relation {
	for i, n := range relationNames {
		if n != "" && n == name {
			return Relation(i)
		}
	}
	return RelationUnknown
}

// Attribute bag keys.
const (
	AttrName        = "name"
	AttrBrand       = "brand"
	AttrCategory    = "category"
	AttrSubCategory = "sub_category"
	AttrPrice       = "price"
)

// Node is an entity graph node. Attrs is a free-form attribute bag; Product
// nodes additionally carry brand, category, sub_category and price.
type Node struct {
	Key   string
	Label Label
	Attrs map[string]string
}

// NodeKey builds the stable identifier for a node.
func NodeKey(label Label, value string) string {
	return label.Prefix() + ":" + value
}

// Name returns the node's display name, or "" when absent.
func (n *Node) Name() string {
	return n.Attrs[AttrName]
}

// Attr returns an attribute value, or "" when absent.
func (n *Node) Attr(key string) string {
	return n.Attrs[key]
}

// Price returns the node's price. Absent or malformed prices read as zero.
func (n *Node) Price() float64 {
	return ParsePrice(n.Attrs[AttrPrice])
}

// ProductID returns the numeric suffix of a product node key.
// The second result is false when the key has no numeric suffix.
func (n *Node) ProductID() (int64, bool) {
	_, value, ok := strings.Cut(n.Key, ":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Edge is an undirected, typed edge between two node keys.
type Edge struct {
	From     string
	To       string
	Relation Relation
}
