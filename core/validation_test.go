package core

import (
	"errors"
	"testing"
)

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		product *Product
		wantErr error
	}{
		{
			name:    "valid product",
			product: &Product{ID: 1, Name: "Oat Crunch", Price: 4.5},
			wantErr: nil,
		},
		{
			name:    "free product",
			product: &Product{ID: 1, Name: "Sample", Price: 0},
			wantErr: nil,
		},
		{
			name:    "nil product",
			product: nil,
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "zero id",
			product: &Product{Name: "Oat Crunch"},
			wantErr: ErrInvalidProductID,
		},
		{
			name:    "blank name",
			product: &Product{ID: 1, Name: "   "},
			wantErr: ErrEmptyName,
		},
		{
			name:    "negative price",
			product: &Product{ID: 1, Name: "Oat Crunch", Price: -1},
			wantErr: ErrNegativePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateProduct() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateProduct() error = %v, want %v", err, tt.wantErr)
			}
			if tt.product != nil && !errors.Is(err, ErrInvalidProduct) {
				t.Errorf("ValidateProduct() error should wrap ErrInvalidProduct")
			}
		})
	}
}

func TestValidateNode(t *testing.T) {
	tests := []struct {
		name    string
		node    *Node
		wantErr error
	}{
		{"valid product", &Node{Key: "product:1", Label: LabelProduct}, nil},
		{"valid attribute", &Node{Key: "attr:vegan", Label: LabelAttribute}, nil},
		{"nil node", nil, ErrInvalidNode},
		{"unknown label", &Node{Key: "store:1", Label: LabelUnknown}, ErrUnknownLabel},
		{"prefix mismatch", &Node{Key: "brand:acme", Label: LabelProduct}, ErrKeyPrefixMismatch},
		{"empty value", &Node{Key: "attr:", Label: LabelAttribute}, ErrKeyPrefixMismatch},
		{"no separator", &Node{Key: "vegan", Label: LabelAttribute}, ErrKeyPrefixMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNode(tt.node)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateNode() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateNode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEdge(t *testing.T) {
	if err := ValidateEdge(&Edge{From: "product:1", To: "brand:acme", Relation: RelationMadeBy}); err != nil {
		t.Errorf("ValidateEdge() error = %v, want nil", err)
	}
	if err := ValidateEdge(&Edge{From: "product:1", To: "brand:acme"}); !errors.Is(err, ErrUnknownRelation) {
		t.Errorf("ValidateEdge() error = %v, want %v", err, ErrUnknownRelation)
	}
	if err := ValidateEdge(&Edge{From: "", To: "brand:acme", Relation: RelationMadeBy}); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("ValidateEdge() error = %v, want %v", err, ErrInvalidEdge)
	}
	if err := ValidateEdge(nil); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("ValidateEdge() error = %v, want %v", err, ErrInvalidEdge)
	}
}
