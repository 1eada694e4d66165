package model

import "strings"

type VariantKind string

const (
	VariantSquare   VariantKind = "SQUARE"
	VariantWide     VariantKind = "WIDE"
	VariantPortrait VariantKind = "PORTRAIT"
)

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VariantSpec is the canonical rendition for a kind.
type VariantSpec struct {
	Kind        VariantKind `json:"type"`
	Dimensions  Dimensions  `json:"dimensions"`
	Label       string      `json:"label"`
	AspectRatio string      `json:"aspectRatio"`
}

var variantKindOrder = []VariantKind{VariantSquare, VariantWide, VariantPortrait}

var variantCatalog = map[VariantKind]VariantSpec{
	VariantSquare: {
		Kind:        VariantSquare,
		Dimensions:  Dimensions{Width: 1200, Height: 1200},
		Label:       "Square (1:1)",
		AspectRatio: "1:1",
	},
	VariantWide: {
		Kind:        VariantWide,
		Dimensions:  Dimensions{Width: 1600, Height: 900},
		Label:       "Widescreen (16:9)",
		AspectRatio: "16:9",
	},
	VariantPortrait: {
		Kind:        VariantPortrait,
		Dimensions:  Dimensions{Width: 900, Height: 1200},
		Label:       "Portrait (3:4)",
		AspectRatio: "3:4",
	},
}

// VariantKinds lists the catalog in display order.
func VariantKinds() []VariantSpec {
	specs := make([]VariantSpec, 0, len(variantKindOrder))
	for _, kind := range variantKindOrder {
		specs = append(specs, variantCatalog[kind])
	}
	return specs
}

// ParseVariantKind accepts any casing and surrounding whitespace.
func ParseVariantKind(s string) (VariantKind, bool) {
	kind := VariantKind(strings.ToUpper(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", false
	}
	return kind, true
}

func (k VariantKind) Valid() bool {
	_, ok := variantCatalog[k]
	return ok
}

func (k VariantKind) Spec() (VariantSpec, bool) {
	spec, ok := variantCatalog[k]
	return spec, ok
}

func (k VariantKind) Label() string {
	if spec, ok := variantCatalog[k]; ok {
		return spec.Label
	}
	return string(k)
}
