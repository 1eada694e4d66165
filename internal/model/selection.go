package model

// SelectVariant picks what a product page shows: the first variant of the
// requested kind, or the first variant when kind is empty. Ordering is the
// persisted order, never a sort.
func SelectVariant(variants []Variant, kind VariantKind) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	if kind == "" {
		return variants[0], true
	}
	for _, v := range variants {
		if v.Kind == kind {
			return v, true
		}
	}
	return Variant{}, false
}

func (p *Product) VariantByKind(kind VariantKind) (Variant, bool) {
	if kind == "" {
		return Variant{}, false
	}
	return SelectVariant(p.Variants, kind)
}

// FileIDs returns the storage identifiers of all variants that have one.
func (p *Product) FileIDs() []string {
	ids := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.StorageFileID != "" {
			ids = append(ids, v.StorageFileID)
		}
	}
	return ids
}
