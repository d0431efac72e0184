package jsonapi

// Identifier is anything addressable by the (type, id) composite key.
type Identifier interface {
	ResourceType() string
	ResourceID() string
}

// FilterByType returns the elements of included whose type is typ, in
// order. A nil included yields an empty result.
func FilterByType[T Identifier](included []T, typ string) []T {
	out := make([]T, 0)
	for _, item := range included {
		if item.ResourceType() == typ {
			out = append(out, item)
		}
	}
	return out
}

// FindOne returns the first element of included matching both typ and id.
// Duplicate keys are not expected; if present, the first one wins.
func FindOne[T Identifier](included []T, typ, id string) (T, bool) {
	for _, item := range included {
		if item.ResourceType() == typ && item.ResourceID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// ResolveRelationship resolves each linkage of type typ against included,
// keeping linkage order. Linkages with no matching resource are dropped:
// partial included sets are normal backend behaviour.
func ResolveRelationship[T Identifier](included []T, linkages []Linkage, typ string) []T {
	out := make([]T, 0, len(linkages))
	for _, link := range linkages {
		if link.Type != typ {
			continue
		}
		if item, ok := FindOne(included, typ, link.ID); ok {
			out = append(out, item)
		}
	}
	return out
}
