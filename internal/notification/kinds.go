package notification

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
)

// Kind is the concrete notification event kind emitted for one projection
// identity type.
type Kind string

const (
	KindAttributesUpdated    Kind = "ATTRIBUTES_UPDATED"
	KindBrandsUpdated        Kind = "BRANDS_UPDATED"
	KindCategoriesUpdated    Kind = "CATEGORIES_UPDATED"
	KindFieldMetadataUpdated Kind = "FIELD_METADATA_UPDATED"
	KindOffersUpdated        Kind = "OFFERS_UPDATED"
	KindOptionsUpdated       Kind = "OPTIONS_UPDATED"
)

// ErrUnsupportedType is returned by Resolve when the identity type has no
// registered notification kind.
var ErrUnsupportedType = errors.New("unsupported identity type")

var knownKinds = map[Kind]struct{}{
	KindAttributesUpdated:    {},
	KindBrandsUpdated:        {},
	KindCategoriesUpdated:    {},
	KindFieldMetadataUpdated: {},
	KindOffersUpdated:        {},
	KindOptionsUpdated:       {},
}

// Resolver maps projection identity types to notification kinds. The
// mapping is fixed at construction and validated then, not on each call.
type Resolver struct {
	kinds map[string]Kind
}

// NewResolver builds a resolver from an identityType -> kind name mapping.
// Unknown kind names fail fast.
func NewResolver(mapping map[string]string) (*Resolver, error) {
	kinds := make(map[string]Kind, len(mapping))
	for identityType, kindName := range mapping {
		kind := Kind(kindName)
		if _, ok := knownKinds[kind]; !ok {
			return nil, fmt.Errorf("identity type %q maps to unknown notification kind %q", identityType, kindName)
		}
		kinds[identityType] = kind
	}
	return &Resolver{kinds: kinds}, nil
}

// DefaultResolver returns the resolver for the built-in identity types.
func DefaultResolver() *Resolver {
	return &Resolver{kinds: map[string]Kind{
		catalog.TypeAttribute:     KindAttributesUpdated,
		catalog.TypeBrand:         KindBrandsUpdated,
		catalog.TypeCategory:      KindCategoriesUpdated,
		catalog.TypeFieldMetadata: KindFieldMetadataUpdated,
		catalog.TypeOffer:         KindOffersUpdated,
		catalog.TypeOption:        KindOptionsUpdated,
	}}
}

// LoadResolver reads an identityType -> kind name mapping from a YAML file.
//
//	category: CATEGORIES_UPDATED
//	brand: BRANDS_UPDATED
func LoadResolver(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notification kinds file: %w", err)
	}

	var mapping map[string]string
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parsing notification kinds file %s: %w", path, err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("notification kinds file %s defines no mappings", path)
	}

	return NewResolver(mapping)
}

// Resolve returns the notification kind for an identity type.
func (r *Resolver) Resolve(identityType string) (Kind, error) {
	kind, ok := r.kinds[identityType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, identityType)
	}
	return kind, nil
}

// IdentityTypes returns the mapped identity types, sorted.
func (r *Resolver) IdentityTypes() []string {
	types := make([]string, 0, len(r.kinds))
	for identityType := range r.kinds {
		types = append(types, identityType)
	}
	sort.Strings(types)
	return types
}
