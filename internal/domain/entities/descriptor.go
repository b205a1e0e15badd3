package entities

// EntityKind identifies a catalog entity managed by the generic CRUD service
type EntityKind string

const (
	KindPlan      EntityKind = "plans"
	KindCategory  EntityKind = "categories"
	KindSpecialty EntityKind = "specialties"
	KindProvince  EntityKind = "provinces"
	KindLocality  EntityKind = "localities"
)

// Descriptor describes how a catalog entity is persisted and how its changes
// cascade into the denormalized directory table.
type Descriptor struct {
	Kind       EntityKind
	Table      string
	NameColumn string

	// Columns lists the settable columns besides id, status and timestamps.
	Columns  []string
	Required []string
	Unique   []string

	// DirectoryColumn is the denormalized column in directory_entries that
	// carries this entity's name; empty when the entity is not denormalized.
	DirectoryColumn string

	// JoinedNames marks a directory column holding a comma-joined list of
	// names rather than a single name (categories).
	JoinedNames bool

	// RefTable/RefColumn identify the table that blocks deletion while it
	// still references this entity.
	RefTable  string
	RefColumn string
}

// descriptors is the closed set of catalog entities. Every EntityKind has
// exactly one entry here; DescriptorFor fails on anything else.
var descriptors = map[EntityKind]Descriptor{
	KindPlan: {
		Kind:            KindPlan,
		Table:           "plans",
		NameColumn:      "name",
		Columns:         []string{"name"},
		Required:        []string{"name"},
		Unique:          []string{"name"},
		DirectoryColumn: "plan_name",
		RefTable:        "provider_plans",
		RefColumn:       "plan_id",
	},
	KindCategory: {
		Kind:            KindCategory,
		Table:           "categories",
		NameColumn:      "name",
		Columns:         []string{"name"},
		Required:        []string{"name"},
		Unique:          []string{"name"},
		DirectoryColumn: "category_names",
		JoinedNames:     true,
		RefTable:        "provider_categories",
		RefColumn:       "category_id",
	},
	KindSpecialty: {
		Kind:            KindSpecialty,
		Table:           "specialties",
		NameColumn:      "name",
		Columns:         []string{"name"},
		Required:        []string{"name"},
		Unique:          []string{"name"},
		DirectoryColumn: "specialty_name",
		RefTable:        "provider_specialties",
		RefColumn:       "specialty_id",
	},
	KindProvince: {
		Kind:            KindProvince,
		Table:           "provinces",
		NameColumn:      "name",
		Columns:         []string{"name"},
		Required:        []string{"name"},
		Unique:          []string{"name"},
		DirectoryColumn: "province_name",
		RefTable:        "localities",
		RefColumn:       "province_id",
	},
	KindLocality: {
		Kind:       KindLocality,
		Table:      "localities",
		NameColumn: "name",
		Columns:    []string{"name", "province_id"},
		Required:   []string{"name", "province_id"},
		// Locality names repeat across provinces, so no uniqueness here.
		Unique:          nil,
		DirectoryColumn: "locality_name",
		RefTable:        "providers",
		RefColumn:       "locality_id",
	},
}

// DescriptorFor returns the descriptor for a kind
func DescriptorFor(kind EntityKind) (Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// Descriptors returns all descriptors
func Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, kind := range []EntityKind{KindPlan, KindCategory, KindSpecialty, KindProvince, KindLocality} {
		out = append(out, descriptors[kind])
	}
	return out
}
