// Package resource names the portal's resource kinds and how each one hangs
// off the ownership hierarchy (client -> building -> children).
package resource

import "fmt"

// Kind is one of the closed set of portal resource types.
type Kind string

const (
	KindClient           Kind = "client"
	KindBuilding         Kind = "building"
	KindBasin            Kind = "basin"
	KindWarranty         Kind = "warranty"
	KindIntervention     Kind = "intervention"
	KindInterventionFile Kind = "intervention_file"
	KindReport           Kind = "report"
)

// All lists every kind in hierarchy order.
var All = []Kind{
	KindClient,
	KindBuilding,
	KindBasin,
	KindWarranty,
	KindIntervention,
	KindInterventionFile,
	KindReport,
}

type kindInfo struct {
	table     string
	segment   string // URL path segment
	parentCol string // column holding the parent id, empty for clients
	parent    Kind
}

var kinds = map[Kind]kindInfo{
	KindClient:           {table: "clients", segment: "clients"},
	KindBuilding:         {table: "buildings", segment: "buildings", parentCol: "client_id", parent: KindClient},
	KindBasin:            {table: "basins", segment: "basins", parentCol: "building_id", parent: KindBuilding},
	KindWarranty:         {table: "warranties", segment: "warranties", parentCol: "building_id", parent: KindBuilding},
	KindIntervention:     {table: "interventions", segment: "interventions", parentCol: "building_id", parent: KindBuilding},
	KindInterventionFile: {table: "intervention_files", segment: "intervention_files", parentCol: "intervention_id", parent: KindIntervention},
	KindReport:           {table: "reports", segment: "reports", parentCol: "building_id", parent: KindBuilding},
}

var bySegment = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		m[info.segment] = k
	}
	return m
}()

// ParseSegment maps a URL path segment such as "basins" to its Kind.
func ParseSegment(segment string) (Kind, error) {
	k, ok := bySegment[segment]
	if !ok {
		return "", fmt.Errorf("unknown resource type %q", segment)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Table returns the SQL table storing rows of this kind.
func (k Kind) Table() string { return kinds[k].table }

// Segment returns the URL path segment for this kind.
func (k Kind) Segment() string { return kinds[k].segment }

// Parent returns the kind one level up and the column referencing it.
// ok is false for clients and unknown kinds.
func (k Kind) Parent() (parent Kind, column string, ok bool) {
	info, found := kinds[k]
	if !found || info.parentCol == "" {
		return "", "", false
	}
	return info.parent, info.parentCol, true
}
