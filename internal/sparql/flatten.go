// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package sparql

import (
	"github.com/quarry-kg/quarry/internal/kg"
)

// Neighborhood is the flattened form of a neighborhood query result.
// Adjacency values are sorted edge tokens ("P31-Q5"). The root key is always
// present, possibly with an empty slice.
type Neighborhood struct {
	Adjacency            map[string][]string `json:"adjacent_entities"`
	Labels               map[string]string   `json:"q_labels"`
	Descriptions         map[string]string   `json:"q_descriptions"`
	RelationLabels       map[string]string   `json:"p_labels"`
	RelationDescriptions map[string]string   `json:"p_descriptions"`
}

// EmptyNeighborhood returns the result for a root with no rows.
func EmptyNeighborhood(root string) Neighborhood {
	return Neighborhood{
		Adjacency:            map[string][]string{root: {}},
		Labels:               map[string]string{},
		Descriptions:         map[string]string{},
		RelationLabels:       map[string]string{},
		RelationDescriptions: map[string]string{},
	}
}

// Edges returns the root's adjacency as edges.
func (n Neighborhood) Edges(id string) []kg.Edge {
	return kg.ParseEdges(n.Adjacency[id])
}

// Flatten converts the rows of a Neighborhood query of the given depth into
// adjacency sets and label maps. Hop 0 edges hang off root; hop i edges hang
// off the object reached at hop i-1. A row missing a required binding at
// some hop contributes only the hops before it. Flatten is idempotent over
// duplicate rows.
func Flatten(root string, depth int, rows []Row) Neighborhood {
	out := EmptyNeighborhood(root)
	sets := map[string]kg.EdgeSet{root: {}}

	hops := Hops(depth)
	for _, row := range rows {
		subject := root
		for _, h := range hops {
			predURI, okP := row.Get(h.PredicateID)
			objURI, okO := row.Get(h.ObjectID)
			if !okP || !okO {
				break
			}
			pred := kg.IDFromURI(predURI)
			obj := kg.IDFromURI(objURI)

			set, ok := sets[subject]
			if !ok {
				set = kg.EdgeSet{}
				sets[subject] = set
			}
			set.Add(kg.Edge{Relation: pred, Neighbor: obj})

			setIfBound(out.Labels, subject, row, h.SubjectLabel)
			setIfBound(out.Descriptions, subject, row, h.SubjectDescription)
			setIfBound(out.Labels, obj, row, h.ObjectLabel)
			setIfBound(out.Descriptions, obj, row, h.ObjectDescription)
			setIfBound(out.RelationLabels, pred, row, h.PredicateLabel)
			setIfBound(out.RelationDescriptions, pred, row, h.PredicateDescription)

			subject = obj
		}
	}

	for id, set := range sets {
		out.Adjacency[id] = set.Tokens()
	}
	return out
}

func setIfBound(m map[string]string, key string, row Row, v Var) {
	if val, ok := row.Get(v); ok {
		m[key] = val
	}
}
