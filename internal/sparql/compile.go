// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package sparql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/quarry-kg/quarry/internal/kg"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Schema vocabulary used by the compiled queries.
var (
	rdfsLabel           = Name("rdfs:label")
	schemaDescription   = Name("schema:description")
	schemaAbout         = Name("schema:about")
	schemaInLanguage    = Name("schema:inLanguage")
	schemaIsPartOf      = Name("schema:isPartOf")
	wikibaseDirectClaim = Name("wikibase:directClaim")
)

// Hop names the variables introduced by one traversal step. Every name
// carries the hop index, so variables of different hops never collide.
type Hop struct {
	Index int

	SubjectID          Var
	SubjectLabel       Var
	SubjectDescription Var

	PredicateID          Var
	PredicateLabel       Var
	PredicateDescription Var

	ObjectID          Var
	ObjectLabel       Var
	ObjectDescription Var

	// Property is the property entity whose direct claim is PredicateID. It
	// is not selected.
	Property Var
}

// NewHop returns the descriptor for hop i.
func NewHop(i int) Hop {
	v := func(name string) Var { return Var(fmt.Sprintf("%s_%d", name, i)) }
	return Hop{
		Index:                i,
		SubjectID:            v("subject_id"),
		SubjectLabel:         v("subject_label"),
		SubjectDescription:   v("subject_description"),
		PredicateID:          v("predicate_id"),
		PredicateLabel:       v("predicate_label"),
		PredicateDescription: v("predicate_description"),
		ObjectID:             v("object_id"),
		ObjectLabel:          v("object_label"),
		ObjectDescription:    v("object_description"),
		Property:             v("property"),
	}
}

// Selected returns the nine variables a hop contributes to the projection.
func (h Hop) Selected() []Var {
	return []Var{
		h.SubjectID, h.SubjectLabel, h.SubjectDescription,
		h.PredicateID, h.PredicateLabel, h.PredicateDescription,
		h.ObjectID, h.ObjectLabel, h.ObjectDescription,
	}
}

// Depth bounds for neighborhood queries. Each hop adds nine projected
// variables and a join, so the query grows with depth.
const (
	DefaultMaxDepth = 5
	DepthLimit      = 10
)

// Hops returns the descriptors for a traversal of the given depth, clamped
// to [0, DepthLimit].
func Hops(depth int) []Hop {
	depth = max(0, min(depth, DepthLimit))
	hops := make([]Hop, depth)
	for i := range hops {
		hops[i] = NewHop(i)
	}
	return hops
}

// Compiler builds the lookup queries. The zero value is not usable; start
// from DefaultCompiler or fill every field.
type Compiler struct {
	Entities          kg.Namespace
	Relations         kg.Namespace
	Language          string
	Denylist          string
	LabelPattern      string
	ExcludedRelations []string
	WikiSite          string
	// MaxDepth bounds Neighborhood. Zero means DefaultMaxDepth; values
	// above DepthLimit are lowered to it.
	MaxDepth int
}

// DepthCap returns the largest depth Neighborhood accepts.
func (c Compiler) DepthCap() int {
	if c.MaxDepth < 1 {
		return DefaultMaxDepth
	}
	return min(c.MaxDepth, DepthLimit)
}

// DefaultCompiler targets the public Wikidata graph.
func DefaultCompiler() Compiler {
	return Compiler{
		Entities:          kg.Namespace{Base: "http://www.wikidata.org/entity/", Prefix: "Q"},
		Relations:         kg.Namespace{Base: "http://www.wikidata.org/prop/direct/", Prefix: "P"},
		Language:          "en",
		Denylist:          "Wiki",
		LabelPattern:      "^[A-Za-z0-9 -]+$",
		ExcludedRelations: []string{"P1343"},
		WikiSite:          "https://en.wikipedia.org/",
		MaxDepth:          DefaultMaxDepth,
	}
}

// Neighborhood compiles the bounded-depth neighborhood query rooted at root.
// The projection holds 9*depth variables.
func (c Compiler) Neighborhood(root string, depth int) (*Query, error) {
	if depth < 1 || depth > c.DepthCap() {
		return nil, qerr.New(qerr.CodeQueryCompileInvalidInput, "depth out of range",
			qerr.FieldEntity(root), qerr.Field("depth", depth), qerr.Field("max_depth", c.DepthCap()))
	}
	if !c.Entities.ValidID(root) {
		return nil, qerr.New(qerr.CodeQueryCompileInvalidInput, "malformed entity id",
			qerr.FieldEntity(root))
	}

	hops := Hops(depth)
	q := &Query{Prefixes: StandardPrefixes}
	q.Where = Group{Values{Var: hops[0].SubjectID, Terms: []Term{IRI(c.Entities.IRI(root))}}}

	for i, h := range hops {
		q.Select = append(q.Select, h.Selected()...)
		if i > 0 {
			q.Where = append(q.Where, Bind{Expr: hops[i-1].ObjectID.E(), As: h.SubjectID})
		}
		q.Where = append(q.Where, c.hopBlock(h)...)
	}
	return q, nil
}

func (c Compiler) hopBlock(h Hop) Group {
	g := Group{
		Triple{h.SubjectID.T(), h.PredicateID.T(), h.ObjectID.T()},
		Filter{StrStarts(h.SubjectID, c.Entities.Base+c.Entities.Prefix)},
		Filter{StrStarts(h.PredicateID, c.Relations.Base+c.Relations.Prefix)},
		Filter{StrStarts(h.ObjectID, c.Entities.Base+c.Entities.Prefix)},

		Triple{h.SubjectID.T(), rdfsLabel, h.SubjectLabel.T()},
		Filter{LangIs(h.SubjectLabel, c.Language)},
		Triple{h.SubjectID.T(), schemaDescription, h.SubjectDescription.T()},
		Filter{LangIs(h.SubjectDescription, c.Language)},

		Triple{h.ObjectID.T(), rdfsLabel, h.ObjectLabel.T()},
		Filter{LangIs(h.ObjectLabel, c.Language)},
	}
	if c.Denylist != "" {
		g = append(g, Filter{Not(Contains(h.ObjectLabel, c.Denylist))})
	}
	if c.LabelPattern != "" {
		g = append(g, Filter{Regex(h.ObjectLabel, c.LabelPattern)})
	}
	g = append(g,
		Triple{h.ObjectID.T(), schemaDescription, h.ObjectDescription.T()},
		Filter{LangIs(h.ObjectDescription, c.Language)},
	)
	if c.Denylist != "" {
		g = append(g, Filter{Not(Contains(h.ObjectDescription, c.Denylist))})
	}
	g = append(g,
		Triple{h.Property.T(), wikibaseDirectClaim, h.PredicateID.T()},
		Triple{h.Property.T(), rdfsLabel, h.PredicateLabel.T()},
		Filter{LangIs(h.PredicateLabel, c.Language)},
	)
	if c.Denylist != "" {
		g = append(g, Filter{Not(Contains(h.PredicateLabel, c.Denylist))})
	}
	g = append(g, Optional{Group: Group{
		Triple{h.Property.T(), schemaDescription, h.PredicateDescription.T()},
		Filter{LangIs(h.PredicateDescription, c.Language)},
	}})
	for _, rel := range c.ExcludedRelations {
		g = append(g, Filter{NotEqual(h.PredicateID, IRI(c.Relations.IRI(rel)))})
	}
	return g
}

// Label batch projection.
const (
	EntityIDVar          Var = "entity_id"
	EntityLabelVar       Var = "entity_label"
	EntityDescriptionVar Var = "entity_description"
)

// LabelBatch compiles a single query returning the label and description of
// each id, one UNION branch per id.
func (c Compiler) LabelBatch(ids []string) (*Query, error) {
	if len(ids) == 0 {
		return nil, qerr.New(qerr.CodeQueryCompileInvalidInput, "label batch needs at least one id")
	}
	union := Union{Groups: make([]Group, 0, len(ids))}
	for _, id := range ids {
		if !c.Entities.ValidID(id) {
			return nil, qerr.New(qerr.CodeQueryCompileInvalidInput, "malformed entity id", qerr.FieldEntity(id))
		}
		branch := Group{
			Values{Var: EntityIDVar, Terms: []Term{IRI(c.Entities.IRI(id))}},
			Triple{EntityIDVar.T(), rdfsLabel, EntityLabelVar.T()},
			Filter{LangIs(EntityLabelVar, c.Language)},
		}
		if c.LabelPattern != "" {
			branch = append(branch, Filter{Regex(EntityLabelVar, c.LabelPattern)})
		}
		branch = append(branch,
			Triple{EntityIDVar.T(), schemaDescription, EntityDescriptionVar.T()},
			Filter{LangIs(EntityDescriptionVar, c.Language)},
		)
		union.Groups = append(union.Groups, branch)
	}
	return &Query{
		Prefixes: StandardPrefixes,
		Select:   []Var{EntityIDVar, EntityLabelVar, EntityDescriptionVar},
		Where:    Group{union},
	}, nil
}

// ItemVar is the projection of the mention query.
const ItemVar Var = "item"

// Mention compiles the query that maps surface text to an entity having an
// article on the configured wiki. The text is tried as given, lower-cased
// and title-cased, each with and without a language tag.
func (c Compiler) Mention(text string) (*Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, qerr.New(qerr.CodeResolverMentionInvalid, "mention is empty")
	}

	article := Var("article")
	label := Var("label")
	seen := make(map[Term]bool)
	union := Union{}
	for _, variant := range []string{text, strings.ToLower(text), titleCase(text)} {
		for _, lit := range []Term{LangLiteral(variant, c.Language), Literal(variant)} {
			if seen[lit] {
				continue
			}
			seen[lit] = true
			union.Groups = append(union.Groups, Group{
				Triple{ItemVar.T(), label.T(), lit},
				Triple{article.T(), schemaAbout, ItemVar.T()},
				Triple{article.T(), schemaInLanguage, Literal(c.Language)},
				Triple{article.T(), schemaIsPartOf, IRI(c.WikiSite)},
			})
		}
	}
	return &Query{
		Prefixes: StandardPrefixes,
		Distinct: true,
		Select:   []Var{ItemVar},
		Where:    Group{union},
	}, nil
}

// ObjectVar is the projection of the outgoing query.
const ObjectVar Var = "object_id"

// Outgoing compiles a one-hop query listing every entity id reachable from
// id over a direct claim. The subject must carry a label in the configured
// language matching LabelPattern, the predicate must have a labelled
// property entity, and ExcludedRelations are skipped.
func (c Compiler) Outgoing(id string) (*Query, error) {
	if !c.Entities.ValidID(id) {
		return nil, qerr.New(qerr.CodeQueryCompileInvalidInput, "malformed entity id", qerr.FieldEntity(id))
	}
	subject := Var("subject_id")
	subjectLabel := Var("subject_label")
	predicate := Var("predicate_id")
	predicateLabel := Var("predicate_label")
	property := Var("property")

	where := Group{
		Values{Var: subject, Terms: []Term{IRI(c.Entities.IRI(id))}},
		Triple{subject.T(), predicate.T(), ObjectVar.T()},
		Filter{StrStarts(subject, c.Entities.Base+c.Entities.Prefix)},
		Filter{StrStarts(predicate, c.Relations.Base+c.Relations.Prefix)},
		Filter{StrStarts(ObjectVar, c.Entities.Base+c.Entities.Prefix)},

		Triple{subject.T(), rdfsLabel, subjectLabel.T()},
		Filter{LangIs(subjectLabel, c.Language)},
	}
	if c.LabelPattern != "" {
		where = append(where, Filter{Regex(subjectLabel, c.LabelPattern)})
	}
	where = append(where,
		Triple{property.T(), wikibaseDirectClaim, predicate.T()},
		Triple{property.T(), rdfsLabel, predicateLabel.T()},
		Filter{LangIs(predicateLabel, c.Language)},
	)
	for _, rel := range c.ExcludedRelations {
		where = append(where, Filter{NotEqual(predicate, IRI(c.Relations.IRI(rel)))})
	}
	return &Query{
		Prefixes: StandardPrefixes,
		Distinct: true,
		Select:   []Var{ObjectVar},
		Where:    where,
	}, nil
}

// titleCase upper-cases the first letter of every space-separated word and
// lower-cases the rest.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
