// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package sparql compiles graph lookups into SPARQL 1.1 query text from a
// small structured representation and flattens the tabular results back
// into adjacency data. Query text is produced only by Query.String; every
// IRI and literal is escaped when its Term is constructed.
package sparql

import (
	"strconv"
	"strings"
)

// Var is a query variable name without the leading '?'.
type Var string

// String returns the variable in query syntax.
func (v Var) String() string { return "?" + string(v) }

// Term is a serialized RDF term or variable reference.
type Term string

// T returns the variable as a Term.
func (v Var) T() Term { return Term(v.String()) }

// E returns the variable as an Expr.
func (v Var) E() Expr { return Expr(v.String()) }

// Name is a prefixed name such as rdfs:label. Only pass compile-time constants.
func Name(prefixed string) Term { return Term(prefixed) }

// IRI returns an IRI reference. Characters that may not appear inside
// angle brackets are percent-encoded.
func IRI(iri string) Term {
	var b strings.Builder
	b.WriteByte('<')
	for _, r := range iri {
		switch {
		case r <= 0x20, strings.ContainsRune("<>\"{}|^`\\", r):
			b.WriteString(percentEncode(r))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('>')
	return Term(b.String())
}

func percentEncode(r rune) string {
	var buf [4]byte
	n := copy(buf[:], string(r))
	var b strings.Builder
	for _, c := range buf[:n] {
		b.WriteString("%")
		b.WriteString(strings.ToUpper(strconv.FormatUint(uint64(c), 16)))
	}
	return b.String()
}

// Literal returns a plain string literal.
func Literal(s string) Term {
	return Term(quote(s))
}

// LangLiteral returns a language-tagged string literal.
func LangLiteral(s, lang string) Term {
	return Term(quote(s) + "@" + lang)
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + literalEscaper.Replace(s) + `"`
}

// Expr is a serialized filter or bind expression.
type Expr string

// LangIs is LANG(?v) = "lang".
func LangIs(v Var, lang string) Expr {
	return Expr("LANG(" + v.String() + ") = " + quote(lang))
}

// StrStarts is STRSTARTS(STR(?v), "prefix").
func StrStarts(v Var, prefix string) Expr {
	return Expr("STRSTARTS(STR(" + v.String() + "), " + quote(prefix) + ")")
}

// Contains is CONTAINS(STR(?v), "s").
func Contains(v Var, s string) Expr {
	return Expr("CONTAINS(STR(" + v.String() + "), " + quote(s) + ")")
}

// Regex is REGEX(STR(?v), "pattern").
func Regex(v Var, pattern string) Expr {
	return Expr("REGEX(STR(" + v.String() + "), " + quote(pattern) + ")")
}

// NotEqual is ?v != term.
func NotEqual(v Var, t Term) Expr {
	return Expr(v.String() + " != " + string(t))
}

// Not negates e.
func Not(e Expr) Expr {
	return Expr("!(" + string(e) + ")")
}

// Element is one member of a group graph pattern.
type Element interface {
	write(b *strings.Builder, indent int)
}

// Group is a group graph pattern.
type Group []Element

// Triple is a single triple pattern.
type Triple struct {
	S, P, O Term
}

// Filter restricts solutions to those satisfying Expr.
type Filter struct {
	Expr Expr
}

// Values binds Var inline to each of Terms.
type Values struct {
	Var   Var
	Terms []Term
}

// Bind assigns the value of Expr to As.
type Bind struct {
	Expr Expr
	As   Var
}

// Optional is an OPTIONAL group.
type Optional struct {
	Group Group
}

// Union is the UNION of its groups.
type Union struct {
	Groups []Group
}

// Prefix is a PREFIX declaration.
type Prefix struct {
	Name string
	IRI  string
}

// StandardPrefixes are declared on every compiled query so the text runs on
// endpoints that do not predefine them.
var StandardPrefixes = []Prefix{
	{Name: "rdfs", IRI: "http://www.w3.org/2000/01/rdf-schema#"},
	{Name: "schema", IRI: "http://schema.org/"},
	{Name: "wikibase", IRI: "http://wikiba.se/ontology#"},
}

// Query is a SELECT query.
type Query struct {
	Prefixes []Prefix
	Distinct bool
	Select   []Var
	Where    Group
	Limit    int
}

// String serializes the query.
func (q *Query) String() string {
	var b strings.Builder
	for _, p := range q.Prefixes {
		b.WriteString("PREFIX ")
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(string(IRI(p.IRI)))
		b.WriteByte('\n')
	}
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, v := range q.Select {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
	b.WriteString("\nWHERE ")
	q.Where.write(&b, 0)
	if q.Limit > 0 {
		b.WriteString("\nLIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	b.WriteByte('\n')
	return b.String()
}

func pad(b *strings.Builder, indent int) {
	b.WriteString(strings.Repeat("  ", indent))
}

func (g Group) write(b *strings.Builder, indent int) {
	b.WriteString("{\n")
	for _, el := range g {
		el.write(b, indent+1)
	}
	pad(b, indent)
	b.WriteString("}")
}

func (t Triple) write(b *strings.Builder, indent int) {
	pad(b, indent)
	b.WriteString(string(t.S) + " " + string(t.P) + " " + string(t.O) + " .\n")
}

func (f Filter) write(b *strings.Builder, indent int) {
	pad(b, indent)
	b.WriteString("FILTER(" + string(f.Expr) + ")\n")
}

func (v Values) write(b *strings.Builder, indent int) {
	pad(b, indent)
	b.WriteString("VALUES " + v.Var.String() + " {")
	for _, t := range v.Terms {
		b.WriteString(" " + string(t))
	}
	b.WriteString(" }\n")
}

func (bd Bind) write(b *strings.Builder, indent int) {
	pad(b, indent)
	b.WriteString("BIND(" + string(bd.Expr) + " AS " + bd.As.String() + ")\n")
}

func (o Optional) write(b *strings.Builder, indent int) {
	pad(b, indent)
	b.WriteString("OPTIONAL ")
	o.Group.write(b, indent)
	b.WriteByte('\n')
}

func (u Union) write(b *strings.Builder, indent int) {
	pad(b, indent)
	for i, g := range u.Groups {
		if i > 0 {
			b.WriteString(" UNION ")
		}
		g.write(b, indent)
	}
	b.WriteByte('\n')
}
