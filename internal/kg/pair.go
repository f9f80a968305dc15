// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package kg

// CandidatePair is two entities co-mentioned in one source query, with the
// labels and descriptions looked up for them. Treat it as immutable.
type CandidatePair struct {
	IDA           string
	IDB           string
	SourceQueryID string
	LabelA        string
	LabelB        string
	DescriptionA  string
	DescriptionB  string
}

// RefinedPair is a CandidatePair that passed every quality rule.
type RefinedPair struct {
	CandidatePair
}

// ConciseHeader is the column set of the concise refined output.
var ConciseHeader = []string{"wikidata_id_a", "wikidata_id_b", "trec_id"}

// VerboseHeader is the column set of the verbose refined output.
var VerboseHeader = []string{
	"wikidata_id_a", "wikidata_id_b", "trec_id",
	"label_a", "label_b", "description_a", "description_b",
}

// Concise returns the (idA, idB, sourceQueryId) record.
func (p CandidatePair) Concise() []string {
	return []string{p.IDA, p.IDB, p.SourceQueryID}
}

// Verbose returns the concise record followed by labels and descriptions.
func (p RefinedPair) Verbose() []string {
	return []string{
		p.IDA, p.IDB, p.SourceQueryID,
		p.LabelA, p.LabelB, p.DescriptionA, p.DescriptionB,
	}
}
