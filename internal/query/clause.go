package query

// Clause is one backend-agnostic constraint. All clauses of a request are
// ANDed together.
type Clause interface {
	clause()
}

// MultiMatch scores text across several analyzed fields, summing the
// per-field relevance ("most_fields").
type MultiMatch struct {
	Fields []string `json:"fields"`
	Text   string   `json:"text"`
}

// Term requires an exact, unanalyzed match on Field.
type Term struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Terms requires Field to equal any of Values.
type Terms struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// Phrase requires the whole value of Field to equal Text, ignoring case and
// whitespace. A value that only contains Text does not match.
type Phrase struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

// Range bounds a numeric field. Nil bounds are open.
type Range struct {
	Field string   `json:"field"`
	GTE   *float64 `json:"gte,omitempty"`
	LTE   *float64 `json:"lte,omitempty"`
	GT    *float64 `json:"gt,omitempty"`
}

// IDs matches documents whose store-assigned id is any of Values.
type IDs struct {
	Values []string `json:"values"`
}

func (MultiMatch) clause() {}
func (Term) clause()       {}
func (Terms) clause()      {}
func (Phrase) clause()     {}
func (Range) clause()      {}
func (IDs) clause()        {}
