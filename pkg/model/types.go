package model

// FieldType is the closed set of input kinds a Field can declare.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeDate        FieldType = "date"
)

// FieldTypes lists every supported FieldType in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeTextarea,
		FieldTypeNumber,
		FieldTypeSelect,
		FieldTypeMultiSelect,
		FieldTypeBoolean,
		FieldTypeDate,
	}
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeSelect,
		FieldTypeMultiSelect, FieldTypeBoolean, FieldTypeDate:
		return true
	default:
		return false
	}
}

// Selectable reports whether the type draws its values from Options.
func (t FieldType) Selectable() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

// Multiple reports whether the type stores an array of scalars.
func (t FieldType) Multiple() bool {
	return t == FieldTypeMultiSelect
}

// RuleKind identifies a declarative validation rule.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleMin      RuleKind = "min"
	RuleMax      RuleKind = "max"
	RulePattern  RuleKind = "pattern"
	RuleCustom   RuleKind = "custom"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleRequired, RuleMin, RuleMax, RulePattern, RuleCustom:
		return true
	default:
		return false
	}
}

// Rule is a single validation constraint. Min/max thresholds live in Value,
// pattern rules keep the expression in Pattern and custom rules either carry
// an inline Check or reference a predicate registered under Custom.
type Rule struct {
	Kind    RuleKind       `json:"kind"`
	Value   float64        `json:"value,omitempty"`
	Pattern string         `json:"pattern,omitempty"`
	Custom  string         `json:"custom,omitempty"`
	Message string         `json:"message,omitempty"`
	Check   func(any) bool `json:"-"`
}

// Required returns a required rule with an optional message.
func Required(message string) Rule {
	return Rule{Kind: RuleRequired, Message: message}
}

// Min returns a lower bound rule (numeric value or length).
func Min(value float64, message string) Rule {
	return Rule{Kind: RuleMin, Value: value, Message: message}
}

// Max returns an upper bound rule (numeric value or length).
func Max(value float64, message string) Rule {
	return Rule{Kind: RuleMax, Value: value, Message: message}
}

// Pattern returns a regular expression rule.
func Pattern(expr, message string) Rule {
	return Rule{Kind: RulePattern, Pattern: expr, Message: message}
}

// Custom returns a rule backed by an inline predicate.
func Custom(check func(any) bool, message string) Rule {
	return Rule{Kind: RuleCustom, Check: check, Message: message}
}

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Condition is declared on the field it controls. It shows or hides that
// field when the value of SourceField matches TriggerValue and the field's id
// appears in Show or Hide. A trigger expressed as an array
// matches when it intersects the source value.
type Condition struct {
	SourceField  string   `json:"sourceField"`
	TriggerValue any      `json:"triggerValue"`
	Show         []string `json:"show,omitempty"`
	Hide         []string `json:"hide,omitempty"`
}

// Operator names the comparison a Gate performs.
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorContains Operator = "contains"
	OperatorNot      Operator = "not"
	OperatorIn       Operator = "in"
)

// Valid reports whether o is a known operator. The empty operator is valid
// and behaves as OperatorEquals.
func (o Operator) Valid() bool {
	switch o {
	case "", OperatorEquals, OperatorContains, OperatorNot, OperatorIn:
		return true
	default:
		return false
	}
}

// Gate decides whether a content block or conditional section is emitted.
// Expr, when set, takes precedence over the Field/Value/Operator triple.
type Gate struct {
	Field    string   `json:"field,omitempty"`
	Value    any      `json:"value,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Expr     string   `json:"expr,omitempty"`
}

// ContentBlock is extra narrative appended to a sentence while its gate holds.
// The template is interpolated against the owning sentence's fields.
type ContentBlock struct {
	ID       string `json:"id,omitempty"`
	When     Gate   `json:"when"`
	Template string `json:"template"`
}

// Section is a titled conditional paragraph attached to a sentence.
type Section struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	When     Gate   `json:"when"`
	Template string `json:"template"`
}

// Field is a leaf or branch node of a sentence. Expansions map a trigger value
// to a nested sentence that is only active while the field resolves to it.
type Field struct {
	ID          string               `json:"id"`
	Type        FieldType            `json:"type"`
	Label       string               `json:"label,omitempty"`
	Placeholder string               `json:"placeholder,omitempty"`
	Help        string               `json:"help,omitempty"`
	Options     []Option             `json:"options,omitempty"`
	Rules       []Rule               `json:"rules,omitempty"`
	Conditions  []Condition          `json:"conditions,omitempty"`
	Expansions  map[string]*Sentence `json:"expansions,omitempty"`
}

// Sentence is a template with {fieldId} placeholders, the fields it
// references and unconditional child sentences.
type Sentence struct {
	ID       string            `json:"id,omitempty"`
	Template string            `json:"template"`
	Fields   map[string]*Field `json:"fields,omitempty"`
	Children []*Sentence       `json:"children,omitempty"`
	Blocks   []ContentBlock    `json:"blocks,omitempty"`
	Sections []Section         `json:"sections,omitempty"`
}

// Submodule groups sentences under a heading.
type Submodule struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Sentences   []*Sentence `json:"sentences,omitempty"`
}

// Module is the addressing root for a value tree. Sentences declared directly
// on the module precede those of its submodules.
type Module struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Sentences   []*Sentence `json:"sentences,omitempty"`
	Submodules  []Submodule `json:"submodules,omitempty"`
}
