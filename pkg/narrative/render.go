package narrative

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
	"github.com/goliatone/go-narrative/pkg/visibility/expr"
)

// Mode selects how unanswered fields are rendered.
type Mode string

const (
	// ModePreview renders bracketed fallbacks for unanswered fields.
	ModePreview Mode = "preview"
	// ModeInteractive renders questions and marks fields editable.
	ModeInteractive Mode = "interactive"
)

// ParseMode maps a name to a Mode, defaulting to preview.
func ParseMode(name string) Mode {
	if strings.EqualFold(strings.TrimSpace(name), string(ModeInteractive)) {
		return ModeInteractive
	}
	return ModePreview
}

// NodeKind identifies a rendered node.
type NodeKind string

const (
	NodeText        NodeKind = "text"
	NodeValue       NodeKind = "value"
	NodePlaceholder NodeKind = "placeholder"
	NodeList        NodeKind = "list"
)

// Node is one piece of rendered narrative. Value and placeholder nodes carry
// the field id and the dotted path of the field they render. List nodes hold
// one item per expanded array member.
type Node struct {
	Kind     NodeKind   `json:"kind"`
	Text     string     `json:"text"`
	FieldID  string     `json:"fieldId,omitempty"`
	Path     string     `json:"path,omitempty"`
	Editable bool       `json:"editable,omitempty"`
	Items    []ListItem `json:"items,omitempty"`
}

// ListItem is the continuation rendered for one selected member.
type ListItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Nodes []Node `json:"nodes"`
}

// Text returns the item as a single line.
func (i ListItem) Text() string {
	body := PlainText(i.Nodes)
	if body == "" {
		return i.Label
	}
	return i.Label + " " + body
}

// Option configures rendering.
type Option func(*config)

type config struct {
	root      model.Scope
	base      values.Path
	evaluator visibility.Evaluator
	extras    map[string]any
}

// WithRoot enables visibility checks against the module's root scope: hidden
// fields, and the expansions they own, are left out of the narrative.
func WithRoot(root model.Scope) Option {
	return func(c *config) { c.root = root }
}

// WithPath sets the path of the rendered sentence inside the value tree, for
// sentences reached through a child or expansion segment.
func WithPath(path values.Path) Option {
	return func(c *config) { c.base = path }
}

// WithEvaluator replaces the expression evaluator used by `expr` gates.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(c *config) {
		if evaluator != nil {
			c.evaluator = evaluator
		}
	}
}

// WithExtras exposes caller data to `expr` gates under the extras. prefix.
func WithExtras(extras map[string]any) Option {
	return func(c *config) { c.extras = extras }
}

var defaultEvaluator = expr.New()

func newConfig(opts []Option) config {
	cfg := config{evaluator: defaultEvaluator}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

type renderer struct {
	cfg      config
	tree     values.Tree
	mode     Mode
	flatRoot map[string]any
}

// Render interpolates sentence against tree. Literal template text becomes
// text nodes and each {fieldId} becomes a value node, or a placeholder node
// while unanswered. The expansion selected by a field's value is rendered
// right after its value. Gated blocks and sections, then child sentences,
// follow the template. Placeholders naming undeclared fields render nothing.
func Render(sentence *model.Sentence, tree values.Tree, mode Mode, opts ...Option) []Node {
	cfg := newConfig(opts)
	r := &renderer{cfg: cfg, tree: tree, mode: mode}
	return r.sentence(sentence, cfg.base)
}

func (r *renderer) sentence(sentence *model.Sentence, path values.Path) []Node {
	if sentence == nil {
		return nil
	}
	out := r.template(sentence.Template, sentence, path, true)
	for _, block := range sentence.Blocks {
		if !r.gateHolds(block.When, path) {
			continue
		}
		out = join(out, r.template(block.Template, sentence, path, false))
	}
	for _, section := range sentence.Sections {
		if !r.gateHolds(section.When, path) {
			continue
		}
		body := r.template(section.Template, sentence, path, false)
		if title := strings.TrimSpace(section.Title); title != "" {
			body = append([]Node{{Kind: NodeText, Text: title + ": "}}, body...)
		}
		out = join(out, body)
	}
	for idx, child := range sentence.Children {
		out = join(out, r.sentence(child, path.Append(values.Child(idx))))
	}
	return out
}

func (r *renderer) template(template string, sentence *model.Sentence, path values.Path, expand bool) []Node {
	var out []Node
	for _, token := range Tokenize(template) {
		if token.Kind == TokenText {
			out = append(out, Node{Kind: NodeText, Text: token.Text})
			continue
		}
		field, ok := sentence.Field(token.FieldID)
		if !ok {
			continue
		}
		fieldPath := path.Append(values.Field(token.FieldID))
		if r.cfg.root != nil && !visibility.IsVisible(r.cfg.root, r.tree, fieldPath) {
			continue
		}
		value, _ := values.Lookup(r.tree, fieldPath)
		out = append(out, r.field(field, token.FieldID, fieldPath, value))
		if expand {
			out = append(out, r.expansions(field, fieldPath, value)...)
		}
	}
	return out
}

func (r *renderer) field(field *model.Field, id string, path values.Path, value any) Node {
	node := Node{
		FieldID:  id,
		Path:     path.String(),
		Editable: r.mode == ModeInteractive,
	}
	if values.IsEmpty(value) {
		node.Kind = NodePlaceholder
		if r.mode == ModeInteractive {
			node.Text = QuestionLabel(field)
		} else {
			node.Text = PreviewPlaceholder(field)
		}
		return node
	}
	node.Kind = NodeValue
	node.Text = DisplayValue(field, value)
	return node
}

// expansions renders the sentences selected by value. A single selection is
// appended inline; several are introduced with ": " and listed per member.
func (r *renderer) expansions(field *model.Field, path values.Path, value any) []Node {
	type selected struct {
		key      string
		sentence *model.Sentence
	}
	var active []selected
	for _, key := range values.ActiveKeys(value) {
		if sentence, ok := field.Expansion(key); ok {
			active = append(active, selected{key: key, sentence: sentence})
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return inline(r.sentence(active[0].sentence, path.Append(values.Expansion(active[0].key))))
	}
	items := make([]ListItem, 0, len(active))
	lines := make([]string, 0, len(active))
	for _, sel := range active {
		item := ListItem{
			Key:   sel.key,
			Label: displayScalar(field, sel.key),
			Nodes: r.sentence(sel.sentence, path.Append(values.Expansion(sel.key))),
		}
		items = append(items, item)
		lines = append(lines, item.Text())
	}
	return []Node{
		{Kind: NodeText, Text: ": "},
		{Kind: NodeList, Text: strings.Join(lines, "; "), Path: path.String(), Items: items},
	}
}

// join appends next to out with a single space between them unless the
// boundary already has whitespace or next opens with punctuation.
func join(out, next []Node) []Node {
	if len(next) == 0 {
		return out
	}
	if len(out) > 0 && spaced(lastRune(out), firstRune(next)) {
		out = append(out, Node{Kind: NodeText, Text: " "})
	}
	return append(out, next...)
}

// inline prepares an expansion rendered right after its field's value.
func inline(next []Node) []Node {
	if len(next) == 0 {
		return nil
	}
	if !spaced('x', firstRune(next)) {
		return next
	}
	return append([]Node{{Kind: NodeText, Text: " "}}, next...)
}

func spaced(last, first rune) bool {
	if last == 0 || first == 0 || unicode.IsSpace(last) || unicode.IsSpace(first) {
		return false
	}
	return !strings.ContainsRune(",.;:!?)", first)
}

func firstRune(nodes []Node) rune {
	for _, node := range nodes {
		if node.Text != "" {
			r, _ := utf8.DecodeRuneInString(node.Text)
			return r
		}
	}
	return 0
}

func lastRune(nodes []Node) rune {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Text != "" {
			r, _ := utf8.DecodeLastRuneInString(nodes[i].Text)
			return r
		}
	}
	return 0
}

// PlainText concatenates the text of nodes.
func PlainText(nodes []Node) string {
	var b strings.Builder
	for _, node := range nodes {
		b.WriteString(node.Text)
	}
	return b.String()
}
