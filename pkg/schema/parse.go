package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Parse decodes a JSON or YAML schema document. A document either lists its
// modules under a top-level "modules" key or is itself a single module.
// Unknown keys, field types, rule kinds and gate operators are rejected.
func Parse(data []byte, source string) ([]*model.Module, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("schema: file %s is empty", source)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return nil, fmt.Errorf("schema: parse %s: invalid JSON or YAML: %w", source, yamlErr)
		}
	}
	root, ok := values.StringMap(normalizeKeys(raw))
	if !ok {
		return nil, fmt.Errorf("schema: parse %s: document must be an object", source)
	}

	var files []moduleFile
	if list, declared := root["modules"]; declared {
		if err := decode(list, &files); err != nil {
			return nil, fmt.Errorf("schema: decode %s: %w", source, err)
		}
	} else {
		var single moduleFile
		if err := decode(root, &single); err != nil {
			return nil, fmt.Errorf("schema: decode %s: %w", source, err)
		}
		files = []moduleFile{single}
	}

	out := make([]*model.Module, 0, len(files))
	for i, file := range files {
		id := strings.TrimSpace(file.ID)
		if id == "" {
			return nil, fmt.Errorf("schema: %s: module #%d has no id", source, i)
		}
		c := converter{source: source, trail: []string{"module " + quote(id)}}
		module, err := c.module(file)
		if err != nil {
			return nil, err
		}
		out = append(out, module)
	}
	return out, nil
}

type moduleFile struct {
	ID          string          `mapstructure:"id"`
	Title       string          `mapstructure:"title"`
	Description string          `mapstructure:"description"`
	Sentences   []sentenceFile  `mapstructure:"sentences"`
	Submodules  []submoduleFile `mapstructure:"submodules"`
}

type submoduleFile struct {
	ID          string         `mapstructure:"id"`
	Title       string         `mapstructure:"title"`
	Description string         `mapstructure:"description"`
	Sentences   []sentenceFile `mapstructure:"sentences"`
}

type sentenceFile struct {
	ID       string               `mapstructure:"id"`
	Template string               `mapstructure:"template"`
	Fields   map[string]fieldFile `mapstructure:"fields"`
	Children []sentenceFile       `mapstructure:"children"`
	Blocks   []blockFile          `mapstructure:"blocks"`
	Sections []sectionFile        `mapstructure:"sections"`
}

type fieldFile struct {
	ID          string                  `mapstructure:"id"`
	Type        string                  `mapstructure:"type"`
	Label       string                  `mapstructure:"label"`
	Placeholder string                  `mapstructure:"placeholder"`
	Help        string                  `mapstructure:"help"`
	Options     []optionFile            `mapstructure:"options"`
	Rules       []ruleFile              `mapstructure:"rules"`
	Conditions  []conditionFile         `mapstructure:"conditions"`
	Expansions  map[string]sentenceFile `mapstructure:"expansions"`
}

type optionFile struct {
	Value string `mapstructure:"value"`
	Label string `mapstructure:"label"`
}

type ruleFile struct {
	Kind    string   `mapstructure:"kind"`
	Value   *float64 `mapstructure:"value"`
	Pattern string   `mapstructure:"pattern"`
	Custom  string   `mapstructure:"custom"`
	Message string   `mapstructure:"message"`
}

type conditionFile struct {
	SourceField  string   `mapstructure:"sourceField"`
	TriggerValue any      `mapstructure:"triggerValue"`
	Show         []string `mapstructure:"show"`
	Hide         []string `mapstructure:"hide"`
}

type gateFile struct {
	Field    string `mapstructure:"field"`
	Value    any    `mapstructure:"value"`
	Operator string `mapstructure:"operator"`
	Expr     string `mapstructure:"expr"`
}

type blockFile struct {
	ID       string   `mapstructure:"id"`
	When     gateFile `mapstructure:"when"`
	Template string   `mapstructure:"template"`
}

type sectionFile struct {
	ID       string   `mapstructure:"id"`
	Title    string   `mapstructure:"title"`
	When     gateFile `mapstructure:"when"`
	Template string   `mapstructure:"template"`
}

var (
	optionType   = reflect.TypeOf(optionFile{})
	ruleType     = reflect.TypeOf(ruleFile{})
	sentenceType = reflect.TypeOf(sentenceFile{})
)

func decode(input, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			shorthandOption,
			shorthandRule,
			shorthandSentence,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// shorthandOption accepts a bare scalar as an option whose label is derived
// later from the value.
func shorthandOption(from, to reflect.Type, data any) (any, error) {
	if to != optionType || from.Kind() == reflect.Map {
		return data, nil
	}
	return map[string]any{"value": values.Key(data)}, nil
}

// shorthandRule accepts "required" as well as single-key maps such as
// {min: 3} or {pattern: "^x", message: "..."}.
func shorthandRule(from, to reflect.Type, data any) (any, error) {
	if to != ruleType {
		return data, nil
	}
	if from.Kind() == reflect.String {
		return map[string]any{"kind": data}, nil
	}
	raw, ok := values.StringMap(data)
	if !ok {
		return data, nil
	}
	if _, explicit := raw["kind"]; explicit {
		return data, nil
	}
	out := map[string]any{}
	for key, value := range raw {
		switch model.RuleKind(key) {
		case model.RuleRequired:
			out["kind"] = key
		case model.RuleMin, model.RuleMax:
			out["kind"] = key
			out["value"] = value
		case model.RulePattern:
			out["kind"] = key
			out["pattern"] = value
		case model.RuleCustom:
			out["kind"] = key
			out["custom"] = value
		default:
			out[key] = value
		}
	}
	return out, nil
}

// shorthandSentence accepts a bare template string wherever a sentence is
// expected.
func shorthandSentence(from, to reflect.Type, data any) (any, error) {
	if to != sentenceType || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]any{"template": data}, nil
}

// normalizeKeys rewrites YAML maps with non-string keys (`true:`, `3:`) into
// map[string]any recursively.
func normalizeKeys(value any) any {
	if m, ok := values.StringMap(value); ok {
		out := make(map[string]any, len(m))
		for key, nested := range m {
			out[key] = normalizeKeys(nested)
		}
		return out
	}
	if items, ok := value.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = normalizeKeys(item)
		}
		return out
	}
	return value
}

type converter struct {
	source string
	trail  []string
}

func (c converter) at(segment string) converter {
	trail := append(append([]string(nil), c.trail...), segment)
	return converter{source: c.source, trail: trail}
}

func (c converter) errorf(format string, args ...any) error {
	return fmt.Errorf("schema: %s: %s: %s", c.source, strings.Join(c.trail, " > "), fmt.Sprintf(format, args...))
}

func (c converter) module(file moduleFile) (*model.Module, error) {
	module := &model.Module{
		ID:          strings.TrimSpace(file.ID),
		Title:       file.Title,
		Description: file.Description,
	}
	sentences, err := c.sentences(file.Sentences)
	if err != nil {
		return nil, err
	}
	module.Sentences = sentences
	for _, sub := range file.Submodules {
		id := strings.TrimSpace(sub.ID)
		if id == "" {
			return nil, c.errorf("submodule has no id")
		}
		sentences, err := c.at("submodule "+quote(id)).sentences(sub.Sentences)
		if err != nil {
			return nil, err
		}
		module.Submodules = append(module.Submodules, model.Submodule{
			ID:          id,
			Title:       sub.Title,
			Description: sub.Description,
			Sentences:   sentences,
		})
	}
	return module, nil
}

func (c converter) sentences(files []sentenceFile) ([]*model.Sentence, error) {
	if len(files) == 0 {
		return nil, nil
	}
	out := make([]*model.Sentence, 0, len(files))
	for i, file := range files {
		label := fmt.Sprintf("sentence #%d", i)
		if file.ID != "" {
			label = "sentence " + quote(file.ID)
		}
		sentence, err := c.at(label).sentence(file)
		if err != nil {
			return nil, err
		}
		out = append(out, sentence)
	}
	return out, nil
}

func (c converter) sentence(file sentenceFile) (*model.Sentence, error) {
	sentence := &model.Sentence{ID: file.ID, Template: file.Template}
	if len(file.Fields) > 0 {
		sentence.Fields = make(map[string]*model.Field, len(file.Fields))
		for key, raw := range file.Fields {
			id := strings.TrimSpace(key)
			if id == "" {
				return nil, c.errorf("field with empty id")
			}
			field, err := c.at("field "+quote(id)).field(id, raw)
			if err != nil {
				return nil, err
			}
			sentence.Fields[id] = field
		}
	}
	for i, block := range file.Blocks {
		gate, err := c.at(fmt.Sprintf("block #%d", i)).gate(block.When)
		if err != nil {
			return nil, err
		}
		sentence.Blocks = append(sentence.Blocks, model.ContentBlock{ID: block.ID, When: gate, Template: block.Template})
	}
	for i, section := range file.Sections {
		gate, err := c.at(fmt.Sprintf("section #%d", i)).gate(section.When)
		if err != nil {
			return nil, err
		}
		sentence.Sections = append(sentence.Sections, model.Section{
			ID:       section.ID,
			Title:    section.Title,
			When:     gate,
			Template: section.Template,
		})
	}
	for i, child := range file.Children {
		converted, err := c.at(fmt.Sprintf("child #%d", i)).sentence(child)
		if err != nil {
			return nil, err
		}
		sentence.Children = append(sentence.Children, converted)
	}
	return sentence, nil
}

func (c converter) field(id string, file fieldFile) (*model.Field, error) {
	fieldType := model.FieldType(strings.ToLower(strings.TrimSpace(file.Type)))
	if fieldType == "" {
		fieldType = model.FieldTypeText
	}
	if !fieldType.Valid() {
		return nil, c.errorf("unknown field type %q", file.Type)
	}
	field := &model.Field{
		ID:          strings.TrimSpace(file.ID),
		Type:        fieldType,
		Label:       file.Label,
		Placeholder: file.Placeholder,
		Help:        file.Help,
	}
	if field.ID == "" {
		field.ID = id
	}
	for _, option := range file.Options {
		field.Options = append(field.Options, model.Option{Value: option.Value, Label: option.Label})
	}
	for _, raw := range file.Rules {
		rule, err := c.rule(raw)
		if err != nil {
			return nil, err
		}
		field.Rules = append(field.Rules, rule)
	}
	for _, cond := range file.Conditions {
		field.Conditions = append(field.Conditions, model.Condition{
			SourceField:  strings.TrimSpace(cond.SourceField),
			TriggerValue: values.Normalize(cond.TriggerValue),
			Show:         cond.Show,
			Hide:         cond.Hide,
		})
	}
	if len(file.Expansions) > 0 {
		field.Expansions = make(map[string]*model.Sentence, len(file.Expansions))
		for key, raw := range file.Expansions {
			sentence, err := c.at("expansion "+quote(key)).sentence(raw)
			if err != nil {
				return nil, err
			}
			field.Expansions[key] = sentence
		}
	}
	return field, nil
}

func (c converter) rule(file ruleFile) (model.Rule, error) {
	kind := model.RuleKind(strings.ToLower(strings.TrimSpace(file.Kind)))
	if !kind.Valid() {
		return model.Rule{}, c.errorf("unknown rule kind %q", file.Kind)
	}
	rule := model.Rule{Kind: kind, Pattern: file.Pattern, Custom: strings.TrimSpace(file.Custom), Message: file.Message}
	switch kind {
	case model.RuleMin, model.RuleMax:
		if file.Value == nil {
			return model.Rule{}, c.errorf("%s rule requires a value", kind)
		}
		rule.Value = *file.Value
	case model.RulePattern:
		if file.Pattern == "" {
			return model.Rule{}, c.errorf("pattern rule requires a pattern")
		}
	case model.RuleCustom:
		if rule.Custom == "" {
			return model.Rule{}, c.errorf("custom rule requires a predicate name")
		}
	}
	return rule, nil
}

func (c converter) gate(file gateFile) (model.Gate, error) {
	operator := model.Operator(strings.ToLower(strings.TrimSpace(file.Operator)))
	if !operator.Valid() {
		return model.Gate{}, c.errorf("unknown operator %q", file.Operator)
	}
	return model.Gate{
		Field:    strings.TrimSpace(file.Field),
		Value:    values.Normalize(file.Value),
		Operator: operator,
		Expr:     strings.TrimSpace(file.Expr),
	}, nil
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
