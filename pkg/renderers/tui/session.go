// Package tui fills a module interactively. A Session walks the module's
// sentences in reading order, prompts for every visible field through a
// PromptDriver and stores each valid answer in a form.Controller, so
// conditions and expansions react to answers as they are given.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/internal/logging"
	"github.com/goliatone/go-narrative/pkg/form"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

// DateLayout is the format date fields are entered and stored in.
const DateLayout = "2006-01-02"

const skipOption = "(skip)"

// Session prompts for the fields of one controller's module.
type Session struct {
	controller  *form.Controller
	driver      PromptDriver
	theme       Theme
	logger      *zap.Logger
	maxAttempts int
	pageSize    int

	prompted map[string]struct{}
}

// NewSession binds a session to controller. Without WithPromptDriver the
// survey driver writing to stdout is used.
func NewSession(controller *form.Controller, opts ...Option) (*Session, error) {
	if controller == nil {
		return nil, errors.New("tui: controller is required")
	}
	s := &Session{
		controller: controller,
		theme:      DefaultTheme,
		logger:     logging.NewNop(),
		pageSize:   10,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s, nil
}

// Run prompts for every visible field and returns the resulting values. The
// controller keeps the values on error, so a partially filled session can
// still be inspected.
func (s *Session) Run(ctx context.Context) (values.Tree, error) {
	if ctx == nil {
		return values.Tree{}, errors.New("tui: context is required")
	}
	module := s.controller.Module()
	s.prompted = make(map[string]struct{})
	s.logger.Debug("fill session started", zap.String("module", module.ID))

	if title := strings.TrimSpace(module.Title); title != "" {
		if err := s.driver.Info(ctx, s.theme.HeadingPrefix+title); err != nil {
			return s.controller.Values(), err
		}
	}
	for _, sentence := range module.Sentences {
		if err := s.sentence(ctx, sentence, nil); err != nil {
			return s.controller.Values(), err
		}
	}
	for _, sub := range module.Submodules {
		if title := strings.TrimSpace(sub.Title); title != "" {
			if err := s.driver.Info(ctx, s.theme.HeadingPrefix+title); err != nil {
				return s.controller.Values(), err
			}
		}
		for _, sentence := range sub.Sentences {
			if err := s.sentence(ctx, sentence, nil); err != nil {
				return s.controller.Values(), err
			}
		}
	}

	s.logger.Debug("fill session finished",
		zap.String("module", module.ID),
		zap.Int("prompts", len(s.prompted)),
		zap.Int("errors", s.controller.Errors().Count()),
	)
	return s.controller.Values(), nil
}

func (s *Session) sentence(ctx context.Context, sentence *model.Sentence, path values.Path) error {
	if sentence == nil {
		return nil
	}
	for _, id := range sentence.FieldIDs() {
		field, _ := sentence.Field(id)
		fieldPath := path.Append(values.Field(id))
		if err := s.field(ctx, field, fieldPath); err != nil {
			return err
		}
	}
	for idx, child := range sentence.Children {
		if err := s.sentence(ctx, child, path.Append(values.Child(idx))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) field(ctx context.Context, field *model.Field, path values.Path) error {
	key := path.String()
	if _, done := s.prompted[key]; done {
		return nil
	}
	if !s.controller.IsFieldVisible(path) {
		s.logger.Debug("skipped hidden field", zap.String("path", key))
		return nil
	}
	s.prompted[key] = struct{}{}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		answer, problem, err := s.ask(ctx, field, path)
		if err != nil {
			return err
		}
		var messages []string
		if problem != "" {
			messages = []string{problem}
		} else {
			for _, failure := range s.controller.Check(path, answer) {
				messages = append(messages, failure.Message)
			}
		}
		if len(messages) == 0 {
			s.controller.UpdateValue(path, answer)
			break
		}
		for _, msg := range messages {
			if err := s.driver.Info(ctx, s.theme.ErrorPrefix+field.DisplayLabel()+": "+msg); err != nil {
				return err
			}
		}
		s.logger.Debug("answer rejected", zap.String("path", key), zap.Strings("messages", messages))
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, key)
		}
	}

	current, _ := s.controller.Value(path)
	for _, active := range values.ActiveKeys(current) {
		expansion, ok := field.Expansion(active)
		if !ok {
			continue
		}
		if err := s.sentence(ctx, expansion, path.Append(values.Expansion(active))); err != nil {
			return err
		}
	}
	return nil
}

// ask prompts once. problem reports an answer that could not be parsed into
// the field's type; rule failures are checked by the caller.
func (s *Session) ask(ctx context.Context, field *model.Field, path values.Path) (answer any, problem string, err error) {
	current, _ := s.controller.Value(path)
	label := field.DisplayLabel()
	help := strings.TrimSpace(field.Help)

	switch field.Type {
	case model.FieldTypeNumber:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   label,
			Default:   scalarDefault(current),
			Help:      help,
			Validator: numberProblem,
		})
		if err != nil {
			return nil, "", err
		}
		if problem := errText(numberProblem(raw)); problem != "" {
			return nil, problem, nil
		}
		return parseNumber(raw), "", nil

	case model.FieldTypeDate:
		if help == "" {
			help = "Format: YYYY-MM-DD"
		}
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   label,
			Default:   scalarDefault(current),
			Help:      help,
			Validator: dateProblem,
		})
		if err != nil {
			return nil, "", err
		}
		if problem := errText(dateProblem(raw)); problem != "" {
			return nil, problem, nil
		}
		return optionalString(strings.TrimSpace(raw)), "", nil

	case model.FieldTypeBoolean:
		def, _ := current.(bool)
		yes, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})
		if err != nil {
			return nil, "", err
		}
		return yes, "", nil

	case model.FieldTypeSelect:
		return s.selectOne(ctx, field, label, help, current)

	case model.FieldTypeMultiSelect:
		return s.selectMany(ctx, field, label, help, current)

	case model.FieldTypeTextarea:
		raw, err := s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: scalarDefault(current), Help: help})
		if err != nil {
			return nil, "", err
		}
		return optionalString(raw), "", nil

	default:
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Default: scalarDefault(current), Help: help})
		if err != nil {
			return nil, "", err
		}
		return optionalString(raw), "", nil
	}
}

func (s *Session) selectOne(ctx context.Context, field *model.Field, label, help string, current any) (any, string, error) {
	options := optionLabels(field)
	if !required(field) {
		options = append(options, skipOption)
	}
	defaultIdx := -1
	if current != nil {
		defaultIdx = optionIndex(field, values.Key(current))
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: defaultIdx,
		Help:         help,
		PageSize:     s.pageSize,
	})
	if err != nil {
		return nil, "", err
	}
	switch {
	case idx >= 0 && idx < len(field.Options):
		return field.Options[idx].Value, "", nil
	case idx >= 0 && idx < len(options):
		return nil, "", nil
	default:
		return nil, "choose one of the listed options", nil
	}
}

func (s *Session) selectMany(ctx context.Context, field *model.Field, label, help string, current any) (any, string, error) {
	var defaults []int
	for _, key := range values.ActiveKeys(current) {
		if idx := optionIndex(field, key); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	picked, err := s.driver.MultiSelect(ctx, SelectConfig{
		Message:  label,
		Options:  optionLabels(field),
		Defaults: defaults,
		Help:     help,
		PageSize: s.pageSize,
	})
	if err != nil {
		return nil, "", err
	}
	out := make([]any, 0, len(picked))
	for _, idx := range picked {
		if idx < 0 || idx >= len(field.Options) {
			return nil, "choose from the listed options", nil
		}
		out = append(out, field.Options[idx].Value)
	}
	return out, "", nil
}

func optionLabels(field *model.Field) []string {
	out := make([]string, len(field.Options))
	for i, option := range field.Options {
		out[i] = field.OptionLabel(option.Value)
	}
	return out
}

func optionIndex(field *model.Field, value string) int {
	for i, option := range field.Options {
		if option.Value == value {
			return i
		}
	}
	return -1
}

func required(field *model.Field) bool {
	for _, rule := range field.Rules {
		if rule.Kind == model.RuleRequired {
			return true
		}
	}
	return false
}

func scalarDefault(current any) string {
	if values.IsEmpty(current) {
		return ""
	}
	return values.Key(current)
}

// optionalString stores blank answers as unanswered.
func optionalString(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return raw
}

func numberProblem(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}

func parseNumber(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, _ := strconv.ParseFloat(raw, 64)
	return n
}

func dateProblem(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return fmt.Errorf("%q is not a date (YYYY-MM-DD)", raw)
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Failures is a convenience for callers printing the remaining problems
// after a session.
func (s *Session) Failures() validation.Errors {
	return s.controller.Errors()
}
