package model

// Decorator enriches a module after it has been loaded, before sessions start
// consuming it.
type Decorator interface {
	Decorate(*Module) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*Module) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(module *Module) error {
	return fn(module)
}

// DefaultLabels fills empty field labels and ids. Ids come from the map key
// that declares the field; labels from DefaultLabeler(id).
func DefaultLabels() Decorator {
	return DecoratorFunc(func(module *Module) error {
		WalkSentences(module, func(sentence *Sentence) {
			for id, field := range sentence.Fields {
				if field == nil {
					continue
				}
				if field.ID == "" {
					field.ID = id
				}
				if field.Label == "" {
					field.Label = DefaultLabeler(id)
				}
			}
		})
		return nil
	})
}

// WalkSentences visits every sentence of the module depth-first: module
// sentences, submodule sentences, then for each sentence its expansions
// (sorted by key) and children.
func WalkSentences(module *Module, visit func(*Sentence)) {
	if module == nil || visit == nil {
		return
	}
	for _, sentence := range module.Scope() {
		walkSentence(sentence, visit)
	}
}

func walkSentence(sentence *Sentence, visit func(*Sentence)) {
	if sentence == nil {
		return
	}
	visit(sentence)
	for _, id := range sentence.FieldIDs() {
		field := sentence.Fields[id]
		for _, key := range field.ExpansionKeys() {
			walkSentence(field.Expansions[key], visit)
		}
	}
	for _, child := range sentence.Children {
		walkSentence(child, visit)
	}
}
