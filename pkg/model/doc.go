// Package model defines the declarative schema the narrative engine consumes.
//
// A Module groups Sentences (optionally through Submodules). Each Sentence is
// a template such as "Data will be {identifiability_level}." plus the Fields
// its placeholders reference and an ordered list of unconditional child
// sentences. A Field may declare Expansions: nested sentences that become
// active only while the field's value equals the expansion key. Conditions on
// a field decide whether it is visible, and Rules decide whether its value is
// valid.
//
// Schemas are immutable once a session starts. Scope resolves field ids for a
// level of the tree: the module's top-level sentences share the root scope,
// child_<i> narrows to the i-th children and expansion_<key> narrows to the
// expanded sentence.
package model
