package dom

import "strings"

// Action is what a rule does to a matching element.
type Action int

const (
	// ActionRemove drops the element and its subtree.
	ActionRemove Action = iota
	// ActionStripClasses removes a set of class tokens.
	ActionStripClasses
)

// Rule applies an action to every element whose id starts with Prefix.
type Rule struct {
	Prefix  string
	Action  Action
	Classes []string
}

const (
	selectionClasses = "outline-input ring-2 ring-offset-2 ring-ring"
	paddingClasses   = "pl-2 md:pl-4"
	wrapperClasses   = "px-2"
)

// RootClass is the layout applied to the root of a sanitized container.
const RootClass = "flex flex-col"

// Remove builds a removal rule.
func Remove(prefix string) Rule {
	return Rule{Prefix: prefix, Action: ActionRemove}
}

// StripClasses builds a class stripping rule from a space separated list.
func StripClasses(prefix, classes string) Rule {
	return Rule{Prefix: prefix, Action: ActionStripClasses, Classes: strings.Fields(classes)}
}

// ContainerRules are applied to the whole surface before PDF export.
func ContainerRules() []Rule {
	return []Rule{
		StripClasses("page-base-", selectionClasses),
		StripClasses("content-image-", selectionClasses),
		StripClasses("carousel-item-", paddingClasses),
		StripClasses("slide-wrapper-", wrapperClasses),
		Remove("add-slide-"),
		Remove("add-element-"),
		Remove("element-menubar-"),
		Remove("slide-menubar-"),
	}
}

// SlideRules are applied to a single slide before JPEG export.
func SlideRules() []Rule {
	return []Rule{
		StripClasses("page-base-", selectionClasses),
		StripClasses("content-image-", selectionClasses),
		Remove("element-menubar-"),
		Remove("slide-menubar-"),
	}
}

func (r Rule) matches(id string) bool {
	return r.Prefix != "" && id != "" && strings.HasPrefix(id, r.Prefix)
}
