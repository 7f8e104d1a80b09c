// Copyright 2024 The Commonmark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package commonmark

import "strings"

// Inline represents Markdown content elements like text, links, or emphasis.
type Inline struct {
	kind     InlineKind
	span     Span
	children []*Inline

	// indent is valid for [IndentKind]:
	// the number of columns of whitespace the node represents.
	indent int

	// ref is valid for [LinkLabelKind] (the normalized label of a
	// link reference definition) and for [LinkKind]/[ImageKind] in
	// reference form (the normalized label being referenced).
	// It is empty for inline-form links and images.
	ref string

	// dest and title are valid for [LinkKind]/[ImageKind] in inline form.
	// They are nil for reference-form links and images,
	// in which case the destination/title come from the reference map via ref.
	dest  *Inline
	title *Inline
}

// Kind returns the type of inline node
// or zero if the node is nil.
func (inline *Inline) Kind() InlineKind {
	if inline == nil {
		return 0
	}
	return inline.kind
}

// Span returns the position information relative to the [RootBlock]'s Source field.
func (inline *Inline) Span() Span {
	if inline == nil {
		return NullSpan()
	}
	return inline.span
}

// IndentWidth returns the number of spaces the [IndentKind] span represents,
// or zero if the node is nil or of a different kind.
func (inline *Inline) IndentWidth() int {
	if inline == nil {
		return 0
	}
	return inline.indent
}

// LinkReference returns the normalized label for a [LinkLabelKind] node
// or a reference-form [LinkKind]/[ImageKind] node,
// or the empty string otherwise.
func (inline *Inline) LinkReference() string {
	if inline == nil {
		return ""
	}
	return inline.ref
}

// LinkDestination returns the destination node for an inline-form
// [LinkKind]/[ImageKind] node, or nil otherwise.
func (inline *Inline) LinkDestination() *Inline {
	if inline == nil {
		return nil
	}
	return inline.dest
}

// LinkTitle returns the title node for an inline-form
// [LinkKind]/[ImageKind] node, or nil if the node is nil or has no title.
func (inline *Inline) LinkTitle() *Inline {
	if inline == nil {
		return nil
	}
	return inline.title
}

// Children returns the children of the node.
// Calling Children on nil returns a nil slice.
func (inline *Inline) Children() []*Inline {
	if inline == nil {
		return nil
	}
	return inline.children
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on nil returns 0.
func (inline *Inline) ChildCount() int {
	if inline == nil {
		return 0
	}
	return len(inline.children)
}

// Child returns the i'th child of the node.
func (inline *Inline) Child(i int) *Inline {
	return inline.children[i]
}

// Text returns the literal text the node represents,
// decoded into its final form (i.e. after entity decoding
// and backslash unescaping have been applied by [*InlineParser.Rewrite]).
// For nodes with children, Text concatenates the text of each child.
func (inline *Inline) Text(source []byte) string {
	if inline == nil {
		return ""
	}
	if len(inline.children) == 0 {
		if inline.kind == CharacterReferenceKind {
			return decodeCharacterReferenceSpan(source, inline.span)
		}
		return string(spanSlice(source, inline.span))
	}
	sb := new(strings.Builder)
	for _, c := range inline.children {
		sb.WriteString(c.Text(source))
	}
	return sb.String()
}

// InlineKind is an enumeration of values returned by [*Inline.Kind].
type InlineKind uint16

const (
	// TextKind is used for literal text.
	TextKind InlineKind = 1 + iota
	// SoftLineBreakKind is used for a line break that does not result in a
	// <br> element.
	SoftLineBreakKind
	// HardLineBreakKind is used for a line break that results in a <br> element.
	HardLineBreakKind
	// IndentKind is used for leading whitespace
	// stripped from a line within a block.
	IndentKind
	// CharacterReferenceKind is used for a decoded HTML entity or numeric
	// character reference.
	CharacterReferenceKind
	// InfoStringKind is used for the info string of a fenced code block.
	InfoStringKind
	// EmphasisKind is used for a run of text wrapped in "*" or "_" emphasis.
	EmphasisKind
	// StrongKind is used for a run of text wrapped in "**" or "__" strong emphasis.
	StrongKind
	// LinkKind is used for a hyperlink.
	LinkKind
	// ImageKind is used for an image.
	ImageKind
	// LinkDestinationKind is used for the destination of a link or image.
	LinkDestinationKind
	// LinkTitleKind is used for the title of a link or image.
	LinkTitleKind
	// LinkLabelKind is used for the label of a link reference definition.
	LinkLabelKind
	// CodeSpanKind is used for an inline code span.
	CodeSpanKind
	// AutolinkKind is used for an autolink (`<scheme:...>` or `<local@domain>`).
	AutolinkKind
	// HTMLTagKind is used to group a run of adjacent [RawHTMLKind] inline
	// tags recognized during the inline scan, so the renderer can walk
	// them as a unit.
	HTMLTagKind
	// RawHTMLKind is used for raw HTML content, whether a block or inline.
	RawHTMLKind
	// UnparsedKind is used for inline text that has not been tokenized yet.
	UnparsedKind
)
