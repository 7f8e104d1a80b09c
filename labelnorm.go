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

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// labelFold is shared across all normalized-label comparisons.
// language.Und (the undetermined locale) gives locale-independent folding,
// which is what link label matching requires: "ité" and "ITÉ" must match
// regardless of the reader's locale.
var labelFold = cases.Fold(language.Und)

// transformLinkReferenceSpan computes the normalized form of a link
// reference label (the text between the brackets, not including them):
// runs of ASCII whitespace are collapsed to a single space, leading and
// trailing whitespace is stripped, and the result is case-folded.
// nodes provides the surrounding context so the span can be walked even
// when it crosses a line boundary within the block.
func transformLinkReferenceSpan(source []byte, nodes []*Inline, span Span) string {
	if !span.IsValid() {
		return ""
	}
	var sb strings.Builder
	r := newInlineByteReader(source, nodes, span.Start)
	lastWasSpace := true // treat the start as if preceded by space, so leading space is dropped
	for r.pos < span.End && !r.atEOF() {
		c := r.current()
		if isUnicodeWhitespaceByte(r.source, r.pos) {
			if !lastWasSpace {
				sb.WriteByte(' ')
			}
			lastWasSpace = true
		} else {
			sb.WriteByte(c)
			lastWasSpace = false
		}
		if !r.next() {
			break
		}
	}
	s := strings.TrimRight(sb.String(), " ")
	return labelFold.String(s)
}

// isUnicodeWhitespaceByte reports whether the byte at pos begins a
// whitespace character, for the ASCII subset that link labels matter for.
// Full Unicode whitespace beyond ASCII is rare in labels and handled by
// the case folder treating it as ordinary text, matching common
// implementations' practical behavior.
func isUnicodeWhitespaceByte(source []byte, pos int) bool {
	switch source[pos] {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

// nodeIndexForPosition returns the index into nodes of the node whose
// span contains pos, or the index of the first node starting at or after
// pos. It returns -1 if pos is past the end of the last node.
func nodeIndexForPosition(nodes []*Inline, pos int) int {
	for i, n := range nodes {
		if pos < n.span.End {
			return i
		}
	}
	return -1
}

// collectLinkLabelText decodes backslash escapes and character references
// in [r.pos, end) and appends the resulting text/character-reference
// children to dst.
func collectLinkLabelText(dst *Inline, r *inlineByteReader, end int) {
	appendDecodedChildren(dst, r, end)
}

// collectLinkAttributeText decodes backslash escapes and character
// references in [r.pos, end) and appends the resulting text/character-
// reference children to dst. It is used for link destinations and titles.
func collectLinkAttributeText(dst *Inline, r *inlineByteReader, end int) {
	appendDecodedChildren(dst, r, end)
}

// appendDecodedChildren scans [r.pos, end) for backslash escapes and
// character references, appending a run of children to dst that
// reproduce the decoded text when concatenated via [*Inline.Text].
// Plain runs are represented directly as spans into source (no copying);
// an escaped character is represented by a span covering only the
// escaped character itself (excluding the backslash);
// a character reference is represented by a [CharacterReferenceKind]
// child spanning the reference as written, decoded lazily by
// [*Inline.Text].
func appendDecodedChildren(dst *Inline, r *inlineByteReader, end int) {
	runStart := r.pos
	flushRun := func(upTo int) {
		if upTo > runStart {
			dst.children = append(dst.children, &Inline{
				kind: TextKind,
				span: Span{Start: runStart, End: upTo},
			})
		}
	}
	for r.pos < end && !r.atEOF() {
		switch {
		case r.current() == '\\' && r.pos+1 < end && isEscapableASCIIPunctuation(peekNext(r)):
			flushRun(r.pos)
			r.next() // consume backslash
			escStart := r.pos
			r.next() // consume escaped character
			dst.children = append(dst.children, &Inline{
				kind: TextKind,
				span: Span{Start: escStart, End: escStart + 1},
			})
			runStart = r.pos
		case r.current() == '&':
			if span, ok := scanCharacterReference(r, end); ok {
				flushRun(span.Start)
				dst.children = append(dst.children, &Inline{
					kind: CharacterReferenceKind,
					span: span,
				})
				runStart = r.pos
				continue
			}
			r.next()
		default:
			r.next()
		}
	}
	flushRun(min(r.pos, end))
}

// peekNext returns the byte immediately after the reader's current
// position without advancing, or 0 if there is none in the current node.
func peekNext(r *inlineByteReader) byte {
	rest := r.remainingNodeBytes()
	if len(rest) < 2 {
		return 0
	}
	return rest[1]
}

func isEscapableASCIIPunctuation(c byte) bool {
	switch c {
	case '!', '"', '#', '$', '%', '&', '\'', '(', ')', '*', '+', ',', '-', '.', '/',
		':', ';', '<', '=', '>', '?', '@', '[', '\\', ']', '^', '_', '`', '{', '|', '}', '~':
		return true
	default:
		return false
	}
}

// scanCharacterReference attempts to match a character reference
// (named or numeric) starting at the reader's current position ('&')
// and not extending past end. On success it advances r past the
// reference and returns its span; otherwise r is left unmoved.
func scanCharacterReference(r *inlineByteReader, end int) (Span, bool) {
	start := r.pos
	const maxLen = 34 // "&CounterClockwiseContourIntegral;" plus margin
	cloned := *r
	if !cloned.next() { // consume '&'
		return Span{}, false
	}
	n := 1
	for n < maxLen && cloned.pos < end && !cloned.atEOF() {
		c := cloned.current()
		n++
		if c == ';' {
			cloned.next()
			candidate := collectRange(r.source, r, start, cloned.pos)
			if isValidCharacterReference(candidate) {
				*r = cloned
				return Span{Start: start, End: cloned.pos}, true
			}
			return Span{}, false
		}
		if !isASCIIAlphanumeric(c) && c != '#' {
			return Span{}, false
		}
		cloned.next()
	}
	return Span{}, false
}

// collectRange extracts the literal bytes of a span that may cross node
// boundaries, by walking a fresh reader across it.
func collectRange(source []byte, template *inlineByteReader, start, end int) []byte {
	buf := make([]byte, 0, end-start)
	rr := newInlineByteReader(source, template.nodes, start)
	for rr.pos < end && !rr.atEOF() {
		buf = append(buf, rr.current())
		if !rr.next() {
			break
		}
	}
	return buf
}

func isASCIIAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isValidCharacterReference reports whether candidate (including the
// leading '&' and trailing ';') is a recognized HTML5 character
// reference, named or numeric.
func isValidCharacterReference(candidate []byte) bool {
	decoded := html.UnescapeString(string(candidate))
	return decoded != string(candidate)
}

// decodeCharacterReferenceSpan decodes a [CharacterReferenceKind] span
// (the literal "&...;" text) into the Unicode text it represents.
func decodeCharacterReferenceSpan(source []byte, span Span) string {
	return html.UnescapeString(string(spanSlice(source, span)))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
