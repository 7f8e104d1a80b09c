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

	"golang.org/x/net/html/atom"
)

// parseHTMLTag parses one of the raw HTML constructs recognized by inline
// HTML and HTML block type 7: an open tag, closing tag, HTML comment,
// processing instruction, declaration, or CDATA section.
func parseHTMLTag(r *inlineByteReader) Span {
	if r.current() != '<' {
		return NullSpan()
	}
	start := r.pos
	if !r.next() || r.jumped() {
		return NullSpan()
	}
	var end int
	switch r.current() {
	case '?':
		end = scanProcessingInstruction(r)
	case '!':
		end = scanMarkupDeclaration(r)
	case '/':
		end = parseHTMLClosingTag(r)
	default:
		end = parseHTMLOpenTag(r)
	}
	if end < 0 {
		return NullSpan()
	}
	return Span{Start: start, End: end}
}

// scanProcessingInstruction scans a [processing instruction] body,
// starting with r on the '?' of the leading "<?", and returns the
// position just past the closing "?>" or -1 if the input is truncated.
//
// [processing instruction]: https://spec.commonmark.org/0.30/#processing-instruction
func scanProcessingInstruction(r *inlineByteReader) int {
	if !r.next() {
		return -1
	}
	for {
		if r.current() != '?' {
			if !r.next() {
				return -1
			}
			continue
		}
		if !r.next() || r.jumped() {
			return -1
		}
		if r.current() == '>' {
			end := r.pos + 1
			r.next()
			return end
		}
	}
}

// scanMarkupDeclaration dispatches among a [declaration], [HTML comment],
// and [CDATA section], all of which start with "<!"; r must be on the '!'
// of the leading "<!".
//
// [declaration]: https://spec.commonmark.org/0.30/#declaration
// [HTML comment]: https://spec.commonmark.org/0.30/#html-comment
// [CDATA section]: https://spec.commonmark.org/0.30/#cdata-section
func scanMarkupDeclaration(r *inlineByteReader) int {
	if !r.next() || r.jumped() {
		return -1
	}
	rest := r.remainingNodeBytes()
	switch {
	case len(rest) > 0 && isASCIILetter(rest[0]):
		return scanDeclaration(r)
	case hasBytePrefix(rest, "--"):
		return scanHTMLComment(r)
	case hasBytePrefix(rest, htmlTagCDATAPrefix):
		return scanCDATASection(r)
	default:
		return -1
	}
}

// htmlTagCDATAPrefix/htmlTagCDATASuffix name the CDATA section markers as
// they appear starting just after a tag's leading "<!" (distinct from
// inline_parse.go's cdataPrefix, which includes it).
const (
	htmlTagCDATAPrefix = "[CDATA["
	htmlTagCDATASuffix = "]]>"
)

func scanDeclaration(r *inlineByteReader) int {
	r.next()
	for r.current() != '>' {
		if !r.next() {
			return -1
		}
	}
	end := r.pos + 1
	r.next()
	return end
}

func scanHTMLComment(r *inlineByteReader) int {
	r.next()
	if !r.next() || r.jumped() {
		return -1
	}
	if textStart := r.remainingNodeBytes(); hasBytePrefix(textStart, ">") || hasBytePrefix(textStart, "->") {
		return -1
	}
	for {
		if hasBytePrefix(r.remainingNodeBytes(), "-->") {
			r.next()
			r.next()
			end := r.pos + 1
			r.next()
			return end
		}
		// Check for either "--" or "--->".
		if hasBytePrefix(r.remainingNodeBytes(), "--") {
			return -1
		}
		if !r.next() {
			return -1
		}
	}
}

func scanCDATASection(r *inlineByteReader) int {
	for i := 0; i < len(htmlTagCDATAPrefix); i++ {
		if !r.next() {
			return -1
		}
	}
	for {
		if hasBytePrefix(r.remainingNodeBytes(), htmlTagCDATASuffix) {
			for i := 0; i < len(htmlTagCDATASuffix)-1; i++ {
				r.next()
			}
			end := r.pos + 1
			r.next()
			return end
		}
		if !r.next() {
			return -1
		}
	}
}

// parseHTMLOpenTag parses an [open tag] sans the leading '<'.
//
// [open tag]: https://spec.commonmark.org/0.30/#open-tag
func parseHTMLOpenTag(r *inlineByteReader) (end int) {
	if !parseHTMLTagName(r) {
		return -1
	}
	for {
		beforeSpace := r.pos
		if !skipLinkSpace(r) {
			return -1
		}
		switch r.current() {
		case '/':
			if !r.next() || r.jumped() {
				return -1
			}
			if r.current() != '>' {
				return -1
			}
			fallthrough
		case '>':
			end = r.pos + 1
			r.next()
			return end
		}
		if r.pos == beforeSpace || !parseHTMLAttribute(r) {
			return -1
		}
	}
}

// parseHTMLClosingTag parses a [closing tag] sans the leading '<'.
//
// [closing tag]: https://spec.commonmark.org/0.30/#closing-tag
func parseHTMLClosingTag(r *inlineByteReader) (end int) {
	if r.current() != '/' {
		return -1
	}
	if !r.next() || r.jumped() {
		return -1
	}
	if !parseHTMLTagName(r) {
		return -1
	}
	if !skipLinkSpace(r) {
		return -1
	}
	if r.current() != '>' {
		return -1
	}
	end = r.pos + 1
	r.next()
	return end
}

func parseHTMLTagName(r *inlineByteReader) bool {
	if !isASCIILetter(r.current()) {
		return false
	}
	if !r.next() {
		return true
	}
	for isASCIILetter(r.current()) || isASCIIDigit(r.current()) || r.current() == '-' {
		if !r.next() {
			return true
		}
	}
	return true
}

func parseHTMLAttribute(r *inlineByteReader) bool {
	// Attribute name.
	if c := r.current(); !isASCIILetter(c) && c != '_' && c != ':' {
		return false
	}
	if !r.next() {
		// Only one character needed for name and value is optional.
		return true
	}
	for isASCIILetter(r.current()) || isASCIIDigit(r.current()) || strings.IndexByte("_.:-", r.current()) >= 0 {
		if !r.next() {
			return true
		}
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equal sign,
	// since it will cause future attributes to fail.
	prevState := *r
	if !skipLinkSpace(r) {
		*r = prevState
		return true
	}
	if r.current() != '=' {
		*r = prevState
		return true
	}
	if !r.next() {
		// Must have an attribute value following equals sign.
		return false
	}
	if !skipLinkSpace(r) {
		// Must have an attribute value following equals sign.
		return false
	}
	switch c := r.current(); {
	case c == '\'':
		if !r.next() {
			return false
		}
		for r.current() != '\'' {
			if !r.next() {
				return false
			}
		}
		r.next()
		return true
	case c == '"':
		if !r.next() {
			return false
		}
		for r.current() != '"' {
			if !r.next() {
				return false
			}
		}
		r.next()
		return true
	case isUnquotedAttributeValueChar(c):
		for r.next() && isUnquotedAttributeValueChar(r.current()) {
		}
		return true
	default:
		return false
	}
}

// htmlBlockCondition is one of the seven numbered [HTML block] start/end
// condition pairs: a block starting with a line matching startCondition
// continues until a later line matches endCondition (the same line, if
// the start condition already satisfies it), and may interrupt an open
// paragraph only if canInterruptParagraph is set.
//
// [HTML block]: https://spec.commonmark.org/0.30/#html-blocks
type htmlBlockCondition struct {
	startCondition        func(line []byte) bool
	endCondition          func(line []byte) bool
	canInterruptParagraph bool
}

// htmlBlockConditions holds the condition pairs in spec order (index i
// corresponds to "type i+1" in the CommonMark specification).
var htmlBlockConditions = []htmlBlockCondition{
	{
		startCondition:        startsScriptPreStyleOrTextarea,
		endCondition:          endsScriptPreStyleOrTextarea,
		canInterruptParagraph: true,
	},
	{
		startCondition:        hasHTMLCommentStart,
		endCondition:          hasHTMLCommentEnd,
		canInterruptParagraph: true,
	},
	{
		startCondition:        hasProcessingInstructionStart,
		endCondition:          hasProcessingInstructionEnd,
		canInterruptParagraph: true,
	},
	{
		startCondition:        hasDeclarationStart,
		endCondition:          hasDeclarationEnd,
		canInterruptParagraph: true,
	},
	{
		startCondition:        hasCDATAStart,
		endCondition:          hasCDATAEnd,
		canInterruptParagraph: true,
	},
	{
		startCondition:        startsBlockLevelTag,
		endCondition:          isBlankLine,
		canInterruptParagraph: true,
	},
	{
		startCondition:        startsCompleteTagLine,
		endCondition:          isBlankLine,
		canInterruptParagraph: false,
	},
}

// startsScriptPreStyleOrTextarea matches HTML block type 1's start condition:
// a line beginning with one of a fixed set of tag names.
func startsScriptPreStyleOrTextarea(line []byte) bool {
	for _, starter := range htmlBlockStarters1 {
		if hasCaseInsensitiveBytePrefix(line, starter) {
			rest := line[len(starter):]
			if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' {
				return true
			}
		}
	}
	return false
}

func endsScriptPreStyleOrTextarea(line []byte) bool {
	for _, ender := range htmlBlockEnders1 {
		if caseInsensitiveContains(line, ender) {
			return true
		}
	}
	return false
}

// hasHTMLCommentStart and hasHTMLCommentEnd implement HTML block type 2.
func hasHTMLCommentStart(line []byte) bool {
	return hasBytePrefix(line, "<!--")
}

func hasHTMLCommentEnd(line []byte) bool {
	return contains(line, "-->")
}

// hasProcessingInstructionStart and hasProcessingInstructionEnd implement HTML block type 3.
func hasProcessingInstructionStart(line []byte) bool {
	return hasBytePrefix(line, "<?")
}

func hasProcessingInstructionEnd(line []byte) bool {
	return contains(line, "?>")
}

// hasDeclarationStart and hasDeclarationEnd implement HTML block type 4.
func hasDeclarationStart(line []byte) bool {
	return hasBytePrefix(line, "<!") && len(line) >= 3 && isASCIILetter(line[2])
}

func hasDeclarationEnd(line []byte) bool {
	return contains(line, ">")
}

// hasCDATAStart and hasCDATAEnd implement HTML block type 5.
func hasCDATAStart(line []byte) bool {
	return hasBytePrefix(line, "<![CDATA[")
}

func hasCDATAEnd(line []byte) bool {
	return contains(line, "]]>")
}

// startsBlockLevelTag implements HTML block type 6's start condition:
// an opening or closing tag whose name is one of a fixed set of block-level
// elements, with nothing but whitespace or '>'/'/>' following the name.
func startsBlockLevelTag(line []byte) bool {
	switch {
	case hasBytePrefix(line, "</"):
		line = line[2:]
	case hasBytePrefix(line, "<"):
		line = line[1:]
	default:
		return false
	}
	for _, starter := range htmlBlockStarters6 {
		if hasCaseInsensitiveBytePrefix(line, starter) {
			rest := line[len(starter):]
			if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' || hasBytePrefix(rest, "/>") {
				return true
			}
		}
	}
	return false
}

// startsCompleteTagLine implements HTML block type 7's start condition:
// a complete open or closing tag for any element name, with nothing but
// whitespace remaining afterward on the line.
func startsCompleteTagLine(line []byte) bool {
	if !hasBytePrefix(line, "<") {
		return false
	}
	fakeInline := &Inline{
		kind: UnparsedKind,
		span: Span{Start: 1, End: len(line)},
	}
	nodes := []*Inline{fakeInline}
	r := newInlineByteReader(line, nodes, 1)
	if hasBytePrefix(line, "</") {
		if parseHTMLClosingTag(r) < 0 {
			return false
		}
	} else {
		if parseHTMLOpenTag(r) < 0 {
			return false
		}
	}
	return !skipLinkSpace(r)
}

func hasCaseInsensitiveBytePrefix(b []byte, prefix string) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, bb := range b[:len(prefix)] {
		if toLowerASCII(prefix[i]) != toLowerASCII(bb) {
			return false
		}
	}
	return true
}

func caseInsensitiveContains(b []byte, search string) bool {
	for i := 0; i <= len(b)-len(search); i++ {
		if hasCaseInsensitiveBytePrefix(b[i:], search) {
			return true
		}
	}
	return false
}

func toLowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

func isUnquotedAttributeValueChar(c byte) bool {
	return !isSpaceTabOrLineEnding(c) && strings.IndexByte("\"'=<>`", c) < 0
}

var (
	htmlBlockStarters1 = []string{
		"<pre",
		"<script",
		"<style",
		"<textarea",
	}
	htmlBlockEnders1 = []string{
		"</pre>",
		"</script>",
		"</style>",
		"</textarea>",
	}

	htmlBlockStarters6 = []string{
		atom.Address.String(),
		atom.Article.String(),
		atom.Aside.String(),
		atom.Base.String(),
		atom.Basefont.String(),
		atom.Blockquote.String(),
		atom.Body.String(),
		atom.Caption.String(),
		atom.Center.String(),
		atom.Col.String(),
		atom.Colgroup.String(),
		atom.Dd.String(),
		atom.Details.String(),
		atom.Dialog.String(),
		atom.Dir.String(),
		atom.Div.String(),
		atom.Dl.String(),
		atom.Dt.String(),
		atom.Fieldset.String(),
		atom.Figcaption.String(),
		atom.Figure.String(),
		atom.Footer.String(),
		atom.Form.String(),
		atom.Frame.String(),
		atom.Frameset.String(),
		atom.H1.String(),
		atom.H2.String(),
		atom.H3.String(),
		atom.H4.String(),
		atom.H5.String(),
		atom.H6.String(),
		atom.Head.String(),
		atom.Header.String(),
		atom.Hr.String(),
		atom.Html.String(),
		atom.Iframe.String(),
		atom.Legend.String(),
		atom.Li.String(),
		atom.Link.String(),
		atom.Main.String(),
		atom.Menu.String(),
		atom.Menuitem.String(),
		atom.Nav.String(),
		atom.Noframes.String(),
		atom.Ol.String(),
		atom.Optgroup.String(),
		atom.Option.String(),
		atom.P.String(),
		atom.Param.String(),
		atom.Section.String(),
		atom.Source.String(),
		atom.Summary.String(),
		atom.Table.String(),
		atom.Tbody.String(),
		atom.Td.String(),
		atom.Tfoot.String(),
		atom.Th.String(),
		atom.Thead.String(),
		atom.Title.String(),
		atom.Tr.String(),
		atom.Track.String(),
		atom.Ul.String(),
	}
)
