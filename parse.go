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

// Package commonmark provides a [CommonMark] parser and HTML renderer.
//
// [CommonMark]: https://commonmark.org/
package commonmark

import (
	"bytes"
	"fmt"
	"io"
)

// tabStopSize is the multiple of columns that a [tab] advances to.
//
// [tab]: https://spec.commonmark.org/0.30/#tabs
const tabStopSize = 4

// A BlockParser splits a stream of CommonMark source into [RootBlock]s,
// one top-level block at a time, so that large documents can be processed
// without holding the entire parse tree in memory at once.
type BlockParser struct {
	buf      []byte // bytes read but not yet consumed into a returned block
	offset   int64  // offset from beginning of stream to beginning of buf
	parsePos int    // parse position within buf
	lineno   int    // line number of parse position

	r   io.Reader
	err error // sticky error from the underlying reader, or io.EOF

	// pending holds top-level blocks already parsed but not yet returned.
	// Closing a paragraph can expand it into several sibling blocks at
	// once (link reference definitions followed by the remaining
	// paragraph text), but NextBlock only ever returns one block at a
	// time, so the rest are queued here.
	pending     []*Block
	pendingSrc  []byte
	pendingLine int
	pendingOff  int64
}

// NewBlockParser returns a parser that reads CommonMark source from r.
func NewBlockParser(r io.Reader) *BlockParser {
	return &BlockParser{r: r}
}

// Parse parses the entirety of source as a sequence of top-level blocks
// and collects any link reference definitions found within into a
// [ReferenceMap]. Any NUL bytes in source are replaced with the Unicode
// replacement character, as required by the CommonMark specification.
//
// Parse is a convenience wrapper around [BlockParser] and [InlineParser]:
// it drains every block with [*BlockParser.NextBlock], extracts link
// reference definitions as they arrive, and then runs
// [*InlineParser.Rewrite] over each block, so the returned blocks are
// ready to pass to [RenderHTML].
func Parse(source []byte) ([]*RootBlock, ReferenceMap) {
	if bytes.IndexByte(source, 0) >= 0 {
		source = bytes.ReplaceAll(source, []byte{0}, []byte("�"))
	}
	p := NewBlockParser(bytes.NewReader(source))
	var blocks []*RootBlock
	refMap := make(ReferenceMap)
	for {
		block, err := p.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
		refMap.Extract(block.Source, block.AsNode())
	}
	inlineParser := &InlineParser{ReferenceMatcher: refMap}
	for _, block := range blocks {
		inlineParser.Rewrite(block)
	}
	return blocks, refMap
}

// NextBlock reads from the underlying reader until it has parsed one
// complete top-level block, and returns it. Once the stream has been
// fully consumed, it returns an error that is or wraps [io.EOF].
//
// The returned block's inline content has not yet been parsed into
// [Inline] trees beyond raw [UnparsedKind]/[TextKind] spans: callers that
// want fully parsed inlines should extract link reference definitions
// with [ReferenceMap.Extract] and call [*InlineParser.Rewrite], as
// [Parse] does internally.
func (p *BlockParser) NextBlock() (*RootBlock, error) {
	if len(p.pending) > 0 {
		top := p.pending[0]
		p.pending = p.pending[1:]
		return &RootBlock{
			Source:      p.pendingSrc,
			StartLine:   p.pendingLine,
			StartOffset: p.pendingOff,
			EndOffset:   p.pendingOff + int64(len(p.pendingSrc)),
			Block:       *top,
		}, nil
	}

	lp := newBlockCursor(nil, 0, nil)
	startLine := 0
	for {
		lineStart := p.parsePos
		line := p.readline()
		if len(line) == 0 {
			if len(lp.root.blockChildren) == 0 {
				return nil, p.err
			}
			lp.root.close(lp.source, nil, lineStart)
			break
		}
		if len(lp.root.blockChildren) == 0 {
			if isBlankLine(line) {
				// Blank lines between top-level blocks belong to neither.
				p.offset += int64(p.parsePos)
				p.buf = p.buf[p.parsePos:]
				p.parsePos = 0
				continue
			}
			startLine = p.lineno
		}

		lp.reset(lineStart, p.buf[:p.parsePos])
		allMatched := descendOpenBlocks(lp)
		if len(lp.root.blockChildren) > 0 && allMatched && lp.container == &lp.root {
			// Every block opened by a previous line has already closed,
			// and this line matches only at the document level: it is
			// the start of the next top-level block, not a continuation
			// of this one. Leave it unconsumed for the next call.
			p.parsePos = lineStart
			lp.root.close(lp.source, nil, lineStart)
			break
		}
		hasText := openNewBlocks(lp, allMatched)
		if lp.container == nil {
			break
		}
		if hasText {
			collectLineText(lp)
		}
	}

	src := p.consume()
	children := lp.root.blockChildren
	top := *children[0]
	if len(children) > 1 {
		p.pending = children[1:]
		p.pendingSrc = src
		p.pendingLine = startLine
		p.pendingOff = p.offset - int64(len(src))
	}
	return &RootBlock{
		Source:      src,
		StartLine:   startLine,
		StartOffset: p.offset - int64(len(src)),
		EndOffset:   p.offset,
		Block:       top,
	}, nil
}

// descendOpenBlocks walks the chain of already-open blocks,
// starting at the document level,
// re-matching each one against the current line
// and descending through last children down to the deepest open block.
// It sets lp.container to the deepest block the line still matches,
// or nil if even the document-level rule failed to match
// (which should not normally happen, since the document always matches).
//
// This corresponds to the first step of [Phase 1]
// in the CommonMark recommended parsing strategy.
//
// [Phase 1]: https://spec.commonmark.org/0.30/#phase-1-block-structure
func descendOpenBlocks(lp *blockCursor) (allMatched bool) {
	lp.container = nil
	lp.state = stateDescending
	child := &lp.root
	for {
		rule := blockKindRules[child.Kind()]
		if rule.match == nil {
			return false
		}
		parent := lp.container
		lp.container = child
		if !rule.match(lp) {
			lp.container = parent
			return false
		}
		lp.container = child
		next := child.lastChild().Block()
		if next == nil || !next.isOpen() {
			return true
		}
		child = next
	}
}

// openNewBlocks looks for new block starts,
// closing any blocks left unmatched by [descendOpenBlocks]
// before creating new blocks as descendants of the deepest matched container.
// openNewBlocks sets lp.container to the deepest open block afterward,
// or nil if doing so closed the document-level block entirely.
//
// This corresponds to the second step of [Phase 1]
// in the CommonMark recommended parsing strategy.
//
// [Phase 1]: https://spec.commonmark.org/0.30/#phase-1-block-structure
func openNewBlocks(lp *blockCursor, allMatched bool) (hasText bool) {
	if !allMatched {
		defer func() {
			// Special case: paragraph continuation text (lazy continuation).
			// Rather than closing the unmatched paragraph,
			// move the container pointer to it so its text is collected.
			if !lp.IsRestBlank() {
				if tip := findTip(&lp.root); tip != nil && tip.kind == ParagraphKind {
					lp.container = tip
					return
				}
			}

			if lp.container == nil {
				lp.root.close(lp.source, nil, lp.lineStart)
				return
			}
			parent := findParent(&lp.root, lp.container)
			lp.container.lastChild().Block().close(lp.source, lp.container, lp.lineStart)
			lp.container = parent
			if lp.container == nil {
				lp.root.close(lp.source, nil, lp.lineStart)
			}
		}()
	}

openingLoop:
	for lp.root.isOpen() &&
		(lp.ContainerKind() == ParagraphKind || !blockKindRules[lp.ContainerKind()].acceptsLines) {
		for _, startFunc := range blockOpeners {
			lp.state = stateOpening
			startFunc(lp)
			switch lp.state {
			case stateOpenMatched:
				continue openingLoop
			case stateLineConsumed:
				return false
			}
		}
		// None of the block starts matched: the rest of the line is text.
		return true
	}
	return true
}

// collectLineText collects the remainder of the current line
// as the inline content of the deepest open block,
// or opens a new paragraph for it if the deepest open block
// does not itself accept lines (e.g. a list or block quote).
// It also updates the blank-line bookkeeping list rules use
// to determine list looseness.
func collectLineText(lp *blockCursor) {
	isBlank := lp.IsRestBlank()
	for c := lp.container; c != nil; c = findParent(&lp.root, c) {
		c.lastLineBlank = isBlank
	}

	switch {
	case blockKindRules[lp.ContainerKind()].acceptsLines:
		kind := UnparsedKind
		if lp.ContainerKind().IsCode() {
			kind = TextKind
		} else {
			// Leading whitespace on a paragraph or heading line is not
			// significant (unlike in code content, where CollectInline's
			// own IndentKind bookkeeping preserves it), so strip it here
			// rather than have it surface as a spurious IndentKind node
			// in prose.
			lp.ConsumeIndent(lp.Indent())
		}
		lp.CollectInline(kind, len(lp.line)-lp.i)
	case !isBlank:
		lp.OpenBlock(ParagraphKind)
		if lp.container == nil {
			return
		}
		lp.ConsumeIndent(lp.Indent())
		lp.CollectInline(UnparsedKind, len(lp.line)-lp.i)
	}
}

// findParent returns the parent of b within the tree rooted at root,
// or nil if b is root or is not found in the tree.
func findParent(root *Block, b *Block) *Block {
	if root == b {
		return nil
	}
	var parent *Block
	curr := root
	for curr != nil {
		if curr == b {
			return parent
		}
		parent = curr
		curr = curr.lastChild().Block()
	}
	return nil
}

// findTip finds the deepest open descendant of b, or nil if b itself is not open.
func findTip(b *Block) *Block {
	if !b.isOpen() {
		return nil
	}
	for {
		next := b.lastChild().Block()
		if next == nil || !next.isOpen() {
			return b
		}
		b = next
	}
}

// readline reads the next line of input (including its line ending, if any),
// growing p.buf as necessary. It returns a zero-length slice
// if and only if it has reached the end of input or hit a read error.
// After calling readline, p.lineno holds the current line's 1-based number,
// counting only lines actually returned.
func (p *BlockParser) readline() []byte {
	const (
		chunkSize    = 8 * 1024
		maxBlockSize = 1024 * 1024
	)

	eolEnd := -1
	for {
		if i := bytes.IndexAny(p.buf[p.parsePos:], "\r\n"); i >= 0 {
			eolStart := p.parsePos + i
			switch {
			case p.buf[eolStart] == '\n':
				eolEnd = eolStart + 1
			case eolStart+1 < len(p.buf):
				eolEnd = eolStart + 1
				if p.buf[eolEnd] == '\n' {
					eolEnd++
				}
			case p.err != nil:
				eolEnd = len(p.buf)
			}
			if eolEnd >= 0 {
				break
			}
		} else if p.err != nil {
			eolEnd = len(p.buf)
			break
		}

		if len(p.buf) >= maxBlockSize {
			p.buf = p.buf[:p.parsePos]
			p.err = fmt.Errorf("commonmark: line %d: block too large", p.lineno+1)
			return nil
		}

		newSize := len(p.buf) + chunkSize
		if newSize > maxBlockSize {
			newSize = maxBlockSize
		}
		if cap(p.buf) < newSize {
			newbuf := make([]byte, len(p.buf), newSize)
			copy(newbuf, p.buf)
			p.buf = newbuf
		}
		var n int
		n, p.err = p.r.Read(p.buf[len(p.buf):newSize])
		p.buf = p.buf[:len(p.buf)+n]
	}

	if eolEnd <= p.parsePos {
		return nil
	}
	line := p.buf[p.parsePos:eolEnd]
	p.parsePos = eolEnd
	p.lineno++
	return line
}

// consume returns the bytes parsed so far, advancing the stream offset
// and discarding them from the internal buffer.
func (p *BlockParser) consume() []byte {
	out := p.buf[:p.parsePos:p.parsePos]
	p.offset += int64(p.parsePos)
	p.buf = p.buf[p.parsePos:]
	p.parsePos = 0
	return out
}

// lineCount returns the number of lines represented by source,
// counting a final unterminated line as one more line.
func lineCount(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte("\n"))
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}

// columnWidth returns the width in columns of b,
// given that it starts at the 0-based column position start.
func columnWidth(start int, b []byte) int {
	end := start
	for _, bi := range b {
		switch {
		case bi == '\t':
			// Assumes tabStopSize is a power of two.
			end = (end + tabStopSize) &^ (tabStopSize - 1)
		case bi&0xc0 != 0x80:
			// Start of a UTF-8 encoded code point, or an ASCII byte:
			// either way, the start of a new column.
			end++
		}
	}
	return end - start
}

func indentLength(line []byte) int {
	for i, b := range line {
		if b != ' ' && b != '\t' {
			return i
		}
	}
	return len(line)
}

func isBlankLine(line []byte) bool {
	for _, b := range line {
		if !(b == '\r' || b == '\n' || b == ' ' || b == '\t') {
			return false
		}
	}
	return true
}

func hasTabOrSpacePrefixOrEOL(line []byte) bool {
	return len(line) == 0 ||
		line[0] == ' ' ||
		line[0] == '\t' ||
		line[0] == '\n' ||
		line[0] == '\r'
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isEndEscaped reports whether s ends with an odd number of trailing backslashes,
// meaning the last character of s is escaped.
func isEndEscaped(s []byte) bool {
	n := 0
	for n < len(s) && s[len(s)-n-1] == '\\' {
		n++
	}
	return n%2 == 1
}

func hasBytePrefix(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == prefix
}
