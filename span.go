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

// Span is a byte range within a [RootBlock]'s Source,
// used in place of copied strings so that the parser can run without
// allocating for every piece of text it recognizes.
type Span struct {
	// Start is the offset of the first byte in the span.
	Start int
	// End is the offset just past the last byte in the span.
	End int
}

// NullSpan returns a [Span] that represents the absence of a span.
// [Span.IsValid] reports false for the returned value.
func NullSpan() Span {
	return Span{Start: -1, End: -1}
}

// IsValid reports whether the span refers to an actual range of bytes.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.End >= 0
}

// Len returns the number of bytes the span covers.
// It returns zero for an invalid span.
func (s Span) Len() int {
	if !s.IsValid() {
		return 0
	}
	return s.End - s.Start
}

// spanSlice returns the bytes of source that a span refers to.
// It returns nil if the span is invalid.
func spanSlice(source []byte, s Span) []byte {
	if !s.IsValid() {
		return nil
	}
	return source[s.Start:s.End]
}
