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

// Command commonmark converts a CommonMark document read from standard input
// into HTML written to standard output.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"go.commonmark.dev/commonmark"
)

const version = "0.1.0"

var (
	showHelp    = flag.Bool("help", false, "print usage and exit")
	showVersion = flag.Bool("version", false, "print version and exit")
	unsafe      = flag.Bool("unsafe", true, "accepted for compatibility; HTML passthrough is always enabled")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: commonmark [flags] < input.md > output.html\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}
	if *showVersion {
		fmt.Println("commonmark", version)
		return
	}
	_ = *unsafe // no-op: HTML block and inline passthrough is unconditional.

	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "commonmark:", err)
		os.Exit(1)
	}
}

func run(r io.Reader, w io.Writer) error {
	source, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc, refMap := commonmark.Parse(source)
	out := new(bytes.Buffer)
	if err := commonmark.RenderHTML(out, doc, refMap); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
