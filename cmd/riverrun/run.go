// Copyright 2024, riverrun authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/riverrun-project/riverrun/internal/executor"
)

var defaultText = []string{
	"the quick brown fox",
	"jumps over the lazy dog",
	"the dog barks at the fox",
}

func newRunCommand() *cobra.Command {
	var workers int
	var text []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the built-in word-count pipeline and print the tally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(text) == 0 {
				text = defaultText
			}

			graph := wordCountGraph()
			registry := newWordCountRegistry(text)
			evalCtx := newWordCountContext(len(text))

			exec := executor.New(graph, registry, evalCtx, executor.Options{Workers: workers})
			exec.Start()

			if err := exec.AwaitCompletion(); err != nil {
				glog.Errorf("pipeline failed: %v", err)
				return fmt.Errorf("pipeline failed: %w", err)
			}

			printTally(cmd, evalCtx.Tally())
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	cmd.Flags().StringArrayVar(&text, "line", nil, "a line of input text (repeatable); defaults to a built-in sample")

	return cmd
}

func printTally(cmd *cobra.Command, tally map[string]int) {
	words := make([]string, 0, len(tally))
	for w := range tally {
		words = append(words, w)
	}
	sort.Strings(words)

	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "%s\t%d\n", w, tally[w])
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
}
