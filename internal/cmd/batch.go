// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/request"
	"github.com/spf13/cobra"
)

func newBatchCommand(g *globalOptions) *cobra.Command {
	var concurrency int
	c := &cobra.Command{
		Use:   "batch <file>",
		Short: "GET every URL listed in a file",
		Long: `Read URLs from a file, one per line, and GET them concurrently.

Each result is printed as a tab separated line: the line index, then
the status code and body size, or ERR and the error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, args[0], concurrency)
		},
	}
	c.Flags().IntVar(&concurrency, "concurrency", proxyx.DefaultConcurrency, "requests in flight at once")
	return c
}

func runBatch(cmd *cobra.Command, g *globalOptions, path string, concurrency int) error {
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	urls, err := readURLs(path)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs found in batch file")
	}

	cl, done, err := g.client(cmd)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	plans := make([]*request.Plan, len(urls))
	for i, u := range urls {
		p, err := cl.Plan("GET", u, nil)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		plans[i] = p.WithContext(ctx)
	}

	out := cmd.OutOrStdout()
	failed := 0
	b := proxyx.Batch{
		Doer:        cl,
		Concurrency: concurrency,
		OnFulfilled: func(i int, e *request.Execution) {
			fmt.Fprintf(out, "%d\t%d\t%d\t%s\n", i, e.StatusCode(), len(e.Body), urls[i])
		},
		OnRejected: func(i int, _ *request.Execution, err error) {
			failed++
			fmt.Fprintf(out, "%d\tERR\t%s\t%v\n", i, urls[i], err)
		},
	}
	if _, err := b.Run(ctx, plans); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(plans))
	}
	return nil
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
