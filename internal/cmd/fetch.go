// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/gogama/proxyx/response"
	"github.com/spf13/cobra"
)

type fetchOptions struct {
	method  string
	data    string
	form    []string
	json    string
	include bool
	output  string
}

func newFetchCommand(g *globalOptions) *cobra.Command {
	o := &fetchOptions{}
	c := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send one request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, o, args[0])
		},
	}
	c.Flags().StringVarP(&o.method, "method", "X", "", "request method (default GET, or POST with a body)")
	c.Flags().StringVarP(&o.data, "data", "d", "", "raw request body")
	c.Flags().StringArrayVarP(&o.form, "form", "F", nil, "form field, name=value")
	c.Flags().StringVar(&o.json, "json", "", "JSON request body")
	c.Flags().BoolVarP(&o.include, "include", "i", false, "print the status line and headers")
	c.Flags().StringVarP(&o.output, "output", "o", "", "write the body to a file instead of stdout")
	return c
}

func runFetch(cmd *cobra.Command, g *globalOptions, o *fetchOptions, url string) error {
	if o.json != "" && !json.Valid([]byte(o.json)) {
		return errors.New("--json is not valid JSON")
	}

	cl, done, err := g.client(cmd)
	if err != nil {
		return err
	}
	defer done()

	method := o.method
	var body interface{}
	if o.data != "" {
		body = o.data
		if method == "" {
			method = http.MethodPost
		}
	}
	p, err := cl.Plan(method, url, body)
	if err != nil {
		return err
	}
	for _, s := range o.form {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid form field %q", s)
		}
		p.AddForm(name, value)
	}
	if o.json != "" {
		p.SetJSON(json.RawMessage(o.json))
	}

	w, err := cl.Dispatch(p.WithContext(cmd.Context()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.include {
		printHead(out, w)
	}
	if o.output != "" {
		return os.WriteFile(o.output, w.Body(), 0o644)
	}
	_, err = out.Write(w.Body())
	return err
}

func printHead(out io.Writer, w response.Wrapper) {
	fmt.Fprintf(out, "%s %s\n", w.Field(response.Proto), w.Field(response.Status))
	h, _ := w.Field(response.Header).(http.Header)
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			fmt.Fprintf(out, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(out)
}
