// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the endpoints the router dispatches to",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			eps, err := a.Router.Endpoints()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(eps))
			for _, e := range eps {
				auth := ""
				if e.RequiresAuth {
					auth = "yes"
				}
				rows = append(rows, []string{e.Template, strings.Join(e.Methods, ","), e.Name, auth})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Route", "Methods", "Endpoint", "Auth"}, rows))
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline: %s\n", strings.Join(a.Pipeline.Stages(), " -> "))
			return nil
		},
	}
}
