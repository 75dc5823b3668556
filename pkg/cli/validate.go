package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/restmock/pkg/route"
)

var validateFlagVals struct {
	definitions []string
	verbose     bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate definition files without starting a server",
	Long: `Load definition files, compile their expressions, and validate the
declared route tree. Exits non-zero on the first problem found.

Checks:
  - file syntax (JSON or YAML)
  - dataExpr / responseExpr expression compilation
  - route-tree structure (key tokens, data callbacks, duplicate roots)`,
	Example: `  # Validate a single file
  restmock validate -f mocks.yaml

  # Validate every definition under ./mocks
  restmock validate -f ./mocks`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, validateFlagVals.definitions, validateFlagVals.verbose)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringSliceVarP(&validateFlagVals.definitions, "definitions", "f", nil, "Definition file, directory, or glob (repeatable)")
	validateCmd.Flags().BoolVar(&validateFlagVals.verbose, "verbose", false, "Print the validated route tree")

	_ = validateCmd.MarkFlagRequired("definitions")
}

func runValidate(cmd *cobra.Command, sources []string, verbose bool) error {
	doc, err := loadDefinitions(sources)
	if err != nil {
		return err
	}

	routes, err := doc.BuildRoutes()
	if err != nil {
		return err
	}
	if err := route.Validate(routes); err != nil {
		return err
	}

	if verbose {
		for _, rt := range routes {
			printRoute(cmd, rt, "")
		}
	}
	cmd.Printf("OK: %d root route(s) valid\n", len(routes))
	return nil
}

func printRoute(cmd *cobra.Command, rt *route.Route, indent string) {
	label := rt.Path
	if rt.Host != "" {
		label = rt.Host + "/" + rt.Path
	}
	suffix := ""
	if rt.Shape != nil {
		suffix = " [shaped]"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s\n", indent, label, suffix)
	for _, child := range rt.Children {
		printRoute(cmd, child, indent+"  ")
	}
}
