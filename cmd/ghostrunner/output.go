package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "yaml", "output format (yaml or json)")
}

// printResult writes value to the command's output in the format chosen with --format.
func printResult(cmd *cobra.Command, value interface{}) error {
	format := "yaml"
	if flag := cmd.Flags().Lookup("format"); flag != nil {
		format = flag.Value.String()
	}

	return encode(cmd.OutOrStdout(), format, value)
}

func encode(out io.Writer, format string, value interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(value), "failed to encode result")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err := enc.Encode(value)
		if err != nil {
			return eris.Wrap(err, "failed to encode result")
		}
		return eris.Wrap(enc.Close(), "failed to encode result")
	default:
		return eris.Errorf("unknown format %q", format)
	}
}
