package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/stixbridge/internal/service"
	"github.com/telhawk-systems/stixbridge/pkg/output"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

var (
	convertOut    string
	convertPretty bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <export.json> [export.json...]",
	Short: "Convert MISP export files to STIX 2.0 bundles",
	Long: `Convert one or more MISP export files to STIX 2.0 bundles.

Each input file produces one output file next to it with a .stix2.json
suffix, or on stdout with --out -.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output path (single input only, - for stdout)")
	convertCmd.Flags().BoolVar(&convertPretty, "pretty", true, "indent the output JSON")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertOut != "" && len(args) > 1 {
		return fmt.Errorf("--out works with a single input file")
	}

	converter := service.NewConverter(nil)
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			output.Error("read %s: %v", path, err)
			return err
		}
		results, err := converter.Convert(cmd.Context(), raw)
		if err != nil {
			output.Error("convert %s: %v", path, err)
			return err
		}

		dest := convertOut
		if dest == "" {
			dest = path + ".stix2.json"
		}
		if err := writeBundles(dest, results); err != nil {
			output.Error("write %s: %v", dest, err)
			return err
		}
		if dest != "-" {
			output.Success("%s: %d event(s) converted to %s", path, len(results), dest)
		}
	}
	return nil
}

func writeBundles(dest string, results []service.Result) error {
	var payload any
	if len(results) == 1 {
		payload = results[0].Bundle
	} else {
		bundles := make([]*stix.Bundle, 0, len(results))
		for _, result := range results {
			bundles = append(bundles, result.Bundle)
		}
		payload = bundles
	}

	if dest == "-" {
		return output.WriteJSON(os.Stdout, payload, convertPretty)
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	return output.WriteJSON(f, payload, convertPretty)
}
