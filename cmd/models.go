package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model families",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printModels(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func printModels(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFIELDS\tPARAMS\tSAMPLE\tDESCRIPTION")
	for _, name := range models.Names() {
		spec, err := models.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", spec.Name, spec.DataDim, spec.ModelDim, spec.NFit, spec.Description)
	}
	return w.Flush()
}
