package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/spf13/cobra"
)

var (
	typeDescription string
	typeTimeColumn  string
	typeColumns     string
	assumeYes       bool

	typesCmd = &cobra.Command{
		Use:   "types",
		Short: "Manage experiment types",
	}
	typesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List experiment types",
		Args:  cobra.NoArgs,
		RunE:  runTypesList,
	}
	typesCreateCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create an experiment type",
		Args:  cobra.ExactArgs(1),
		RunE:  runTypesCreate,
	}
	typesDeleteCmd = &cobra.Command{
		Use:   "delete [type_id]",
		Short: "Delete an experiment type with all of its datasets",
		Args:  cobra.ExactArgs(1),
		RunE:  runTypesDelete,
	}
)

func init() {
	typesCreateCmd.Flags().StringVar(&typeDescription, "description", "", "free-form description")
	typesCreateCmd.Flags().StringVar(&typeTimeColumn, "time-column", "", "name of the time column (default \"t\")")
	typesCreateCmd.Flags().StringVar(&typeColumns, "columns", "", "comma separated data columns")
	_ = typesCreateCmd.MarkFlagRequired("columns")
	typesDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	typesCmd.AddCommand(typesListCmd, typesCreateCmd, typesDeleteCmd)
}

func runTypesList(cmd *cobra.Command, _ []string) error {
	types, err := newClient().ListTypes(cmdContext(cmd))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tCOLUMNS\tDESCRIPTION")
	for _, t := range types {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.TimeColumn, strings.Join(t.DataColumns, ","), t.Description)
	}
	return w.Flush()
}

func runTypesCreate(cmd *cobra.Command, args []string) error {
	et, err := newClient().CreateType(cmdContext(cmd), client.CreateTypeRequest{
		Name:        args[0],
		Description: typeDescription,
		TimeColumn:  typeTimeColumn,
		DataColumns: splitColumns(typeColumns),
	})
	if err != nil {
		return err
	}
	return printJSON(et)
}

func runTypesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if !assumeYes && !confirm(fmt.Sprintf("Delete experiment type %d and all of its datasets?", id)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := newClient().DeleteType(cmdContext(cmd), id); err != nil {
		return err
	}
	fmt.Printf("Experiment type %d deleted.\n", id)
	return nil
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
