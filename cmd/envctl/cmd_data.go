package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	dataName string

	dataCmd = &cobra.Command{
		Use:   "data",
		Short: "Manage experiment datasets",
	}
	dataListCmd = &cobra.Command{
		Use:   "list [type_id]",
		Short: "List the datasets of an experiment type",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataList,
	}
	dataInfoCmd = &cobra.Command{
		Use:   "info [data_id]",
		Short: "Show a dataset and its stored rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataInfo,
	}
	dataHistoricalCmd = &cobra.Command{
		Use:   "historical [data_id] [on|off]",
		Short: "Add a dataset to or remove it from the historical corpus",
		Args:  cobra.ExactArgs(2),
		RunE:  runDataHistorical,
	}
	dataDeleteCmd = &cobra.Command{
		Use:   "delete [data_id]",
		Short: "Delete a dataset and its rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataDelete,
	}
	dataPreviewCmd = &cobra.Command{
		Use:   "preview [type_id] [file]",
		Short: "Preview and validate a CSV or Excel file without storing it",
		Args:  cobra.ExactArgs(2),
		RunE:  runDataPreview,
	}
	dataUploadCmd = &cobra.Command{
		Use:   "upload [type_id] [file]",
		Short: "Upload a CSV or Excel file as a new dataset",
		Args:  cobra.ExactArgs(2),
		RunE:  runDataUpload,
	}
)

func init() {
	dataDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	dataUploadCmd.Flags().StringVar(&dataName, "name", "", "dataset name")
	_ = dataUploadCmd.MarkFlagRequired("name")

	dataCmd.AddCommand(dataListCmd, dataInfoCmd, dataHistoricalCmd, dataDeleteCmd, dataPreviewCmd, dataUploadCmd)
}

func runDataList(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	list, err := newClient().ListDatasets(cmdContext(cmd), typeID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFILE\tROWS\tHISTORICAL\tSTATUS\tUPLOADED")
	for _, d := range list.ExperimentData {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%t\t%s\t%s\n",
			d.ID, d.DataName, d.FileName, d.RowCount, d.IsHistorical, d.Status, d.UploadTimeFormatted)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s := list.Statistics
	fmt.Printf("\n%d datasets, %d historical, %d active, %d rows\n", s.TotalCount, s.HistoricalCount, s.ActiveCount, s.TotalRows)
	return nil
}

func runDataInfo(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	info, err := newClient().DatasetInfo(cmdContext(cmd), id)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func runDataHistorical(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "yes":
		on = true
	case "off", "false", "no":
	default:
		return fmt.Errorf("expected on or off, got %q", args[1])
	}
	if err := newClient().SetHistorical(cmdContext(cmd), id, on); err != nil {
		return err
	}
	if on {
		fmt.Printf("Dataset %d added to the historical corpus.\n", id)
	} else {
		fmt.Printf("Dataset %d removed from the historical corpus.\n", id)
	}
	return nil
}

func runDataDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if !assumeYes && !confirm(fmt.Sprintf("Delete dataset %d?", id)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := newClient().DeleteDataset(cmdContext(cmd), id); err != nil {
		return err
	}
	fmt.Printf("Dataset %d deleted.\n", id)
	return nil
}

func runDataPreview(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	f, closeFn, err := openFile(args[1])
	if err != nil {
		return err
	}
	defer closeFn()

	preview, err := newClient().PreviewFile(cmdContext(cmd), typeID, f)
	if err != nil {
		return err
	}
	return printJSON(preview)
}

func runDataUpload(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	f, closeFn, err := openFile(args[1])
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := newClient().UploadData(cmdContext(cmd), typeID, f, dataName)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %s as dataset %d.\n", args[1], id)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
