package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/chart"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/session"
	"github.com/spf13/cobra"
)

var (
	selectColumns  string
	outputPath     string
	useSampling    bool
	samplingPoints int
	saveAs         string
	downsample     int

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or save the column selection of an experiment type",
	}
	settingsGetCmd = &cobra.Command{
		Use:   "get [type_id]",
		Short: "Show the saved column selection",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsGet,
	}
	settingsSaveCmd = &cobra.Command{
		Use:   "save [type_id]",
		Short: "Save a column selection",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsSave,
	}

	envelopeCmd = &cobra.Command{
		Use:   "envelope [type_id]",
		Short: "Render the historical envelope of an experiment type to HTML",
		Long:  `Fetches the envelope of the selected columns (or the saved selection when --columns is empty) and writes a self-contained HTML chart.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runEnvelope,
	}
	compareCmd = &cobra.Command{
		Use:   "compare [type_id] [file]",
		Short: "Compare a new run against the historical envelope",
		Long:  `Stages the file as temporary comparison data, renders it over the envelope, then either promotes it (--save) or discards it.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runCompare,
	}
)

func init() {
	settingsSaveCmd.Flags().StringVar(&selectColumns, "columns", "", "comma separated columns to select")
	settingsCmd.AddCommand(settingsGetCmd, settingsSaveCmd)

	for _, c := range []*cobra.Command{envelopeCmd, compareCmd} {
		c.Flags().StringVar(&selectColumns, "columns", "", "comma separated columns (default: saved selection)")
		c.Flags().StringVarP(&outputPath, "output", "o", "envelope.html", "HTML file to write")
		c.Flags().BoolVar(&useSampling, "sampling", false, "request sampled data instead of full resolution")
		c.Flags().IntVar(&samplingPoints, "points", 0, "sampling points, implies --sampling (default: server default)")
		c.Flags().IntVar(&downsample, "downsample", chart.DefaultOptions().Downsample, "max points drawn per new-data series, 0 disables")
	}
	compareCmd.Flags().StringVar(&saveAs, "save", "", "promote the staged data under this dataset name instead of discarding it")
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := newClient().GetSettings(cmdContext(cmd), typeID)
	if err != nil {
		return err
	}
	return printJSON(s)
}

func runSettingsSave(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	cols := splitColumns(selectColumns)
	if err := newClient().SaveSettings(cmdContext(cmd), typeID, cols); err != nil {
		return err
	}
	fmt.Printf("Saved %d selected columns.\n", len(cols))
	return nil
}

// openSession loads the experiment type and applies the column and sampling flags
func openSession(ctx context.Context, c *client.Client, typeID int64, opts ...session.Option) (*session.Session, error) {
	info, err := c.EnvelopeInfo(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if info.ExperimentType == nil {
		return nil, domain.ErrTypeNotFound
	}
	opts = append([]session.Option{session.WithCleanupTimeout(cleanupTimeout)}, opts...)
	s := session.New(c, *info.ExperimentType, opts...)

	cols := splitColumns(selectColumns)
	if len(cols) == 0 {
		if cols, err = s.LoadSelection(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.Select(cols); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.SetSampling(samplingFlags(useSampling, samplingPoints)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// samplingFlags leaves sampling unset unless asked for, so the server returns
// full resolution data.
func samplingFlags(on bool, points int) session.Sampling {
	var sm session.Sampling
	if on || points > 0 {
		sm.UseSampling = client.Bool(true)
	}
	if points > 0 {
		sm.SamplingPoints = client.Int(points)
	}
	return sm
}

// closeSession ends s and waits a bounded time for its staged data to be deleted.
func closeSession(s *session.Session) {
	s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning: staged data may not have been deleted:", err)
	}
}

func writeChart(v session.View, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	r := chart.New(chart.Options{Downsample: downsample})
	if err := r.Render(f, v.Envelope, v.Comparison, v.SelectedColumns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runEnvelope(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	s, err := openSession(ctx, newClient(), typeID)
	if err != nil {
		return err
	}
	defer closeSession(s)

	v, err := s.FetchEnvelope(ctx)
	if err != nil {
		return err
	}
	if v.Empty() {
		return chart.ErrNothingToDraw
	}
	if err := writeChart(v, outputPath); err != nil {
		return err
	}
	printEnvelopeSummary(v.Envelope)
	fmt.Printf("Chart written to %s\n", outputPath)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	s, err := openSession(ctx, newClient(), typeID)
	if err != nil {
		return err
	}
	defer closeSession(s)

	f, closeFn, err := openFile(args[1])
	if err != nil {
		return err
	}
	temp, err := s.UploadTemp(ctx, f)
	closeFn()
	if err != nil {
		return err
	}
	fmt.Printf("Staged %d rows (t %g to %g), columns %v\n", temp.RowCount, temp.TimeRange.Min, temp.TimeRange.Max, temp.Columns)

	v, err := s.Compare(ctx)
	if err != nil {
		return err
	}
	if err := writeChart(v, outputPath); err != nil {
		return err
	}
	fmt.Printf("Chart written to %s\n", outputPath)

	if saveAs == "" {
		if err := s.Discard(ctx); err != nil {
			return err
		}
		fmt.Println("Staged data discarded.")
		return nil
	}
	id, err := s.SaveTemp(ctx, saveAs, "")
	if err != nil {
		return err
	}
	fmt.Printf("Staged data saved as dataset %d.\n", id)
	return nil
}

func printEnvelopeSummary(env *domain.EnvelopeData) {
	fmt.Printf("Envelope of %d historical datasets, %d points", env.DataCount, len(env.TimePoints))
	if env.SamplingMethod != "" {
		fmt.Printf(" (%s, %d original)", env.SamplingMethod, env.OriginalPoints)
	}
	fmt.Println()
}
