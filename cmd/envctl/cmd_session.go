package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session [type_id]",
	Short: "Start an interactive envelope comparison session",
	Long: `Opens an interactive session on one experiment type. Type "help" for the commands.
Staged comparison data is discarded when the session ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().StringVar(&selectColumns, "columns", "", "initial comma separated columns (default: saved selection)")
	sessionCmd.Flags().StringVarP(&outputPath, "output", "o", "envelope.html", "HTML file the chart is written to")
	sessionCmd.Flags().BoolVar(&useSampling, "sampling", false, "request sampled data instead of full resolution")
	sessionCmd.Flags().IntVar(&samplingPoints, "points", 0, "sampling points, implies --sampling (default: server default)")
	sessionCmd.Flags().IntVar(&downsample, "downsample", 2000, "max points drawn per new-data series, 0 disables")
}

const sessionHelp = `commands:
  select a,b,...          replace the column selection and redraw
  sampling on [n] | off   change sampling and redraw
  save-selection          store the selection as the type's settings
  fetch                   redraw the envelope (or the comparison when data is staged)
  upload <file>           stage a file as comparison data
  compare                 draw the staged data over the envelope
  save <name> [file]      promote the staged data to a dataset
  discard                 delete the staged data
  status                  show the session state
  quit                    end the session`

func runSession(cmd *cobra.Command, args []string) error {
	typeID, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	policy := session.DefaultIdlePolicy()
	policy.OnRemind = func(id string) {
		fmt.Printf("\nStaged data %s has been idle for %s. Save or discard it.\n> ", id, policy.RemindAfter)
	}
	policy.OnDiscard = func(id string, err error) {
		if err != nil {
			fmt.Printf("\nFailed to discard idle staged data %s: %s\n> ", id, client.Message(err))
			return
		}
		fmt.Printf("\nIdle staged data %s was discarded.\n> ", id)
	}

	s, err := openSession(ctx, newClient(), typeID,
		session.WithLogger(slog.Default()),
		session.WithIdlePolicy(policy),
	)
	if err != nil {
		return err
	}
	defer closeSession(s)

	fmt.Println(sessionHelp)
	repl := &sessionREPL{s: s, out: os.Stdout}
	repl.draw(s.FetchEnvelope(ctx))
	return repl.run(ctx, os.Stdin)
}

type sessionREPL struct {
	s   *session.Session
	out io.Writer
}

type replLine struct {
	text string
	err  error
}

// readLines feeds in line by line until it fails. The reader goroutine is left
// blocked on in when the session ends first.
func readLines(in io.Reader) <-chan replLine {
	out := make(chan replLine)
	go func() {
		defer close(out)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				out <- replLine{err: err}
				return
			}
			out <- replLine{text: line}
		}
	}()
	return out
}

// run executes commands until quit, end of input or ctx is done.
func (r *sessionREPL) run(ctx context.Context, in io.Reader) error {
	lines := readLines(in)
	for {
		fmt.Fprint(r.out, "> ")
		var l replLine
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l = <-lines:
		}
		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return nil
			}
			return l.err
		}
		fields := strings.Fields(l.text)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := r.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintln(r.out, "error:", client.Message(err))
		}
	}
}

func (r *sessionREPL) exec(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		fmt.Fprintln(r.out, sessionHelp)
	case "select":
		if err := r.s.Select(splitColumns(strings.Join(args, ","))); err != nil {
			return err
		}
		r.draw(r.s.Refresh(ctx))
	case "sampling":
		sm, err := parseSampling(args)
		if err != nil {
			return err
		}
		if err := r.s.SetSampling(sm); err != nil {
			return err
		}
		r.draw(r.s.Refresh(ctx))
	case "save-selection":
		r.draw(r.s.SaveSelection(ctx))
	case "fetch":
		r.draw(r.s.Refresh(ctx))
	case "upload":
		if len(args) != 1 {
			return fmt.Errorf("usage: upload <file>")
		}
		f, closeFn, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		temp, err := r.s.UploadTemp(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Staged %d rows, columns %v. Run \"compare\" to draw them.\n", temp.RowCount, temp.Columns)
	case "compare":
		r.draw(r.s.Compare(ctx))
	case "save":
		if len(args) == 0 {
			return fmt.Errorf("usage: save <name> [file]")
		}
		fileName := ""
		if len(args) > 1 {
			fileName = args[1]
		}
		id, err := r.s.SaveTemp(ctx, args[0], fileName)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved as dataset %d. Toggle it historical with \"envctl data historical %d on\".\n", id, id)
	case "discard":
		if err := r.s.Discard(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Staged data discarded.")
		r.draw(r.s.FetchEnvelope(ctx))
	case "status":
		v := r.s.View()
		fmt.Fprintf(r.out, "state=%s columns=%v", v.State, v.SelectedColumns)
		if v.Temp != nil {
			fmt.Fprintf(r.out, " temp=%s", v.Temp.TempDataID)
		}
		fmt.Fprintln(r.out)
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
	return nil
}

// draw writes the chart of v, or reports why there is none
func (r *sessionREPL) draw(v session.View, err error) {
	switch {
	case errors.Is(err, session.ErrSuperseded):
		return
	case err != nil:
		fmt.Fprintln(r.out, "error:", client.Message(err))
		return
	case v.Empty():
		fmt.Fprintln(r.out, "Nothing to draw: select at least one column.")
		return
	}
	if err := writeChart(v, outputPath); err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	fmt.Fprintf(r.out, "[%s] chart written to %s\n", v.State, outputPath)
}

func parseSampling(args []string) (session.Sampling, error) {
	if len(args) == 0 {
		return session.Sampling{}, fmt.Errorf("usage: sampling on [n] | off")
	}
	switch args[0] {
	case "off":
		return session.Sampling{UseSampling: client.Bool(false)}, nil
	case "on":
		sm := session.Sampling{UseSampling: client.Bool(true)}
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return sm, fmt.Errorf("invalid point count %q", args[1])
			}
			sm.SamplingPoints = client.Int(n)
		}
		return sm, nil
	}
	return session.Sampling{}, fmt.Errorf("usage: sampling on [n] | off")
}
