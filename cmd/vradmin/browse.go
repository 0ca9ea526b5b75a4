package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/debounce"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/jonathan/vr-training-admin/internal/observability"
	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	browseTable string
	browseOpts  listOptions
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Page through a table interactively",
	Long: `Shows one page of a table and reads commands from stdin:

  n, next            next page
  p, prev            previous page
  page <n>           go to page n
  size <n>           change the page size (remembered for the table)
  sort <col>[:desc]  sort by a column; "sort" alone clears it
  filter col=v1,v2   filter a column; "filter col=" removes the filter
  clear              remove every filter
  show <id>          show the scored result of one record
  q, quit            exit

Filter changes are debounced; navigation refetches immediately.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseTable, "table", tableEvaluations, "Table to browse: evaluations or trainings")
	browseOpts.register(browseCmd)
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	kind, err := tableKind(browseTable)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	initial, err := browseOpts.state(ctx, s.pageSizes, browseTable, cfg.Grid.DefaultPageSize)
	if err != nil {
		return err
	}

	b := newBrowser(ctx, browserOptions{
		Table:     browseTable,
		Kind:      kind,
		Source:    s.api,
		PageSizes: s.pageSizes,
		Initial:   initial,
		Debounce:  cfg.Grid.Debounce,
		Out:       cmd.OutOrStdout(),
		Notifier:  s.notifier,
		Logger:    s.log,
	})
	return b.run(ctx, cmd.InOrStdin())
}

// recordSource is the part of the API client the pager uses.
type recordSource interface {
	List(ctx context.Context, kind evaluation.Kind, params grid.Params) (*apiclient.Page, error)
	Get(ctx context.Context, kind evaluation.Kind, id string) (*evaluation.Document, error)
}

type browserOptions struct {
	Table     string
	Kind      evaluation.Kind
	Source    recordSource
	PageSizes *prefs.PageSizes
	Initial   grid.QueryState
	Debounce  time.Duration
	Out       io.Writer
	Notifier  notify.Notifier
	Logger    zerolog.Logger
}

// browser is a terminal page view over one table.
type browser struct {
	kind     evaluation.Kind
	initial  grid.QueryState
	source   recordSource
	ctrl     *grid.Controller
	seq      grid.Sequencer
	refetch  *debounce.Debouncer
	notifier notify.Notifier
	log      zerolog.Logger

	mu      sync.Mutex
	out     io.Writer
	printer *observability.Printer
}

func newBrowser(ctx context.Context, opts browserOptions) *browser {
	b := &browser{
		kind:     opts.Kind,
		initial:  opts.Initial,
		source:   opts.Source,
		notifier: opts.Notifier,
		log:      opts.Logger.With().Str("table", opts.Table).Logger(),
		out:      opts.Out,
		printer:  observability.NewPrinter(opts.Out),
	}
	b.refetch = debounce.New(opts.Debounce, func() { b.fetch(ctx) })
	b.ctrl = grid.NewController(ctx, grid.Options{
		Table:           opts.Table,
		DefaultPageSize: opts.Initial.PageSize,
		PageSizes:       opts.PageSizes,
		InitialSorting:  opts.Initial.Sorting,
		InitialFilters:  opts.Initial.ColumnFilters,
		Logger:          opts.Logger,
		OnParamsChange:  func(grid.Params) { b.refetch.Trigger() },
	})
	return b
}

// run fetches the first page, then executes commands from in until quit or EOF.
func (b *browser) run(ctx context.Context, in io.Reader) error {
	defer b.seq.Stop()
	defer b.refetch.Stop()

	b.ctrl.Mount(ctx)
	if !b.applyInitial(ctx) {
		b.fetch(ctx)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		quit, err := b.exec(ctx, scanner.Text())
		if err != nil {
			b.println(err.Error())
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	b.refetch.Flush()
	return scanner.Err()
}

// applyInitial moves to an explicitly requested page size and page. It reports
// whether a refetch was issued.
func (b *browser) applyInitial(ctx context.Context) bool {
	moved := false
	if s := b.ctrl.State(); b.initial.PageSize > 0 && s.PageSize != b.initial.PageSize {
		s.PageSize = b.initial.PageSize
		b.ctrl.OnStateChange(ctx, s)
		moved = true
	}
	if s := b.ctrl.State(); b.initial.PageIndex != s.PageIndex {
		b.ctrl.SetPageIndex(ctx, b.initial.PageIndex)
		moved = true
	}
	if moved {
		b.refetch.Flush()
	}
	return moved
}

// exec runs one command line and reports whether the pager should exit.
func (b *browser) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return true, nil

	case "n", "next":
		b.ctrl.NextPage(ctx)
		b.refetch.Flush()

	case "p", "prev":
		if b.ctrl.State().PageIndex == 0 {
			return false, fmt.Errorf("already on the first page")
		}
		b.ctrl.PrevPage(ctx)
		b.refetch.Flush()

	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return false, fmt.Errorf("usage: page <n>, n starting at 1")
		}
		b.ctrl.SetPageIndex(ctx, n-1)
		b.refetch.Flush()

	case "size":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return false, fmt.Errorf("usage: size <n>, n at least 1")
		}
		b.ctrl.SetPageSize(ctx, n)
		b.refetch.Flush()

	case "sort":
		sorting, err := parseSort(arg)
		if err != nil {
			return false, err
		}
		b.ctrl.SetSorting(ctx, sorting...)
		b.refetch.Flush()

	case "filter":
		f, err := parseFilter(arg)
		if err != nil {
			return false, err
		}
		b.ctrl.SetFilter(ctx, f.ID, f.Value)

	case "clear":
		if !b.ctrl.CanClearFilters() {
			return false, fmt.Errorf("no filters to clear")
		}
		b.ctrl.ClearFilters(ctx)
		b.refetch.Flush()

	case "show":
		if arg == "" {
			return false, fmt.Errorf("usage: show <id>")
		}
		b.show(ctx, arg)

	case "help", "?":
		b.println("commands: next, prev, page <n>, size <n>, sort <col>[:desc], filter col=v1,v2, clear, show <id>, quit")

	default:
		return false, fmt.Errorf("unknown command %q, type help", fields[0])
	}
	return false, nil
}

// fetch loads the page for the controller's current params. Responses that are
// no longer the latest request are dropped.
func (b *browser) fetch(ctx context.Context) {
	params := b.ctrl.Params()
	reqCtx, seq, done := b.seq.Begin(ctx)
	defer done()

	page, err := b.source.List(reqCtx, b.kind, params)
	if !b.seq.IsLatest(seq) {
		b.log.Debug().Uint64("seq", seq).Msg("dropping stale page")
		return
	}
	if err != nil {
		notify.Report(ctx, b.notifier, b.log, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.printer.PrintPage(page, params)
}

func (b *browser) show(ctx context.Context, id string) {
	doc, err := b.source.Get(ctx, b.kind, id)
	if err != nil {
		notify.Report(ctx, b.notifier, b.log, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.printer.PrintRecord(evaluation.Normalize(doc))
}

func (b *browser) println(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = fmt.Fprintln(b.out, msg)
}
