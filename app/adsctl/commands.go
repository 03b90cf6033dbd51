package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"recipingAds/business/delivery"
	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/internal/repository/memory"
	"recipingAds/pkg/logger"
	"recipingAds/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	catalogPath string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "adsctl",
		Short:         "Operate the ad selection engine offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "scenario catalog YAML (embedded default when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log selection decisions")

	root.AddCommand(
		newCatalogCmd(opts),
		newClassifyCmd(opts),
		newAssignCmd(opts),
		newSimulateCmd(opts),
		newTokenCmd(),
	)
	return root
}

func (o *rootOptions) log() *zap.SugaredLogger {
	if !o.verbose {
		return zap.NewNop().Sugar()
	}
	return logger.Init(logger.Options{Environment: "development", Level: "debug"})
}

func (o *rootOptions) catalog() (*selection.Catalog, error) {
	return selection.LoadCatalog(o.catalogPath)
}

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Scenario catalog commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and report scenarios, slots and warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), c)
			return nil
		},
	})
	return cmd
}

func printCatalog(out io.Writer, c *selection.Catalog) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSEGMENT\tGROUP\tVARIANT")
	for _, sc := range c.ActiveScenarios() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sc.Code, sc.Segment, sc.Group, sc.Variant)
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	for _, s := range c.ActiveSlots() {
		fmt.Fprintf(out, "slot %s capacity=%d\n", s.Name, s.Capacity)
	}
	fmt.Fprintf(out, "default scenario: %s\n", c.DefaultScenario().Code)
	for _, warn := range c.Warnings() {
		fmt.Fprintf(out, "warning: %s\n", warn)
	}
	fmt.Fprintln(out, "catalog OK")
}

type profileFlags struct {
	sex      string
	age      string
	interest string
}

func (p *profileFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.sex, "sex", "", "F or M")
	cmd.Flags().StringVar(&p.age, "age", "", "age bracket: 10s..60s")
	cmd.Flags().StringVar(&p.interest, "interest", "", "interest keyword, e.g. DIET")
}

func (p *profileFlags) user(userID uint) *selection.UserContext {
	if p.sex == "" && p.age == "" && p.interest == "" && userID == 0 {
		return nil
	}
	return &selection.UserContext{
		UserID:   userID,
		Sex:      domain.Sex(strings.ToUpper(p.sex)),
		Age:      domain.AgeBracket(strings.ToLower(p.age)),
		Interest: domain.InterestKeyword(strings.ToUpper(p.interest)),
	}
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the segment a profile falls into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			seg := selection.NewClassifier(c).Classify(pf.user(0))
			fmt.Fprintln(cmd.OutOrStdout(), seg)
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func newAssignCmd(opts *rootOptions) *cobra.Command {
	var (
		userID  uint
		segment string
		slot    string
	)
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Print the experiment group and scenario for a user in a segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			seg := selection.Segment(strings.ToUpper(segment))
			sc := selection.NewAssigner(c, opts.log()).Assign(cmd.Context(), userID, seg, slot)
			fmt.Fprintf(cmd.OutOrStdout(), "user=%d segment=%s hash_group=%s scenario=%s group=%s\n",
				userID, seg, selection.GroupFor(userID, seg), sc.Code, sc.Group)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&segment, "segment", string(selection.SegmentGeneralAll), "segment code")
	cmd.Flags().StringVar(&slot, "slot", "MAIN_TOP", "slot name, for logging")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type simulateOptions struct {
	seed   string
	users  uint
	first  uint
	record bool
	at     string
	pf     profileFlags
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	so := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run selection for a range of users against a creative seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), opts, so)
		},
	}
	cmd.Flags().StringVar(&so.seed, "seed", "", "creative seed YAML")
	cmd.Flags().UintVar(&so.users, "users", 100, "number of users to simulate")
	cmd.Flags().UintVar(&so.first, "first-user", 1, "first user id; 0 simulates guests")
	cmd.Flags().BoolVar(&so.record, "record", false, "record impressions and print the experiment report")
	cmd.Flags().StringVar(&so.at, "at", "", "evaluation time, RFC3339 (now when empty)")
	so.pf.bind(cmd)
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}

type slotTally struct {
	levels    map[int]int
	scenarios map[string]int
	empty     int
}

func runSimulate(ctx context.Context, out io.Writer, opts *rootOptions, so *simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := opts.catalog()
	if err != nil {
		return err
	}
	store, err := memory.LoadFile(so.seed)
	if err != nil {
		return err
	}

	now := time.Now()
	if so.at != "" {
		if now, err = time.Parse(time.RFC3339, so.at); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	log := opts.log()
	events := memory.NewEventStore()
	sink := eventWriterSink{events}
	selector := selection.NewSelector(c, store,
		selection.WithLogger(log),
		selection.WithEventSink(sink),
		selection.WithClock(func() time.Time { return now }),
	)
	recorder := delivery.NewRecorder(store, sink, c, log)

	tallies := make(map[string]*slotTally)
	for i := uint(0); i < so.users; i++ {
		userID := so.first + i
		if so.first == 0 {
			userID = 0
		}
		traceCtx := selection.WithTraceID(ctx, fmt.Sprintf("sim-%d", i))
		res := selector.SelectAll(traceCtx, so.pf.user(userID))
		if so.record {
			recorder.RecordImpressions(traceCtx, res)
		}

		for slot, tr := range res.Traces {
			t, ok := tallies[slot]
			if !ok {
				t = &slotTally{levels: map[int]int{}, scenarios: map[string]int{}}
				tallies[slot] = t
			}
			if tr.SelectedCount == 0 {
				t.empty++
				continue
			}
			t.levels[tr.FallbackLevel]++
			t.scenarios[tr.FinalScenario]++
		}
	}

	printTallies(out, tallies)

	if so.record {
		rows, err := events.ScenarioPerformance(ctx, time.Time{})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCENARIO\tGROUP\tIMPRESSIONS\tCLICKS\tCTR")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\n", r.ScenarioCode, r.Group, r.Impressions, r.Clicks, r.CTR)
		}
		_ = w.Flush()
	}
	return nil
}

func printTallies(out io.Writer, tallies map[string]*slotTally) {
	slots := make([]string, 0, len(tallies))
	for s := range tallies {
		slots = append(slots, s)
	}
	sort.Strings(slots)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tLEVEL\tSCENARIO\tCOUNT")
	for _, slot := range slots {
		t := tallies[slot]
		levels := make([]int, 0, len(t.levels))
		for l := range t.levels {
			levels = append(levels, l)
		}
		sort.Ints(levels)
		for _, l := range levels {
			fmt.Fprintf(w, "%s\t%d\t-\t%d\n", slot, l, t.levels[l])
		}
		codes := make([]string, 0, len(t.scenarios))
		for code := range t.scenarios {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "%s\t-\t%s\t%d\n", slot, code, t.scenarios[code])
		}
		if t.empty > 0 {
			fmt.Fprintf(w, "%s\t-\t(empty)\t%d\n", slot, t.empty)
		}
	}
	_ = w.Flush()
}

// eventWriterSink persists events synchronously; simulations are single
// threaded and want complete reports.
type eventWriterSink struct {
	store *memory.EventStore
}

func (s eventWriterSink) Emit(ctx context.Context, e domain.AdEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_ = s.store.SaveEvent(ctx, e)
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := utils.GenerateJWT(userID, strings.ToUpper(role), secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "1", "user id claim")
	cmd.Flags().StringVar(&role, "role", "USER", "role claim, ADMIN for admin routes")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT secret shared with the server")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
