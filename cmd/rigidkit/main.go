package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidkit/internal/analysis"
	"github.com/san-kum/rigidkit/internal/config"
	"github.com/san-kum/rigidkit/internal/pvd"
	"github.com/san-kum/rigidkit/internal/scenario"
	"github.com/san-kum/rigidkit/internal/sim"
	"github.com/san-kum/rigidkit/internal/storage"
	"github.com/san-kum/rigidkit/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	steps      int
	dt         float64
	threads    int
	seed       int64
	solver     string
	enablePVD  bool
	scenes     int
	bodyName   string
	outFile    string
	profMode   string
	pvdAddr    string
	themeName  string
	svgFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidkit",
		Short:         "rigid-body scene toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidkit", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine messages to stderr")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and save its trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&enablePVD, "pvd", false, "stream frames to a visualizer")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot body heights of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&bodyName, "body", "", "plot one body only")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the xy path of the first plotted body as SVG")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum, settling and phase portrait of one body",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&bodyName, "body", "", "body name (default first dynamic body)")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets and scenario builders",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "measure step throughput",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchPreset,
	}
	sceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&scenes, "scenes", 1, "scenes stepped concurrently")
	benchCmd.Flags().StringVar(&profMode, "profile", "", "write a cpu or mem profile")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "step a scenario in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", "", "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	pvdCmd := &cobra.Command{
		Use:   "pvd",
		Short: "receive and print frames streamed by run --pvd",
		Args:  cobra.NoArgs,
		RunE:  servePVD,
	}
	pvdCmd.Flags().StringVar(&pvdAddr, "addr", fmt.Sprintf(":%d", config.DefaultPVDPort), "listen address")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, benchCmd, liveCmd, pvdCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker threads (0 steps inline)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&solver, "solver", "", "pgs or tgs")
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "rigidkit: ", log.Ltime|log.Lmicroseconds)
}

// loadConfig resolves the config from --config or the preset argument
// (default "drop") and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var cfg *config.Config
	preset := ""
	if configFile != "" {
		if len(args) > 0 {
			return nil, "", fmt.Errorf("give either a preset or --config, not both")
		}
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		preset = "drop"
		if len(args) > 0 {
			preset = args[0]
		}
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("solver") {
		cfg.Solver = solver
	}
	if flags.Lookup("pvd") != nil && flags.Changed("pvd") {
		cfg.PVD.Enabled = enablePVD
	}
	return cfg, preset, nil
}

func setup(cfg *config.Config, n int) (*scenario.Scenario, error) {
	s := scenario.New(cfg, scenario.Options{Logger: newLogger(), Scenes: n})
	if err := s.Setup(scenario.NewRegistry()); err != nil {
		return nil, err
	}
	return s, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, preset, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := setup(cfg, 1)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("running %s: %d steps, dt=%.4fs, %d threads\n", cfg.Scenario, cfg.Steps, cfg.Dt, cfg.Threads)
	start := time.Now()
	result, runErr := s.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Scenario: cfg.Scenario,
		Preset:   preset,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Steps:    cfg.Steps,
		Threads:  cfg.Threads,
		Solver:   cfg.Solver,
	}, result)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	fmt.Printf("run saved: %s\n", runID)
	fmt.Printf("steps: %d in %v\n\n", result.StepsTaken, elapsed.Round(time.Millisecond))
	printMetrics(result.Metrics)
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, "step error:", e)
	}
	return runErr
}

func printMetrics(m map[string]float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(w, "%s\t%.4f\n", name, m[name])
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tDT\tBODIES\tSOLVER\tERRORS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%d\t%s\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			len(run.Bodies),
			run.Solver,
			len(run.Errors),
		)
	}

	return w.Flush()
}

// findBody returns the index of the named body, or of the first non-static
// body when name is empty.
func findBody(result *sim.Result, name string) (int, error) {
	if len(result.Frames) == 0 {
		return 0, fmt.Errorf("no data")
	}
	for i, b := range result.Frames[0].Bodies {
		if (name == "" && b.Kind != "static") || (name != "" && b.Name == name) {
			return i, nil
		}
	}
	if name == "" {
		return 0, fmt.Errorf("run has no dynamic bodies")
	}
	return 0, fmt.Errorf("unknown body: %s", name)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(result.Frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("frames: %d\n\n", len(result.Frames))

	var indices []int
	if bodyName != "" {
		i, err := findBody(result, bodyName)
		if err != nil {
			return err
		}
		indices = append(indices, i)
	} else {
		const maxPlots = 6
		for i, b := range result.Frames[0].Bodies {
			if b.Kind != "static" && len(indices) < maxPlots {
				indices = append(indices, i)
			}
		}
	}

	for _, i := range indices {
		graph := asciigraph.Plot(result.Series(i, 1),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(result.Frames[0].Bodies[i].Name+" height"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile != "" && len(indices) > 0 {
		i := indices[0]
		svg := viz.TrajectorySVG(result.Series(i, 0), result.Series(i, 1), 800, 600, "#00ff00")
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("path of %s written to %s\n", result.Frames[0].Bodies[i].Name, svgFile)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	body, err := findBody(result, bodyName)
	if err != nil {
		return err
	}
	name := result.Frames[0].Bodies[body].Name

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("body: %s\n\n", name)

	spec := analysis.PowerSpectrum(result.Series(body, 1), meta.Dt)
	if len(spec.Amplitude) > 4 {
		graph := asciigraph.Plot(spec.Amplitude[:len(spec.Amplitude)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum ("+name+".y)"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if freq := spec.Dominant(); freq > 0 {
		fmt.Printf("dominant frequency: %.3f hz\n", freq)
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	fmt.Printf("bounces: %d\n", analysis.Bounces(result, body, 0.1))
	if t := analysis.SettleTime(result, 0.05); t >= 0 {
		fmt.Printf("settled at: %.3f s\n", t)
	} else {
		fmt.Println("settled at: never")
	}
	fmt.Println()

	portrait := analysis.GeneratePhasePortrait(result, body, analysis.AxisY, analysis.AxisVY)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 20))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	result, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	result.Metrics = meta.Metrics

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, meta.Scenario, meta.Dt, result)
	}
	if err := storage.ExportJSONFile(outFile, meta.Scenario, meta.Dt, result); err != nil {
		return err
	}
	fmt.Printf("exported %d frames to %s\n", len(result.Frames), outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSCENARIO\tACTORS\tSTEPS\tDT\tSOLVER")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		actors := 0
		for _, a := range p.Actors {
			actors += a.Copies()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4fs\t%s\n", name, p.Scenario, actors, p.Steps, p.Dt, p.Solver)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nscenario builders: %s\n", strings.Join(scenario.NewRegistry().List(), ", "))
	return nil
}

func benchPreset(cmd *cobra.Command, args []string) error {
	cfg, preset, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	var prof interface{ Stop() }
	switch profMode {
	case "":
	case "cpu":
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		prof = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return fmt.Errorf("unknown profile mode: %s (cpu, mem)", profMode)
	}
	if prof != nil {
		defer prof.Stop()
	}

	if preset == "" {
		preset = cfg.Scenario
	}
	fmt.Printf("benchmarking %s: %d scenes\n\n", preset, scenes)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THREADS\tSTEPS\tTIME\tSTEPS/SEC\tDIVERGENCE")

	threadCounts := []int{0, 1, 2, 4}
	if cmd.Flags().Changed("threads") {
		threadCounts = []int{cfg.Threads}
	}
	for _, n := range threadCounts {
		c := cfg.Clone()
		c.Threads = n
		c.PVD.Enabled = false

		s, err := setup(c, scenes)
		if err != nil {
			return err
		}
		start := time.Now()
		results, err := s.RunAll(context.Background())
		elapsed := time.Since(start)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		total := 0
		for _, r := range results {
			total += r.StepsTaken
		}
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%s\n",
			n, total, elapsed.Round(time.Microsecond), float64(total)/elapsed.Seconds(), divergence(results, c.Dt))
	}
	return w.Flush()
}

// divergence reports how far the scenes of one bench run drifted apart. The
// scenes are built from the same config, so anything above zero means
// stepping is not deterministic.
func divergence(results []*sim.Result, dt float64) string {
	if len(results) < 2 {
		return "-"
	}
	body, err := findBody(results[0], "")
	if err != nil {
		return "-"
	}
	worst := 0.0
	for _, r := range results[1:] {
		for _, d := range analysis.Divergence(results[0], r, body) {
			worst = math.Max(worst, d)
		}
	}
	if worst == 0 {
		return "0"
	}
	sep := analysis.Divergence(results[0], results[len(results)-1], body)
	return fmt.Sprintf("%.2e (rate %.3f/s)", worst, analysis.DivergenceRate(sep, dt))
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, preset, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := setup(cfg, 1)
	if err != nil {
		return err
	}
	defer s.Close()

	title := preset
	if title == "" {
		title = cfg.Scenario
	}
	m, err := viz.NewModel(title, s.Simulator().Scene(), cfg.Dt, cfg.Steps)
	if err != nil {
		return err
	}
	if themeName != "" {
		m = m.WithTheme(viz.GetTheme(themeName))
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func servePVD(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "", log.Ltime)
	srv := pvd.NewServer(func(f pvd.Frame) {
		sleeping := 0
		for _, a := range f.Actors {
			if a.Sleeping {
				sleeping++
			}
		}
		fmt.Printf("scene %d frame %d: %d actors, %d sleeping\n", f.Scene, f.Frame, len(f.Actors), sleeping)
	}, logger)
	return srv.ListenAndServe(ctx, pvdAddr)
}
