package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/san-kum/conservation/internal/analysis"
	"github.com/san-kum/conservation/internal/archive"
	"github.com/san-kum/conservation/internal/automation"
	"github.com/san-kum/conservation/internal/config"
	"github.com/san-kum/conservation/internal/experiment"
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/export"
	"github.com/san-kum/conservation/internal/growth"
	"github.com/san-kum/conservation/internal/optim"
	"github.com/san-kum/conservation/internal/sim"
	"github.com/san-kum/conservation/internal/storage"
	"github.com/san-kum/conservation/internal/store"
	"github.com/san-kum/conservation/internal/tui"
	"github.com/san-kum/conservation/internal/viz"
)

var (
	dataDir     string
	archivePath string
	logLevel    string
	configFile  string
	preset      string

	policyName    string
	repetitions   int
	seed          uint64
	horizon       int
	replicates    int
	logFile       string
	paramFlags    []string
	deterministic bool
	noSave        bool
	watch         bool
	frameRate     int

	value  float64
	target float64
	kp     float64
	ki     float64
	kd     float64

	points  int
	outFile string
	svgFile string
	plotRep int
	theme   string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	x0         float64
	transient  int
	record     int
	threshold  float64

	gridFlags []string
	batchSize int
	limit     int
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "conservation",
		Short:         "population dynamics control lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run directory (default $CONSERVATION_DATA or runs)")
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", "", "sqlite archive (default $CONSERVATION_ARCHIVE or runs/archive.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	runCmd := &cobra.Command{
		Use:   "run [env]",
		Short: "run a policy on an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw the population while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 20, "frame rate for --watch")

	policyfnCmd := &cobra.Command{
		Use:   "policyfn [env]",
		Short: "sample a policy's action over the observation range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  policyFunction,
	}
	addRunFlags(policyfnCmd)
	policyfnCmd.Flags().IntVar(&points, "points", 21, "grid points on [-1, 1]")

	envsCmd := &cobra.Command{
		Use:   "envs",
		Short: "list registered environments and policies",
		RunE:  listEnvs,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [env]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotRep, "rep", 0, "repetition to plot")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the population trace as SVG")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	playCmd := &cobra.Command{
		Use:   "play [env]",
		Short: "choose every action yourself",
		Args:  cobra.MaximumNArgs(1),
		RunE:  play,
	}
	addRunFlags(playCmd)

	liveCmd := &cobra.Command{
		Use:   "live [env]",
		Short: "watch a policy in the terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", "forest", "color theme: "+strings.Join(viz.ThemeNames(), ", "))

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [model]",
		Short: "bifurcation diagram of a deterministic growth map",
		Args:  cobra.ExactArgs(1),
		RunE:  bifurcation,
	}
	addSweepFlags(bifurcationCmd, "r", 0.1, 3.0)
	bifurcationCmd.Flags().IntVar(&record, "record", 64, "recorded steps per value")
	bifurcationCmd.Flags().StringVar(&svgFile, "svg", "", "also write the diagram as SVG")

	tippingCmd := &cobra.Command{
		Use:   "tipping [model]",
		Short: "find where the long-run population collapses",
		Args:  cobra.ExactArgs(1),
		RunE:  tipping,
	}
	addSweepFlags(tippingCmd, "a", 0, 0.5)
	tippingCmd.Flags().Float64Var(&threshold, "threshold", 0.3, "collapse threshold")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "cycle and chaos analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&plotRep, "rep", 0, "repetition to analyze")
	analyzeCmd.Flags().StringVar(&svgFile, "svg", "", "also write the return map as SVG")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [env]",
		Short: "grid search over policy parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  optimize,
	}
	addRunFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&gridFlags, "grid", nil, "name=lo:hi:steps or name=v1,v2,...")
	optimizeCmd.Flags().IntVar(&batchSize, "batch", 4, "independent environments per grid point")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "ignore save flags in the scenario")

	sweepCmd := &cobra.Command{
		Use:   "sweep [env]",
		Short: "sweep an environment parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "a", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "lowest value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "highest value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 11, "number of values")

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "query the run archive",
	}
	archiveSyncCmd := &cobra.Command{
		Use:   "sync",
		Short: "record every stored run in the archive",
		RunE:  archiveSync,
	}
	archiveBestCmd := &cobra.Command{
		Use:   "best [env]",
		Short: "runs with the highest mean reward",
		Args:  cobra.ExactArgs(1),
		RunE:  archiveBest,
	}
	archiveBestCmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	archiveRecentCmd := &cobra.Command{
		Use:   "recent",
		Short: "most recently archived runs",
		RunE:  archiveRecent,
	}
	archiveRecentCmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	archiveEpisodesCmd := &cobra.Command{
		Use:   "episodes [run_id]",
		Short: "per-episode results of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  archiveEpisodes,
	}
	archiveCmd.AddCommand(archiveSyncCmd, archiveBestCmd, archiveRecentCmd, archiveEpisodesCmd)

	rootCmd.AddCommand(runCmd, policyfnCmd, envsCmd, presetsCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd,
		playCmd, liveCmd, bifurcationCmd, tippingCmd, analyzeCmd, optimizeCmd, scenarioCmd, sweepCmd, archiveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&policyName, "policy", config.DefaultPolicy, "policy name")
	cmd.Flags().IntVar(&repetitions, "reps", config.DefaultRepetitions, "episodes to run")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 draws one)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "episode horizon Tmax (0 keeps the env default)")
	cmd.Flags().IntVar(&replicates, "replicates", 0, "ensemble replicate count (0 keeps the env default)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append the trajectory log to this CSV file")
	cmd.Flags().StringArrayVarP(&paramFlags, "set", "s", nil, "environment parameter override name=value")
	cmd.Flags().BoolVar(&deterministic, "deterministic", false, "ask policies for deterministic actions")
	cmd.Flags().Float64Var(&value, "value", 0, "fixed policy action")
	cmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "target state or parameter")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	cmd.Flags().Float64Var(&ki, "ki", 0, "pid ki")
	cmd.Flags().Float64Var(&kd, "kd", 0, "pid kd")
}

func addSweepFlags(cmd *cobra.Command, param string, lo, hi float64) {
	cmd.Flags().StringArrayVarP(&paramFlags, "set", "s", nil, "model parameter override name=value")
	cmd.Flags().StringVar(&sweepParam, "param", param, "parameter to sweep")
	cmd.Flags().Float64Var(&sweepMin, "min", lo, "lowest value")
	cmd.Flags().Float64Var(&sweepMax, "max", hi, "highest value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 200, "number of values")
	cmd.Flags().Float64Var(&x0, "x0", 0, "initial population (0 uses the model default)")
	cmd.Flags().IntVar(&transient, "transient", 500, "discarded steps per value")
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig layers defaults, preset, config file, environment and
// changed flags, in that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	envName := ""
	if len(args) > 0 {
		envName = args[0]
	}

	if preset != "" {
		presetEnv := envName
		if presetEnv == "" {
			presetEnv = config.DefaultEnv
		}
		p := config.GetPreset(presetEnv, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(presetEnv))
		}
		cfg = p
	}

	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	cfg.ApplyEnv()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if archivePath != "" {
		cfg.Archive = archivePath
	}
	if envName != "" {
		cfg.Env = envName
	}

	f := cmd.Flags()
	if f.Changed("policy") {
		cfg.Policy = policyName
	}
	if f.Changed("reps") {
		cfg.Repetitions = repetitions
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if f.Changed("replicates") {
		cfg.Replicates = replicates
	}
	if f.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if f.Changed("deterministic") {
		cfg.Deterministic = deterministic
	}
	if f.Changed("value") {
		cfg.PolicyParams.Value = value
	}
	if f.Changed("target") {
		cfg.PolicyParams.Target = target
	}
	if f.Changed("kp") {
		cfg.PolicyParams.Kp = kp
	}
	if f.Changed("ki") {
		cfg.PolicyParams.Ki = ki
	}
	if f.Changed("kd") {
		cfg.PolicyParams.Kd = kd
	}

	overrides, err := parseParams(paramFlags)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(overrides))
	}
	for k, v := range overrides {
		cfg.Params[k] = v
	}

	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParams(flags []string) (map[string]float64, error) {
	out := make(map[string]float64, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", f)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg.Experiment())
	if err := exp.Setup(registry, registry.DefaultMetrics()); err != nil {
		return err
	}
	defer exp.Close()

	if watch {
		r := tui.NewLiveRenderer(os.Stdout, cfg.Env+" / "+cfg.Policy, exp.Env().Params().K, frameRate)
		exp.GetSimulator().AddObserver(r)
		r.Start()
		defer r.Stop()
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("running experiment", "env", cfg.Env, "policy", cfg.Policy, "reps", cfg.Repetitions, "seed", cfg.Seed)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		id, err := saveRun(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	fmt.Printf("episodes: %d\n", len(result.Episodes))
	fmt.Printf("mean reward: %.6f\n", sim.MeanReward([]*sim.Result{result}))
	printMetrics(os.Stdout, result.Metrics)
	return nil
}

// saveRun stores the run directory and records it in the archive. An
// unavailable archive is logged, not fatal.
func saveRun(cfg *config.Config, result *sim.Result) (string, error) {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	ec := cfg.Experiment()
	meta := storage.RunMetadata{
		Env:          ec.Env,
		Policy:       ec.Policy,
		Seed:         ec.Seed,
		Repetitions:  ec.Repetitions,
		Horizon:      ec.Horizon,
		Replicates:   ec.Replicates,
		Params:       ec.Params,
		PolicyParams: ec.PolicyParams,
	}
	id, err := st.Save(meta, result)
	if err != nil {
		return "", err
	}

	saved, err := st.Load(id)
	if err != nil {
		return id, err
	}
	db, err := archive.Open(cfg.Archive)
	if err != nil {
		slog.Warn("archive unavailable", "path", cfg.Archive, "err", err)
		return id, nil
	}
	defer db.Close()
	if err := db.Record(*saved); err != nil {
		slog.Warn("archive record failed", "run", id, "err", err)
	}
	return id, nil
}

func printMetrics(w io.Writer, metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, metrics[name])
	}
}

func policyFunction(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()
	ec := cfg.Experiment()
	e, err := registry.NewEnv(ec.Env, ec.Params, ec.Options()...)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := registry.GetPolicy(ec.Policy, e, ec.PolicyParams)
	if err != nil {
		return err
	}
	pts, err := sim.EstimatePolicyFunction(e, p, ec.Repetitions, points)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tACTION\tREP")
	for _, pt := range pts {
		fmt.Fprintf(w, "%.4f\t%.4f\t%d\n", pt.State, pt.Action, pt.Rep)
	}
	return w.Flush()
}

func listEnvs(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENV\tMODEL\tACTIONS\tHORIZON\tREPLICATES")
	for _, name := range registry.ListEnvs() {
		spec, err := registry.GetSpec(name)
		if err != nil {
			return err
		}
		model := spec.Variant.Model.String()
		if len(spec.Variant.Models) > 0 {
			model = "uncertain"
		}
		actions := strconv.Itoa(spec.Variant.ActionDim)
		if spec.Variant.Discrete > 0 {
			actions = fmt.Sprintf("discrete(%d)", spec.Variant.Discrete)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", name, model, actions, spec.Horizon, max(spec.Replicates, 1))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\npolicies: %s\n", strings.Join(registry.ListPolicies(), ", "))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	envs := config.ListPresetEnvs()
	if len(args) > 0 {
		envs = args
	}
	for _, e := range envs {
		presets := config.ListPresets(e)
		if len(presets) == 0 {
			fmt.Printf("no presets for env: %s\n", e)
			continue
		}
		fmt.Printf("presets for %s:\n", e)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func openStore() *storage.Store {
	cfg := config.DefaultConfig()
	cfg.ApplyEnv()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return storage.New(cfg.DataDir)
}

func openArchive() (*archive.DB, error) {
	cfg := config.DefaultConfig()
	cfg.ApplyEnv()
	if archivePath != "" {
		cfg.Archive = archivePath
	}
	return archive.Open(cfg.Archive)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := openStore().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENV\tPOLICY\tTIME\tREPS\tMEAN REWARD")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\n",
			run.ID,
			run.Env,
			run.Policy,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Repetitions,
			run.MeanReward(),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	rows := traj.Rep(plotRep)
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot for rep %d", plotRep)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("env: %s  policy: %s\n", meta.Env, meta.Policy)
	fmt.Printf("steps: %d\n\n", len(rows))

	for _, col := range []string{"state", "action", "reward"} {
		graph := asciigraph.Plot(rows.Column(col),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs year"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(export.TrajectoryToSVG(traj, "state", 800, 400)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	traj, err := openStore().LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := traj.WriteCSV(w); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	result := &sim.Result{Trajectory: traj, Episodes: meta.Episodes, Metrics: meta.Metrics}

	if outFile != "" {
		return store.ExportJSON(outFile, meta.Env, meta.Policy, result)
	}
	return store.WriteJSON(os.Stdout, meta.Env, meta.Policy, result)
}

func play(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Policy = "user"
	cfg.Repetitions = 1

	registry := experiment.NewRegistry()
	registry.SetConsole(os.Stdin, os.Stdout)
	exp := experiment.New(cfg.Experiment())
	if err := exp.Setup(registry, registry.DefaultMetrics()); err != nil {
		return err
	}
	defer exp.Close()

	fmt.Printf("%s: enter an action in [-1, 1] each year (one value per control)\n", cfg.Env)
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("\nyears survived: %d\n", result.Episodes[0].Steps)
	fmt.Printf("total reward: %.4f\n", result.Episodes[0].Reward)
	if result.Episodes[0].Collapsed {
		fmt.Println("the population collapsed")
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	if len(args) == 0 && configFile == "" && preset == "" {
		return viz.RunInteractive(registry)
	}

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ec := cfg.Experiment()
	e, err := registry.NewEnv(ec.Env, ec.Params, ec.Options()...)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := registry.GetPolicy(ec.Policy, e, ec.PolicyParams)
	if err != nil {
		return err
	}
	return viz.Run(e, p, ec.Env+" / "+ec.Policy, theme)
}

// mapParams returns a growth model and its noise-free default
// parameters with overrides applied, plus the starting population.
func mapParams(name string) (growth.Model, ecology.Params, float64, error) {
	m, err := growth.Parse(name)
	if err != nil {
		return 0, ecology.Params{}, 0, err
	}
	p := growth.DefaultParams(m)
	p.Sigma = 0
	overrides, err := parseParams(paramFlags)
	if err != nil {
		return 0, ecology.Params{}, 0, err
	}
	if err := p.Apply(overrides); err != nil {
		return 0, ecology.Params{}, 0, err
	}
	start := x0
	if start == 0 {
		start = p.X0
	}
	return m, p, start, nil
}

// sweepSpec reads the range flags of cmd. Commands share the backing
// variables but not their defaults.
func sweepSpec(cmd *cobra.Command) (analysis.Sweep, error) {
	f := cmd.Flags()
	name, err := f.GetString("param")
	if err != nil {
		return analysis.Sweep{}, err
	}
	lo, err := f.GetFloat64("min")
	if err != nil {
		return analysis.Sweep{}, err
	}
	hi, err := f.GetFloat64("max")
	if err != nil {
		return analysis.Sweep{}, err
	}
	steps, err := f.GetInt("steps")
	if err != nil {
		return analysis.Sweep{}, err
	}
	return analysis.Sweep{Name: name, Min: lo, Max: hi, Steps: steps}, nil
}

func bifurcation(cmd *cobra.Command, args []string) error {
	m, p, start, err := mapParams(args[0])
	if err != nil {
		return err
	}
	sw, err := sweepSpec(cmd)
	if err != nil {
		return err
	}
	data, err := analysis.BifurcationDiagram(m, p, sw, start, transient, record)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s in [%g, %g]\n\n", m, sw.Name, sw.Min, sw.Max)
	fmt.Print(analysis.BifurcationToASCII(data, 80, 24))

	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(export.BifurcationToSVG(data, 800, 400)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func tipping(cmd *cobra.Command, args []string) error {
	m, p, start, err := mapParams(args[0])
	if err != nil {
		return err
	}
	sw, err := sweepSpec(cmd)
	if err != nil {
		return err
	}
	eq, err := analysis.Equilibria(m, p, sw, start, transient)
	if err != nil {
		return err
	}
	states := make([]float64, len(eq))
	for i, e := range eq {
		states[i] = e.State
	}
	fmt.Println(asciigraph.Plot(states, asciigraph.Height(10), asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("long-run population vs %s", sw.Name))))

	v, found, err := analysis.TippingPoint(m, p, sw, start, transient, threshold)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("\nno collapse below %.3f for %s in [%g, %g]\n", threshold, sw.Name, sw.Min, sw.Max)
		return nil
	}
	fmt.Printf("\ntipping point: %s = %.4f\n", sw.Name, v)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	states := traj.Rep(plotRep).Column("state")
	if len(states) < 4 {
		return fmt.Errorf("need at least 4 samples, got %d", len(states))
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Env)

	ps := analysis.PowerSpectrum(states)
	if len(ps) > 1 {
		fmt.Println(asciigraph.Plot(ps[1:], asciigraph.Height(8), asciigraph.Width(60),
			asciigraph.Caption("power spectrum")))
	}
	if period := analysis.DominantPeriod(states); period > 0 {
		fmt.Printf("\ndominant period: %.2f years\n", period)
	} else {
		fmt.Println("\nno dominant cycle")
	}

	rm := analysis.ReturnMap(states)
	fmt.Println("\nreturn map (x_t, x_t+1):")
	fmt.Print(analysis.ReturnMapToASCII(rm, 40, 16))

	registry := experiment.NewRegistry()
	if spec, err := registry.GetSpec(meta.Env); err == nil && len(spec.Variant.Models) == 0 {
		p := spec.Params
		if err := p.Apply(meta.Params); err == nil {
			lambda := analysis.LyapunovExponent(spec.Variant.Model, p, p.X0, 200, 1000)
			fmt.Printf("\nlyapunov exponent of the %s map: %.4f", spec.Variant.Model, lambda)
			if lambda > 0 {
				fmt.Print(" (chaotic)")
			}
			fmt.Println()
		}
	}

	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(export.PointsToSVG(rm, 400, 400)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

// parseGrid accepts name=lo:hi:steps or name=v1,v2,...
func parseGrid(flags []string) ([]string, [][]float64, error) {
	var names []string
	var ranges [][]float64
	for _, f := range flags {
		name, spec, ok := strings.Cut(f, "=")
		if !ok {
			return nil, nil, fmt.Errorf("invalid grid %q", f)
		}
		var vals []float64
		if parts := strings.Split(spec, ":"); len(parts) == 3 {
			lo, err1 := strconv.ParseFloat(parts[0], 64)
			hi, err2 := strconv.ParseFloat(parts[1], 64)
			n, err3 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil || err3 != nil || n < 1 {
				return nil, nil, fmt.Errorf("invalid grid range %q", spec)
			}
			vals = optim.Range(lo, hi, n)
		} else {
			for _, s := range strings.Split(spec, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return nil, nil, fmt.Errorf("grid %s: %w", name, err)
				}
				vals = append(vals, v)
			}
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func optimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(gridFlags) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(gridFlags)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eval := optim.PolicyEvaluator(experiment.NewRegistry(), cfg.Experiment(), batchSize)
	res, err := optim.NewGridSearch(names, ranges).Search(ctx, eval)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tMEAN REWARD")
	for _, t := range res.Trials {
		for _, n := range names {
			fmt.Fprintf(w, "%.4f\t", t.Params[n])
		}
		fmt.Fprintf(w, "%.4f\n", t.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest for %s / %s: %v (mean reward %.4f)\n", cfg.Env, cfg.Policy, res.Best, res.Score)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = openStore()
		if err := st.Init(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st, slog.Default())
	if len(results) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tENV\tPOLICY\tMEAN REWARD\tCOLLAPSE RATE\tRUN")
		for _, r := range results {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.2f\t%s\n", r.Step, r.Config.Env, r.Config.Policy,
				r.Result.Metrics["episode_reward"], r.Result.Metrics["collapse_rate"], r.RunID)
		}
		w.Flush()
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sw, err := sweepSpec(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg.Experiment(),
		ParamName: sw.Name,
		ParamMin:  sw.Min,
		ParamMax:  sw.Max,
		NumSteps:  sw.Steps,
	}, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEAN REWARD\tCOLLAPSE RATE\tPERSISTENCE\tMIN STATE\n", strings.ToUpper(sw.Name))
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%.4f\t%.2f\t%.2f\t%.4f\n", r.ParamValue, r.MeanReward, r.CollapseRate, r.Persistence, r.MinState)
	}
	return w.Flush()
}

func archiveSync(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Sync(openStore())
	if err != nil {
		return err
	}
	total, err := db.Count()
	if err != nil {
		return err
	}
	fmt.Printf("recorded %d runs (%d archived)\n", n, total)
	return nil
}

func printSummaries(runs []archive.RunSummary) error {
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENV\tPOLICY\tCREATED\tMEAN REWARD\tCOLLAPSE RATE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%.2f\n", r.ID, r.Env, r.Policy,
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.MeanReward, r.CollapseRate)
	}
	return w.Flush()
}

func archiveBest(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Best(args[0], limit)
	if err != nil {
		return err
	}
	return printSummaries(runs)
}

func archiveRecent(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Recent(limit)
	if err != nil {
		return err
	}
	return printSummaries(runs)
}

func archiveEpisodes(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	eps, err := db.Episodes(args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REP\tSTEPS\tREWARD\tCOLLAPSED")
	for _, ep := range eps {
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%t\n", ep.Rep, ep.Steps, ep.Reward, ep.Collapsed)
	}
	return w.Flush()
}

