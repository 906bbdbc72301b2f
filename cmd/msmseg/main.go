package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/msmseg/internal/analysis"
	"github.com/san-kum/msmseg/internal/config"
	"github.com/san-kum/msmseg/internal/experiment"
	"github.com/san-kum/msmseg/internal/export"
	"github.com/san-kum/msmseg/internal/optim"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/storage"
	"github.com/san-kum/msmseg/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	runName    string
	overlayOut string
	overlayK   int
	svgOut     string
	jsonOut    string
	noSave     bool
	history    bool
	sweepAxes  []string
	objective  string
	parallel   int
	logger     *log.Logger
)

// optionFlags mirror the configuration keys; only flags the user set
// override the loaded configuration.
var optionFlags struct {
	seed          []float64
	radius        float64
	rings         int
	perRing       int
	axial         string
	poles         string
	stiffness     float64
	weight        float64
	mass          float64
	springLaw     string
	externalForce string
	integrator    string
	dt            float64
	damping       float64
	epsilon       float64
	metric        string
	maxIterations int
	oobTolerance  int
	workers       int
	gradientMode  string
	sigma         float64
	flipY         bool
	flipZ         bool
	phantomRadius float64
	phantomNoise  float64
	phantomCenter []float64
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "msmseg",
		Short:         "nodule delineation with a mass-spring model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:           level,
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
				Prefix:          "msmseg",
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".msmseg", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "relax a mesh onto the nodule boundary",
		Args:  cobra.NoArgs,
		RunE:  runSegmentation,
	}
	addOptionFlags(runCmd)
	runCmd.Flags().StringVar(&overlayOut, "overlay", "", "write a PNG of the final mesh over one slice")
	runCmd.Flags().IntVar(&overlayK, "slice", -1, "overlay slice (default: the seed's slice)")
	runCmd.Flags().StringVar(&svgOut, "svg", "", "write an SVG of the final mesh")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "relax a mesh with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  watchSegmentation,
	}
	addOptionFlags(watchCmd)
	watchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the convergence of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the displacement curve as SVG")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export the final mesh of a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&jsonOut, "out", "-", "output file")
	exportJSONCmd.Flags().StringVar(&svgOut, "svg", "", "also write the mesh as SVG")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the points (or history) of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().BoolVar(&history, "history", false, "export per-iteration statistics instead of points")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-10s r=%-5g M=%-3d N=%-3d k=%-5g w=%-5g %s\n",
					name, cfg.Radius, cfg.RingCount, cfg.PointsPerRing, cfg.Stiffness, cfg.ExternalWeight, cfg.SpringLaw)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a configuration file with defaults (or a preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			logger.Info("config written", "path", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid-search numeric options for the best-scoring run",
		Args:  cobra.NoArgs,
		RunE:  sweepOptions,
	}
	addOptionFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "param", nil, "swept option as key=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&objective, "objective", "radius_spread", "metric to minimise")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent trials (0 = all CPUs)")

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd, initCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func addOptionFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml, or ini/gcfg)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&runName, "name", "", "run name (default: preset or \"run\")")

	f.Float64SliceVar(&optionFlags.seed, "seed", def.Seed, "seed point x,y,z")
	f.Float64Var(&optionFlags.radius, "radius", def.Radius, "initial sphere radius")
	f.IntVar(&optionFlags.rings, "rings", def.RingCount, "ring count M")
	f.IntVar(&optionFlags.perRing, "per-ring", def.PointsPerRing, "points per ring N")
	f.StringVar(&optionFlags.axial, "axial", def.AxialMode, "axial placement (spherical, slice-stack)")
	f.StringVar(&optionFlags.poles, "poles", def.PolePolicy, "pole policy (open, capped)")

	f.Float64Var(&optionFlags.stiffness, "stiffness", def.Stiffness, "spring stiffness k")
	f.Float64Var(&optionFlags.weight, "weight", def.ExternalWeight, "external force weight")
	f.Float64Var(&optionFlags.mass, "mass", def.Mass, "point mass")
	f.StringVar(&optionFlags.springLaw, "spring-law", def.SpringLaw, "spring law (linear, saturating)")
	f.StringVar(&optionFlags.externalForce, "external-force", def.ExternalForce, "external coupling (edge, intensity)")

	f.StringVar(&optionFlags.integrator, "integrator", def.Integrator, "integrator (semi-implicit-euler, euler, verlet)")
	f.Float64Var(&optionFlags.dt, "dt", def.Timestep, "timestep")
	f.Float64Var(&optionFlags.damping, "damping", def.Damping, "velocity damping in [0,1]")
	f.Float64Var(&optionFlags.epsilon, "epsilon", def.ConvergenceEpsilon, "convergence threshold")
	f.StringVar(&optionFlags.metric, "metric", def.ConvergenceMetric, "convergence metric (max, mean)")
	f.IntVar(&optionFlags.maxIterations, "max-iter", def.MaxIterations, "iteration limit")
	f.IntVar(&optionFlags.oobTolerance, "oob-tolerance", def.OutOfBoundsTolerance, "out-of-bounds samples tolerated per run")
	f.IntVar(&optionFlags.workers, "workers", def.Workers, "force evaluation workers (0 = all CPUs)")

	f.StringVar(&optionFlags.gradientMode, "gradient-mode", def.Gradient.Mode, "gradient mode (volume, slice)")
	f.Float64Var(&optionFlags.sigma, "sigma", def.Gradient.Sigma, "gaussian smoothing sigma")
	f.BoolVar(&optionFlags.flipY, "flip-y", def.Mapper.FlipY, "invert the row axis")
	f.BoolVar(&optionFlags.flipZ, "flip-z", def.Mapper.FlipZ, "invert the slice axis")

	f.Float64SliceVar(&optionFlags.phantomCenter, "phantom-center", def.Phantom.Center, "phantom nodule center x,y,z")
	f.Float64Var(&optionFlags.phantomRadius, "phantom-radius", def.Phantom.Radius, "phantom nodule radius")
	f.Float64Var(&optionFlags.phantomNoise, "noise", def.Phantom.Noise, "phantom noise sigma")
}

// loadConfig resolves preset, then config file, then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	o := &optionFlags
	if changed("seed") {
		cfg.Seed = o.seed
	}
	if changed("radius") {
		cfg.Radius = o.radius
	}
	if changed("rings") {
		cfg.RingCount = o.rings
	}
	if changed("per-ring") {
		cfg.PointsPerRing = o.perRing
	}
	if changed("axial") {
		cfg.AxialMode = o.axial
	}
	if changed("poles") {
		cfg.PolePolicy = o.poles
	}
	if changed("stiffness") {
		cfg.Stiffness = o.stiffness
	}
	if changed("weight") {
		cfg.ExternalWeight = o.weight
	}
	if changed("mass") {
		cfg.Mass = o.mass
	}
	if changed("spring-law") {
		cfg.SpringLaw = o.springLaw
	}
	if changed("external-force") {
		cfg.ExternalForce = o.externalForce
	}
	if changed("integrator") {
		cfg.Integrator = o.integrator
	}
	if changed("dt") {
		cfg.Timestep = o.dt
	}
	if changed("damping") {
		cfg.Damping = o.damping
	}
	if changed("epsilon") {
		cfg.ConvergenceEpsilon = o.epsilon
	}
	if changed("metric") {
		cfg.ConvergenceMetric = o.metric
	}
	if changed("max-iter") {
		cfg.MaxIterations = o.maxIterations
	}
	if changed("oob-tolerance") {
		cfg.OutOfBoundsTolerance = o.oobTolerance
	}
	if changed("workers") {
		cfg.Workers = o.workers
	}
	if changed("gradient-mode") {
		cfg.Gradient.Mode = o.gradientMode
	}
	if changed("sigma") {
		cfg.Gradient.Sigma = o.sigma
	}
	if changed("flip-y") {
		cfg.Mapper.FlipY = o.flipY
	}
	if changed("flip-z") {
		cfg.Mapper.FlipZ = o.flipZ
	}
	if changed("phantom-center") {
		cfg.Phantom.Center = o.phantomCenter
	}
	if changed("phantom-radius") {
		cfg.Phantom.Radius = o.phantomRadius
	}
	if changed("noise") {
		cfg.Phantom.Noise = o.phantomNoise
	}
	return cfg, nil
}

func name() string {
	switch {
	case runName != "":
		return runName
	case preset != "":
		return preset
	}
	return "run"
}

func setup(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg, experiment.WithLogger(logger))

	start := time.Now()
	if err := exp.Setup(cmd.Context()); err != nil {
		return nil, err
	}
	logger.Info("field ready", "external_force", cfg.ExternalForce, "elapsed", time.Since(start).Round(time.Millisecond))
	return exp, nil
}

func runSegmentation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	exp, err := setup(cmd)
	if err != nil {
		return err
	}

	logger.Info("relaxing", "points", exp.InitialMesh().Len(), "integrator", exp.Config().Integrator)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	if err := finish(exp, result); err != nil {
		return err
	}

	printSummary(result, elapsed)
	return runErr
}

func watchSegmentation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	// the TUI owns the terminal; keep log output to warnings
	logger.SetLevel(max(logger.GetLevel(), log.WarnLevel))

	exp, err := setup(cmd)
	if err != nil {
		return err
	}

	run := func(ctx context.Context, obs relax.Observer) (*relax.Result, error) {
		exp.Simulator().AddObserver(obs)
		return exp.Run(ctx)
	}
	model := viz.NewLiveModel(ctx, name(), exp.InitialMesh(), exp.Config().MaxIterations, run)

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	result, runErr := final.(viz.LiveModel).Result()
	if result == nil {
		return runErr
	}
	if err := finish(exp, result); err != nil {
		return err
	}
	printSummary(result, 0)
	return runErr
}

// finish stores the run and writes the requested artifacts.
func finish(exp *experiment.Experiment, result *relax.Result) error {
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(name(), exp.Config(), result)
		if err != nil {
			return err
		}
		logger.Info("run stored", "id", runID)
	}

	if svgOut != "" {
		svg := export.MeshSVG(result.Mesh, result.OutOfBounds, 800, 800)
		if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
			return err
		}
		logger.Info("svg written", "path", svgOut)
	}

	if overlayOut != "" {
		k := overlayK
		if k < 0 {
			k = exp.Mapper().SliceOf(result.Mesh.Seed.Z)
		}
		img, err := viz.Overlay(exp.Volume(), exp.Mapper(), result.Mesh, k)
		if err != nil {
			return err
		}
		if err := viz.WritePNG(overlayOut, img); err != nil {
			return err
		}
		logger.Info("overlay written", "path", overlayOut, "slice", k, "stamped", viz.Stamped(img))
	}
	return nil
}

func printSummary(result *relax.Result, elapsed time.Duration) {
	var s strings.Builder
	s.WriteString(viz.Title.Render("msmseg") + "  " + viz.StateBadge(result.State) + "\n\n")
	s.WriteString(viz.Metric("iterations", strconv.Itoa(result.Iterations)) + "\n")
	s.WriteString(viz.Metric("points", strconv.Itoa(result.Mesh.Len())) + "\n")
	if elapsed > 0 {
		s.WriteString(viz.Metric("elapsed", elapsed.Round(time.Millisecond).String()) + "\n")
	}
	for _, k := range slices.Sorted(maps.Keys(result.Metrics)) {
		s.WriteString(viz.Metric(k, fmt.Sprintf("%.6g", result.Metrics[k])) + "\n")
	}
	if result.Err != nil {
		s.WriteString("\n" + viz.StatusFailed.Render(result.Err.Error()))
	}
	fmt.Println(viz.Panel.Render(s.String()))
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
	fmt.Fprintln(w, "ID\tSTATE\tITER\tPOINTS\tTIME\tMEAN RADIUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%.3f\n",
			run.ID,
			run.State,
			run.Iterations,
			run.Points,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Metrics["mean_radius"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if len(hist) == 0 {
		return fmt.Errorf("no iterations to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("state: %s\n", viz.StateBadgeString(meta.State))
	fmt.Printf("iterations: %d\n\n", len(hist))

	series := []struct {
		caption string
		value   func(relax.IterationStats) float64
	}{
		{"max displacement", func(h relax.IterationStats) float64 { return h.MaxDisplacement }},
		{"mean displacement", func(h relax.IterationStats) float64 { return h.MeanDisplacement }},
		{"kinetic energy", func(h relax.IterationStats) float64 { return h.KineticEnergy }},
	}
	for _, s := range series {
		data := make([]float64, len(hist))
		for i, h := range hist {
			data[i] = s.value(h)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	eps := 0.0
	if meta.Config != nil {
		eps = meta.Config.ConvergenceEpsilon
	}
	rep := analysis.Analyze(hist, eps)
	if rep.Fitted {
		fmt.Println(viz.Metric("decay rate", fmt.Sprintf("%.4f / iteration", rep.Rate)))
		fmt.Println(viz.Metric("half-life", fmt.Sprintf("%.1f iterations", rep.HalfLife)))
		if rep.Predicted >= 0 {
			fmt.Println(viz.Metric("predicted", fmt.Sprintf("epsilon at iteration %d", rep.Predicted)))
		}
	}
	if rep.Period > 0 {
		fmt.Println(viz.Metric("ringing period", fmt.Sprintf("%.1f iterations", rep.Period)))
	}

	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(export.ConvergenceSVG(hist, 800, 300)), 0644); err != nil {
			return err
		}
		logger.Info("svg written", "path", svgOut)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	m, err := st.LoadMesh(runID)
	if err != nil {
		return err
	}
	points, err := st.LoadPoints(runID)
	if err != nil {
		return err
	}

	doc := export.FromMesh(m)
	doc.State = meta.State
	doc.Iterations = meta.Iterations
	doc.Error = meta.Error
	doc.Metrics = meta.Metrics
	for _, p := range points {
		doc.Points[p.ID].Displacement = p.Displacement
		doc.Points[p.ID].OutOfBounds = p.OutOfBounds
	}

	if svgOut != "" {
		oob := make(map[int]int)
		for _, p := range points {
			if p.OutOfBounds > 0 {
				oob[p.ID] = p.OutOfBounds
			}
		}
		if err := os.WriteFile(svgOut, []byte(export.MeshSVG(m, oob, 800, 800)), 0644); err != nil {
			return err
		}
	}

	if jsonOut == "" || jsonOut == "-" {
		return export.WriteJSON(os.Stdout, doc)
	}
	f, err := os.Create(jsonOut)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if history {
		hist, err := st.LoadHistory(runID)
		if err != nil {
			return err
		}
		if err := w.Write([]string{"iteration", "max_displacement", "mean_displacement", "kinetic_energy", "out_of_bounds"}); err != nil {
			return err
		}
		for _, h := range hist {
			row := []string{
				strconv.Itoa(h.Iteration),
				strconv.FormatFloat(h.MaxDisplacement, 'f', 6, 64),
				strconv.FormatFloat(h.MeanDisplacement, 'f', 6, 64),
				strconv.FormatFloat(h.KineticEnergy, 'f', 6, 64),
				strconv.Itoa(h.OutOfBounds),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	points, err := st.LoadPoints(runID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return errors.New("no data to export")
	}
	if err := w.Write([]string{"id", "ring", "lon", "x", "y", "z", "displacement"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.Ring),
			strconv.Itoa(p.Lon),
			strconv.FormatFloat(p.X, 'f', 6, 64),
			strconv.FormatFloat(p.Y, 'f', 6, 64),
			strconv.FormatFloat(p.Z, 'f', 6, 64),
			strconv.FormatFloat(p.Displacement, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func parseAxis(param string) (optim.Axis, error) {
	key, list, ok := strings.Cut(param, "=")
	if !ok || key == "" || list == "" {
		return optim.Axis{}, fmt.Errorf("bad --param %q, want key=v1,v2", param)
	}
	axis := optim.Axis{Key: strings.TrimSpace(key)}
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return optim.Axis{}, fmt.Errorf("bad --param %q: %w", param, err)
		}
		axis.Values = append(axis.Values, v)
	}
	return axis, nil
}

func sweepOptions(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(sweepAxes) == 0 {
		return fmt.Errorf("at least one --param is required (numeric options: %s)", strings.Join(config.Tunables(), ", "))
	}
	axes := make([]optim.Axis, 0, len(sweepAxes))
	for _, param := range sweepAxes {
		axis, err := parseAxis(param)
		if err != nil {
			return err
		}
		axes = append(axes, axis)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	g := optim.NewGridSearch(axes)
	g.SetParallel(parallel)
	logger.Info("sweeping", "trials", g.Size(), "objective", objective)

	start := time.Now()
	best, trials, err := g.Search(ctx, cfg, nil, objective)
	if err != nil && !errors.Is(err, optim.ErrNoTrials) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(axes)+3)
	for _, a := range axes {
		header = append(header, strings.ToUpper(a.Key))
	}
	header = append(header, "STATE", "ITER", strings.ToUpper(objective))
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, tr := range trials {
		row := make([]string, 0, len(header))
		for _, a := range axes {
			row = append(row, strconv.FormatFloat(tr.Params[a.Key], 'g', -1, 64))
		}
		score := "-"
		if !math.IsInf(tr.Score, 1) {
			score = fmt.Sprintf("%.6g", tr.Score)
		}
		row = append(row, tr.State.String(), strconv.Itoa(tr.Iterations), score)
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info("sweep finished", "elapsed", time.Since(start).Round(time.Millisecond))
	if best == nil {
		return optim.ErrNoTrials
	}
	fmt.Println()
	for _, a := range axes {
		fmt.Println(viz.Metric(a.Key, strconv.FormatFloat(best.Params[a.Key], 'g', -1, 64)))
	}
	fmt.Println(viz.Metric(objective, fmt.Sprintf("%.6g", best.Score)))
	return nil
}
