// Command wie runs WIPI applications (KTF/LGT/SKT feature-phone apps)
// under emulation.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mirusu400/wie/internal/archive"
	"github.com/mirusu400/wie/internal/backend"
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/config"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
	wlog "github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/methods/wipic"
	_ "github.com/mirusu400/wie/internal/methods/javaproto"
	"github.com/mirusu400/wie/internal/sched"
	"github.com/mirusu400/wie/internal/trace"
	"github.com/mirusu400/wie/internal/ui/colorize"
)

var (
	verbose    bool
	vendorFlag string
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wie",
		Short: "Run WIPI feature-phone apps under emulation",
		Long: `wie loads a KTF/LGT/SKT application archive and runs it under an ARM32
emulator (KTF, LGT) or directly against the Java bridge (SKT), with the
platform's C and Java method tables backed by host implementations.

Examples:
  wie run game.zip               # run an app, logging method-table calls
  wie run game.zip -v             # verbose trace output
  wie info game.zip               # show manifest/vendor info without running`,
		Args: cobra.NoArgs,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	rootCmd.PersistentFlags().StringVar(&vendorFlag, "vendor", "", "vendor profile hint (ktf, lgt, skt); overrides config")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to wie.yaml (defaults built in if absent)")

	runCmd := &cobra.Command{
		Use:   "run <app.zip>",
		Short: "Run an app archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runApp,
	}
	infoCmd := &cobra.Command{
		Use:   "info <app.zip>",
		Short: "Show archive manifest information",
		Args:  cobra.ExactArgs(1),
		RunE:  showInfo,
	}
	inspectCmd := &cobra.Command{
		Use:   "inspect <app.zip>",
		Short: "Run an app with a live scheduler/trace view",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	rootCmd.AddCommand(runCmd, infoCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	if configPath == "" {
		return config.Default()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}
	return cfg
}

func resolveVendor(cfg config.Config) config.Vendor {
	if vendorFlag != "" {
		return config.Vendor(vendorFlag)
	}
	return cfg.Vendor
}

func showInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	cfg := loadConfig()
	app, err := archive.Load(data, resolveVendor(cfg))
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}

	fmt.Printf("Archive: %s\n", filepath.Base(path))
	fmt.Printf("Vendor:  %s\n", app.Vendor)
	fmt.Printf("Main:    %s\n", app.MainClass)
	if app.BinaryModule != "" {
		id, _ := app.Resources.ID(app.BinaryModule)
		fmt.Printf("Module:  %s (%d bytes)\n", app.BinaryModule, app.Resources.Size(id))
	}
	fmt.Printf("Resources: %d\n", app.Resources.Len())
	for _, name := range app.Resources.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func runApp(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	cfg := loadConfig()
	vendor := resolveVendor(cfg)

	wlog.Init(verbose)
	logger := wlog.L

	app, err := archive.Load(data, vendor)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}

	be := backend.New(app.Resources, logger)
	collector := trace.NewCollector()
	logger.SetOnTrace(func(pc uint64, category, name, detail string) {
		e := trace.NewEvent(pc, category, name, detail)
		trace.DefaultEnricher(e)
		collector.Add(e)
	})

	if app.BinaryModule == "" {
		return runJavaOnly(app, be, logger)
	}

	run, err := startNative(app, be, logger)
	if err != nil {
		return err
	}
	defer run.core.Close()

	err = run.sched.Wait()
	if verbose {
		for _, e := range collector.Drain() {
			fmt.Printf("%s %s %s\n", colorize.Category(string(e.Tags.Primary())), e.Name, colorize.Instruction(e.Detail))
		}
		fmt.Printf("%s resolved hosts: %v\n", colorize.Category("network"), be.Network.CapturedHosts())
	}
	if err != nil {
		fmt.Printf("%s run failed: %v\n", colorize.Category(string(app.Vendor)), err)
		return err
	}
	return nil
}

// nativeRun holds everything started for a running KTF/LGT app: the
// scheduler driving it and the core it drives, so a caller can either
// block on Wait() (run) or poll Tasks()/the trace collector (inspect).
type nativeRun struct {
	core  *core.Core
	sched *sched.Scheduler
}

// startNative loads an app's ARM32 binary module, installs the WIPI C
// method tables and the Java bridge interface, and spawns its entry point
// as a scheduler task. It does not block on completion.
func startNative(app *archive.App, be *backend.Backend, logger *wlog.Logger) (*nativeRun, error) {
	c, err := core.New()
	if err != nil {
		return nil, fmt.Errorf("create core: %w", err)
	}

	moduleID, ok := app.Resources.ID(app.BinaryModule)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("binary module %s missing from resources", app.BinaryModule)
	}
	entry, err := c.LoadImage(app.Resources.Data(moduleID))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load binary module: %w", err)
	}

	cctx := cbridge.NewContext(c, app.Resources, logger)
	cctx.Network = be.Network
	if _, err := wipic.InstallAll(cctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("install C method tables: %w", err)
	}

	classes := javabridge.NewRegistry()
	jctx := javabridge.NewContext(c, classes, logger)
	jbInterface, err := javabridge.Install(jctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("install java bridge interface: %w", err)
	}
	logger.Info("java bridge installed", wlog.Ptr("interface", uint64(jbInterface)))

	s := sched.New(c)
	s.Spawn(func(t *sched.Task) error {
		// Thumb-bit convention: the LGT/KTF loaders jump to entry+1.
		_, err := t.Call(entry|1, nil)
		return err
	})

	return &nativeRun{core: c, sched: s}, nil
}

// runJavaOnly handles SKT apps: no ARM code runs (the core created here
// only holds the class registry's guest memory), and the main class is
// loaded directly through the Java bridge's class registry (mirrors the
// original's JvmCore split for this vendor).
func runJavaOnly(app *archive.App, be *backend.Backend, logger *wlog.Logger) error {
	c, err := core.New()
	if err != nil {
		return fmt.Errorf("create core: %w", err)
	}
	defer c.Close()

	classes := javabridge.NewRegistry()
	cl, err := classes.Load(c, app.MainClass)
	if err != nil {
		return fmt.Errorf("load main class %s: %w", app.MainClass, err)
	}

	logger.Info("skt main class loaded", wlog.Fn(cl.Name))
	fmt.Printf("%s %s\n", colorize.Category("java"), cl.Name)
	return nil
}
