// Package main is the entry point for the ondas CLI
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/ohmyondas/ondas/pkg/api"
	"github.com/ohmyondas/ondas/pkg/config"
	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/midiout"
	"github.com/ohmyondas/ondas/pkg/player"
	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
	"github.com/ohmyondas/ondas/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
	log *slog.Logger

	outputFile string
	midiPort   string
	slot       int
	tempo      float64
	seconds    float64
	loops      int
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ondas",
	Short: "Step sequencer with trig conditions and parameter locks",
	Long: `ondas is an 8-track, 64-step sequencer. It drives an external sampler
over MIDI, can be edited from a terminal grid or over HTTP, and converts
patterns to and from Standard MIDI Files.

Examples:
  ondas play --slot 3 --port "IAC Driver"
  ondas tui
  ondas serve --port 8080
  ondas simulate --slot 3 --seconds 8
  ondas export 3 -o groove.mid
  ondas import groove.mid --slot 4`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a pattern headless to a MIDI output",
	RunE:  runPlay,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive grid editor",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a pattern on a simulated clock and print its triggers",
	RunE:  runSimulate,
}

var exportCmd = &cobra.Command{
	Use:   "export <slot>",
	Short: "Render a stored pattern to a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <input>",
	Short: "Store a MIDI or JSON pattern file in a slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert between pattern JSON and MIDI files",
	Long:  `Detects the input format and converts to the format given by the output file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List stored pattern slots",
	RunE:  runPatterns,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	RunE:  runPorts,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/ondas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	for _, cmd := range []*cobra.Command{playCmd, tuiCmd, serveCmd, simulateCmd} {
		cmd.Flags().IntVarP(&slot, "slot", "s", -1, "Pattern slot to load on start")
		cmd.Flags().Float64VarP(&tempo, "tempo", "t", 0, "Tempo in BPM (default from config)")
	}
	for _, cmd := range []*cobra.Command{playCmd, tuiCmd, serveCmd} {
		cmd.Flags().StringVar(&midiPort, "midi-port", "", "MIDI output port name (substring match)")
	}

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	simulateCmd.Flags().Float64Var(&seconds, "seconds", 4, "Simulated run time")

	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	exportCmd.Flags().IntVarP(&loops, "loops", "l", 0, "Pattern repetitions (default from config)")

	importCmd.Flags().IntVarP(&slot, "slot", "s", 0, "Destination pattern slot")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(playCmd, tuiCmd, serveCmd, simulateCmd, exportCmd, importCmd, convertCmd, patternsCmd, portsCmd)
}

// setup loads the configuration and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	var err error
	if cfg, err = config.Load(path); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if tempo == 0 {
		tempo = cfg.Tempo
	}
	if loops == 0 {
		loops = cfg.Export.Loops
	}
	if loops < 1 || loops > converter.MaxExportLoops {
		return fmt.Errorf("--loops must be between 1 and %d", converter.MaxExportLoops)
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}
	if midiPort == "" {
		midiPort = cfg.MIDI.Port
	}
	return nil
}

func newConverter() *converter.Converter {
	notes := converter.DefaultNoteMap
	copy(notes[:], config.Notes(cfg.Export.Notes))
	opts := []converter.Option{
		converter.WithNoteMap(notes),
		converter.WithChannel(cfg.Export.Channel),
		converter.WithLogger(log),
	}
	if cfg.Seed != 0 {
		opts = append(opts, converter.WithSeed(cfg.Seed))
	}
	return converter.New(converter.NewMIDIConverter(opts...), tempo, loops)
}

// newEngine builds an engine over the configured pattern directory and loads
// the --slot pattern when one is given.
func newEngine(sink sequencer.TriggerSink) (*sequencer.Engine, error) {
	opts := []sequencer.Option{
		sequencer.WithStore(store.NewFileStore(cfg.PatternsDir, log)),
		sequencer.WithLogger(log),
		sequencer.WithTempo(tempo),
	}
	if cfg.Seed != 0 {
		opts = append(opts, sequencer.WithSeed(cfg.Seed))
	}
	e := sequencer.New(sink, opts...)
	if slot >= 0 {
		if err := e.LoadPattern(slot); err != nil {
			if !errors.Is(err, sequencer.ErrNotFound) {
				return nil, err
			}
			log.Info("slot is empty, starting from a blank pattern", "slot", slot)
		}
	}
	return e, nil
}

// openSink connects to a MIDI output. With required unset, a missing port
// leaves the engine silent.
func openSink(required bool) (sequencer.TriggerSink, func(), error) {
	send, err := midiout.Open(midiPort)
	if err != nil {
		if required {
			return nil, nil, err
		}
		log.Warn("MIDI output disabled", "err", err)
		return nil, func() {}, nil
	}
	sink := midiout.NewSink(send,
		midiout.WithChannelBase(cfg.MIDI.ChannelBase),
		midiout.WithBaseNotes(config.Notes(cfg.MIDI.BaseNotes)),
		midiout.WithBendRange(cfg.MIDI.BendRange),
		midiout.WithLogger(log),
	)
	return sink, midiout.Close, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPlay(cmd *cobra.Command, args []string) error {
	sink, closeSink, err := openSink(true)
	if err != nil {
		return err
	}
	defer closeSink()

	e, err := newEngine(sink)
	if err != nil {
		return err
	}
	p := player.New(e, player.WithLogger(log))

	ctx, stop := signalContext()
	defer stop()

	p.Start()
	fmt.Printf("Playing pattern %02d at %.1f BPM, ctrl+c to stop\n", e.CurrentPattern(), e.Tempo())
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	p.Stop()
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	sink, closeSink, err := openSink(false)
	if err != nil {
		return err
	}
	defer closeSink()

	e, err := newEngine(sink)
	if err != nil {
		return err
	}
	p := player.New(e, player.WithLogger(log))

	ctx, stop := signalContext()
	defer stop()

	wd, _ := os.Getwd()
	return tui.Run(ctx, p, newConverter(), tui.WithExportDir(wd))
}

func runServe(cmd *cobra.Command, args []string) error {
	sink, closeSink, err := openSink(false)
	if err != nil {
		return err
	}
	defer closeSink()

	e, err := newEngine(sink)
	if err != nil {
		return err
	}
	p := player.New(e, player.WithLogger(log))

	ctx, stop := signalContext()
	defer stop()
	go p.Run(ctx)

	fmt.Printf("Starting API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.StartServer(serverPort, p, newConverter())
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if seconds <= 0 {
		return errors.New("--seconds must be positive")
	}
	var now time.Duration
	sink := sequencer.TriggerFunc(func(tr sequencer.Trigger) {
		fmt.Printf("%9.3fs  T%d  step %02d  slot %d  vel %3d  pitch %+3d\n",
			now.Seconds(), tr.Track+1, tr.Step+1, tr.SourceSlot, tr.Velocity, tr.PitchOffset)
	})
	e, err := newEngine(sink)
	if err != nil {
		return err
	}

	end := time.Duration(seconds * float64(time.Second))
	e.Start(0)
	steps := 0
	for now = time.Millisecond; now <= end; now += time.Millisecond {
		if e.Tick(now) {
			steps++
		}
	}
	fmt.Printf("%d steps in %.1fs at %.1f BPM\n", steps, seconds, e.Tempo())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q", args[0])
	}
	slot = -1
	e, err := newEngine(nil)
	if err != nil {
		return err
	}
	if err := e.LoadPattern(n); err != nil {
		return err
	}

	output := outputFile
	if output == "" {
		output = fmt.Sprintf("pattern%02d.mid", n)
	}
	if err := newConverter().MIDI().WriteMIDIFile(e.Pattern(), e.GlobalTempo(), loops, output); err != nil {
		return err
	}
	fmt.Printf("Exported pattern %02d -> %s\n", n, output)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	p, err := newConverter().ReadPattern(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	fs := store.NewFileStore(cfg.PatternsDir, log)
	if err := fs.Save(slot, p); err != nil {
		return err
	}
	fmt.Printf("Imported %s -> %s\n", filepath.Base(input), fs.Path(slot))
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := newConverter().ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	defer midiout.Close()
	ports := midiout.ListPorts()
	if len(ports) == 0 {
		fmt.Println("No MIDI output ports found")
		return nil
	}
	fmt.Println(strings.Join(ports, "\n"))
	return nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	fs := store.NewFileStore(cfg.PatternsDir, log)
	slots, err := fs.Slots()
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Printf("No patterns in %s\n", fs.Dir())
		return nil
	}
	for _, n := range slots {
		fmt.Printf("%02d  %s\n", n, fs.Path(n))
	}
	return nil
}
