// Command scriptgen writes workload scripts for the exchange simulator.
//
// Settings are layered: defaults, then .env and environment, then the chosen
// profile, then any flags given on the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/scriptgen/params"
	"github.com/uhyunpark/scriptgen/pkg/app/script"
	"github.com/uhyunpark/scriptgen/pkg/app/workload"
	"github.com/uhyunpark/scriptgen/pkg/sink"
	"github.com/uhyunpark/scriptgen/pkg/storage"
	"github.com/uhyunpark/scriptgen/pkg/util"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	clients      int
	transactions int
	instruments  int
	out          string
	cancel       bool
	round        bool
	seed         int64
	profile      string
	profileFile  string
	listProfiles bool
	count        int
	scope        string
	interactive  bool
	kafka        string
	replay       string
	envPath      string
	logLevel     string

	set map[string]bool // flags given explicitly
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("scriptgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&o.clients, "clients", 1, "number of clients")
	fs.IntVar(&o.transactions, "transactions", 100, "number of transactions")
	fs.IntVar(&o.instruments, "instruments", 1, "number of instruments, -1 for all")
	fs.StringVar(&o.out, "out", "test.in", "output file name, - for stdout")
	fs.BoolVar(&o.cancel, "cancel", true, "include cancel operations")
	fs.BoolVar(&o.round, "round", true, "use round numbers for price and count")
	fs.Int64Var(&o.seed, "seed", 0, "random seed, 0 derives one from the clock")
	fs.StringVar(&o.profile, "profile", "", "named generation profile")
	fs.StringVar(&o.profileFile, "profile-file", "", "YAML profile file (default $SCRIPTGEN_PROFILES)")
	fs.BoolVar(&o.listProfiles, "profiles", false, "list profiles and exit")
	fs.IntVar(&o.count, "count", 1, "number of scripts to write as <out>_<i>.in")
	fs.StringVar(&o.scope, "scope", "", "order id scope: file or process")
	fs.BoolVar(&o.interactive, "interactive", false, "prompt for parameters")
	fs.StringVar(&o.kafka, "kafka", "", "comma-separated Kafka brokers to publish to")
	fs.StringVar(&o.replay, "replay", "", "regenerate a stored run by id or script name")
	fs.StringVar(&o.envPath, "env", "", "path to .env file")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// buildParams layers environment, profile and explicit flags.
func buildParams(o *options, cfg params.Config, profiles map[string]params.Profile) (script.Params, error) {
	p := script.Params{
		Clients:        cfg.Generation.Clients,
		Transactions:   cfg.Generation.Transactions,
		NumInstruments: cfg.Generation.Instruments,
		Cancel:         cfg.Generation.Cancel,
		RoundNumbers:   cfg.Generation.RoundNumbers,
		Seed:           cfg.Generation.Seed,
	}
	if o.profile != "" {
		prof, ok := profiles[o.profile]
		if !ok {
			return p, fmt.Errorf("%w: unknown profile %q", script.ErrInvalidConfiguration, o.profile)
		}
		p = prof.Params
		if p.Seed == 0 {
			p.Seed = cfg.Generation.Seed
		}
	}

	if o.set["clients"] {
		p.Clients = o.clients
	}
	if o.set["transactions"] {
		p.Transactions = o.transactions
	}
	if o.set["instruments"] {
		p.NumInstruments = o.instruments
	}
	if o.set["cancel"] {
		p.Cancel = o.cancel
	}
	if o.set["round"] {
		p.RoundNumbers = o.round
	}
	if o.set["seed"] {
		p.Seed = o.seed
	}
	return p, nil
}

func newLogger(cfg params.Config) (*zap.Logger, error) {
	if cfg.Log.File != "" {
		return util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	}
	return util.NewLogger(cfg.Log.Level)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg := params.LoadFromEnv(o.envPath)
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.scope != "" {
		cfg.Generation.Scope = o.scope
	}
	if o.profileFile != "" {
		cfg.ProfilesPath = o.profileFile
	}
	if o.kafka != "" {
		cfg.Kafka.Brokers = strings.Split(o.kafka, ",")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	profiles, err := params.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		sugar.Errorw("profiles_load_failed", "path", cfg.ProfilesPath, "err", err)
		return exitUsage
	}
	if o.listProfiles {
		printProfiles(stdout, profiles)
		return exitOK
	}

	scope, err := workload.ParseScope(cfg.Generation.Scope)
	if err != nil {
		sugar.Errorw("invalid_scope", "err", err)
		return exitUsage
	}

	req := workload.Request{Name: o.out, Profile: o.profile}
	if o.interactive {
		a, err := promptParams(stdin, stdout)
		if err != nil {
			sugar.Errorw("invalid_input", "err", err)
			return exitUsage
		}
		req.Params = a.Params
		req.Name = a.Name
	} else if o.replay == "" {
		if req.Params, err = buildParams(o, cfg, profiles); err != nil {
			sugar.Errorw("invalid_configuration", "err", err)
			return exitUsage
		}
		if _, err := script.Resolve(req.Params); err != nil {
			sugar.Errorw("invalid_configuration", "err", err)
			return exitUsage
		}
	}

	var sinks []sink.Sink
	if req.Name == "-" {
		sinks = append(sinks, &sink.WriterSink{W: stdout, Label: "stdout"})
		req.Name = ""
	} else {
		// -out may carry a directory; the sink gets the directory, the app the file name.
		dir, base := outputPath(cfg.Generation.OutDir, req.Name)
		sinks = append(sinks, sink.NewFileSink(dir))
		req.Name = base
	}
	if len(cfg.Kafka.Brokers) > 0 {
		ks := sink.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer ks.Close()
		sinks = append(sinks, ks)
		sugar.Infow("kafka_sink_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	appOpts := []workload.Option{
		workload.WithScope(scope),
		workload.WithSinks(sinks...),
		workload.WithLogger(sugar),
	}
	if cfg.Storage.Path != "" {
		store, err := storage.NewManifestStore(cfg.Storage.Path)
		if err != nil {
			sugar.Errorw("manifest_store_open_failed", "path", cfg.Storage.Path, "err", err)
			return exitFailure
		}
		defer store.Close()
		appOpts = append(appOpts, workload.WithStore(store))
	}
	app := workload.New(appOpts...)

	switch {
	case o.replay != "":
		name := ""
		if o.set["out"] {
			name = req.Name
		}
		_, err = app.Replay(ctx, o.replay, name)
	case o.count > 1:
		_, err = app.GenerateBatch(ctx, req, o.count)
	case o.count < 1:
		err = fmt.Errorf("%w: -count must be >= 1, got %d", script.ErrInvalidConfiguration, o.count)
	default:
		_, err = app.Generate(ctx, req)
	}
	if err != nil {
		sugar.Errorw("scriptgen_failed", "err", err)
		if errors.Is(err, script.ErrInvalidConfiguration) {
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

// outputPath splits an -out value into the sink directory and file name.
// Relative directories are taken from outDir.
func outputPath(outDir, out string) (string, string) {
	dir, base := filepath.Split(out)
	switch {
	case dir == "":
		return outDir, base
	case filepath.IsAbs(dir):
		return filepath.Clean(dir), base
	default:
		return filepath.Join(outDir, dir), base
	}
}

func printProfiles(w io.Writer, profiles map[string]params.Profile) {
	for _, name := range params.ProfileNames(profiles) {
		p := profiles[name]
		instruments := fmt.Sprint(p.Params.NumInstruments)
		if p.Params.NumInstruments == script.AllInstruments {
			instruments = "all"
		}
		fmt.Fprintf(w, "%-12s clients=%d transactions=%d instruments=%s cancel=%t round=%t  %s\n",
			name, p.Params.Clients, p.Params.Transactions, instruments,
			p.Params.Cancel, p.Params.RoundNumbers, p.Description)
	}
}
