package application

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	zlog "github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/metrics"
	zviper "github.com/lk2023060901/wirecodec/pkg/util/viper"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

const (
	defaultConfigPath = "./config.yaml"

	envConfigPath = "WIRECODEC_CONFIG_FILE_PATH"
	envLogEnable  = "WIRECODEC_LOG_ENABLE"
	envLogLevel   = "WIRECODEC_LOG_LEVEL"
	envLogStdout  = "WIRECODEC_LOG_STDOUT"
	envLogFileDir = "WIRECODEC_LOG_FILE_DIR"
	envLogFile    = "WIRECODEC_LOG_FILE"
	envLogFormat  = "WIRECODEC_LOG_FORMAT"
)

// Application is the runtime container shared by the wirecodec binaries.
// It owns configuration, loggers and the codec/network settings.
type Application struct {
	cfg      *zviper.Config
	loggers  map[string]*zlog.MLogger
	settings Settings
	wireCfg  wire.Config
}

// New creates a new Application instance.
func New() *Application {
	return &Application{wireCfg: wire.DefaultConfig()}
}

// Run parses os.Args and loads configuration using the following priority:
//  1. Default: ./config.yaml
//  2. Env: WIRECODEC_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
func (a *Application) Run() error {
	return a.RunWithArgs(os.Args[1:])
}

// RunWithArgs is Run with explicit command-line arguments.
func (a *Application) RunWithArgs(args []string) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(path); err != nil {
		return err
	}
	return a.init(cfg)
}

// RunWithConfig initialises the application from an already loaded configuration.
func (a *Application) RunWithConfig(cfg *zviper.Config) error {
	if cfg == nil {
		return errors.New("application: config is nil")
	}
	return a.init(cfg)
}

func (a *Application) init(cfg *zviper.Config) error {
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	if err := a.initSettings(); err != nil {
		return err
	}
	if a.settings.Metrics.Enable {
		metrics.Register(prometheus.DefaultRegisterer)
	}
	return nil
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Settings returns the codec/network/store settings resolved at Run.
func (a *Application) Settings() Settings {
	return a.settings
}

// WireConfig returns the codec configuration built from the codec.endian key.
func (a *Application) WireConfig() wire.Config {
	return a.wireCfg
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

func resolveConfigPath(args []string) (string, error) {
	configPath := defaultConfigPath
	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", errors.New("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			configPath = val
		}
	}
	return configPath, nil
}

func (a *Application) initSettings() error {
	setDefaults(a.cfg)

	var s Settings
	if err := a.cfg.Unmarshal(&s); err != nil {
		return errors.Wrap(err, "unmarshal settings")
	}
	wireCfg, err := s.Codec.WireConfig()
	if err != nil {
		return err
	}
	if err := s.Network.Validate(); err != nil {
		return err
	}

	a.settings = s
	a.wireCfg = wireCfg
	zlog.Info("application settings loaded",
		zlog.FieldEndian(wireCfg.Endian),
		zlog.FieldComponent("application"))
	return nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv configures the process-wide logger based on WIRECODEC_LOG_* env vars.
//
//   - WIRECODEC_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - WIRECODEC_LOG_LEVEL: log level (default "info").
//   - WIRECODEC_LOG_STDOUT: whether to log to stdout (default false).
//   - WIRECODEC_LOG_FILE_DIR: log directory.
//   - WIRECODEC_LOG_FILE: log file name (empty means no file).
//   - WIRECODEC_LOG_FORMAT: "console" or "json" (default "console").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool(envLogEnable, false)

	cfg := &zlog.Config{
		Level:               getenvDefault(envLogLevel, "info"),
		Format:              getenvDefault(envLogFormat, zlog.FormatConsole),
		Stdout:              getenvBool(envLogStdout, false),
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(envLogFileDir, ""),
			Filename: getenvDefault(envLogFile, ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from the "logging" key.
//
// Example:
//
//	logging:
//	  acceptor:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: acceptor.log
func (a *Application) initModuleLoggersFromConfig() error {
	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
