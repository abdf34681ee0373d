package commands

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/appbaseio/world-search/config"
	"github.com/appbaseio/world-search/util"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logTag = "[cmd]"

var (
	envFile    string
	configFile string
	logMode    string
	logFile    string
	cpuprofile bool

	cfg      *config.Config
	profiler interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "world-search",
	Short: "Keeps the world search index in sync with its database",
	Long: `world-search rebuilds the world index from the relational database and
moves the world_write and world_read aliases to it without downtime.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env", ".env", "Path to file with environment variables to load in KEY=VALUE format")
	flags.StringVar(&configFile, "config", "", "Path to the yaml configuration file")
	flags.StringVar(&logMode, "log", "", "Define to change the default log mode(error), other options are: debug(most verbose) and info")
	flags.StringVar(&logFile, "log-file", "", "Write logs to this file, rotated, instead of stderr")
	flags.BoolVar(&cpuprofile, "cpuprofile", false, "Write a cpu profile of the command to a temporary directory")
}

// Execute runs the command line.
func Execute() {
	err := rootCmd.Execute()
	stopProfile()
	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	setupLogging(logMode, logOutput(logFile))

	// add cpu profiling
	if cpuprofile {
		profiler = startProfile("")
	}

	// Load all env vars from envFile
	if err := util.LoadEnvFromFile(envFile); err != nil {
		log.Infoln(logTag, ": reading env file", envFile, ". This may happen if the environments are declared directly : ", err)
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setupLogging(mode string, out io.Writer) {
	log.SetOutput(out)
	log.SetReportCaller(true)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006/01/02 15:04:05",
		DisableLevelTruncation: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return "", fmt.Sprintf(" %s:%d", filename, f.Line)
		},
	})

	switch mode {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func logOutput(file string) io.Writer {
	switch file {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	default:
		return &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100,
			MaxAge:     14,
			MaxBackups: 10,
		}
	}
}

// startProfile starts a cpu profile written to dir, or to a temporary
// directory when dir is empty.
func startProfile(dir string) interface{ Stop() } {
	options := []func(*profile.Profile){profile.CPUProfile, profile.NoShutdownHook}
	if dir != "" {
		options = append(options, profile.ProfilePath(dir))
	}
	return profile.Start(options...)
}

func stopProfile() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}
