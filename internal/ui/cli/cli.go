package cli

import (
	"flag"
	"io"
	"nexalint/internal/core/config"
)

const versionString = "1.0.0"

type cliOptions struct {
	configPath string
	format     string
	outPath    string
	watch      bool
	verbose    bool
	version    bool
	minScore   int
	args       []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("nexalint", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", config.DefaultConfigFile, "Path to config file")
	fs.StringVar(&opts.format, "format", "", "Report format: text, json or sarif (overrides output.format)")
	fs.StringVar(&opts.outPath, "out", "", "Write the report to this file instead of stdout (overrides output.path)")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and re-analyse files as they change")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging and list clean files")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.IntVar(&opts.minScore, "min-score", -1, "Exit 1 when the overall score is below this value (overrides output.min_score)")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
