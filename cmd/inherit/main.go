// Command inherit lowers class declarations into Go code that emulates
// single inheritance with dispatch interfaces and embedded prototypes.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	LogLevel  string `help:"Log level." enum:"debug,info,warn,error" default:"warn" env:"INHERIT_LOG_LEVEL"`
	LogFormat string `help:"Log output format." enum:"text,json" default:"text" env:"INHERIT_LOG_FORMAT"`

	Version  VersionCmd  `cmd:"" help:"Print version information."`
	Gen      GenCmd      `cmd:"" help:"Lower class files into Go source files."`
	Parse    ParseCmd    `cmd:"" help:"Print the parsed class descriptor as JSON."`
	Tokenize TokenizeCmd `cmd:"" help:"Print the tokens of a class file as JSON."`
}

func (c *CLI) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	os.Stdout.WriteString(Version() + "\n")
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("inherit"),
		kong.Description("Lower class declarations into Go."),
		kong.UsageOnError(),
	)
	logger := cli.logger()
	slog.SetDefault(logger)
	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
