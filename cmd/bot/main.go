package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	logx "habitbot/pkg/logx"
)

var version = "dev"

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path (JSON or YAML)." type:"path" default:"./config.json" short:"c"`
	LogLevel string `help:"Log level for offline subcommands." default:"info" enum:"trace,debug,info,warn,error"`

	Run       RunCmd       `cmd:"" help:"Run the bot." default:"1"`
	ParseDate ParseDateCmd `cmd:"" name:"parse-date" help:"Parse a date expression and print it."`
	Extract   ExtractCmd   `cmd:"" help:"Show what a habit description is parsed into."`
	Migrate   MigrateCmd   `cmd:"" help:"Apply storage migrations."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("habitbot"),
		kong.Description("Telegram habit tracker with reminders"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&Context{
		ConfigPath: CLI.Config,
		Out:        os.Stdout,
		Log:        logx.NewConsole(CLI.LogLevel),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
