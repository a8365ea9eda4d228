// Command ledgerd is a command-line interface to the embedded double-entry
// ledger. It demonstrates account creation, deposits, withdrawals,
// transfers, and balance queries against a single WAL-backed store.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kumarlokesh/ledgerd/internal/ledger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config", "", "Path to a YAML config file")
	walPath    = flag.String("wal", "", "Override the configured WAL path")
)

// Command represents one ledgerd subcommand.
type Command struct {
	Name        string
	Description string
	Run         func(l *ledger.Ledger, args []string) error
}

var commands = []Command{
	{
		Name:        "create-account",
		Description: "Create an account (-type checking|savings|investment, -currency USD)",
		Run:         runCreateAccount,
	},
	{
		Name:        "deposit",
		Description: "Deposit into an account (-account ID -amount CENTS)",
		Run:         runDeposit,
	},
	{
		Name:        "withdraw",
		Description: "Withdraw from an account (-account ID -amount CENTS)",
		Run:         runWithdraw,
	},
	{
		Name:        "transfer",
		Description: "Transfer between two accounts (-from ID -to ID -amount CENTS)",
		Run:         runTransfer,
	},
	{
		Name:        "balance",
		Description: "Print an account's balance (-account ID)",
		Run:         runBalance,
	},
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [global flags] <command> [command flags]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "\nAvailable commands:\n")
		for _, cmd := range commands {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-16s %s\n", cmd.Name, cmd.Description)
		}
		fmt.Fprintf(flag.CommandLine.Output(), "\nGlobal flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *helpFlag || len(flag.Args()) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var cmd *Command
	for i := range commands {
		if commands[i].Name == flag.Arg(0) {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if *walPath != "" {
		cfg.WAL.Path = *walPath
	}

	level, err := zerolog.ParseLevel(parseLevel(cfg.Logging.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out zerolog.ConsoleWriter
	if cfg.Logging.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	} else {
		out = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	absPath, err := filepath.Abs(cfg.WAL.Path)
	if err != nil {
		fatal("failed to resolve WAL path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		fatal("failed to create WAL directory: %v", err)
	}

	l, err := ledger.Open(ledger.Config{
		WALPath:            absPath,
		Logger:             logger,
		CheckpointInterval: cfg.WAL.CheckpointInterval,
		DefaultCurrency:    cfg.WAL.DefaultCurrency,
		SyncMode:           cfg.WAL.SyncMode,
	})
	if err != nil {
		fatal("failed to open ledger: %v", err)
	}
	defer l.Close()

	if err := cmd.Run(l, flag.Args()[1:]); err != nil {
		fatal("%s: %v", cmd.Name, err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runCreateAccount(l *ledger.Ledger, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	typ := fs.String("type", "checking", "Account type: checking, savings, investment")
	currency := fs.String("currency", "", "Currency code (empty selects the configured default currency)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := l.CreateAccount(ledger.ParseAccountType(*typ), *currency)
	if err != nil {
		return err
	}
	shown := *currency
	if shown == "" {
		shown = "default currency"
	}
	fmt.Printf("created account %d (%s, %s)\n", id, *typ, shown)
	return nil
}

func runDeposit(l *ledger.Ledger, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	account := fs.Uint("account", 0, "Account id")
	amount := fs.Int64("amount", 0, "Amount in cents")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := l.Deposit(uint32(*account), *amount); err != nil {
		return err
	}
	fmt.Printf("deposited %d into account %d\n", *amount, *account)
	return nil
}

func runWithdraw(l *ledger.Ledger, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	account := fs.Uint("account", 0, "Account id")
	amount := fs.Int64("amount", 0, "Amount in cents")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := l.Withdraw(uint32(*account), *amount); err != nil {
		return err
	}
	fmt.Printf("withdrew %d from account %d\n", *amount, *account)
	return nil
}

func runTransfer(l *ledger.Ledger, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.Uint("from", 0, "Source account id")
	to := fs.Uint("to", 0, "Destination account id")
	amount := fs.Int64("amount", 0, "Amount in cents")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := l.Transfer(uint32(*from), uint32(*to), *amount); err != nil {
		return err
	}
	fmt.Printf("transferred %d from account %d to account %d\n", *amount, *from, *to)
	return nil
}

func runBalance(l *ledger.Ledger, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	account := fs.Uint("account", 0, "Account id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bal, err := l.Balance(uint32(*account))
	if err != nil {
		return err
	}
	fmt.Println(strconv.FormatInt(bal, 10))
	return nil
}
