// Command n1c administers a ledger kept in a local data directory: the
// state in a file store, wallet keys in a keyring next to it.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docopt/docopt-go"
	"github.com/google/renameio"

	"github.com/xraph/n1c"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/store/file"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Exit codes.
const (
	exitOK       = 0
	exitUsage    = 22
	exitRejected = 3
	exitCorrupt  = 4
	exitFailure  = 42
)

const usage = `n1c

Usage:
  n1c init [options]
  n1c wallet [options]
  n1c mint <address> <amount> [options]
  n1c anchor <anchor> [<spread> <tax>] [options]
  n1c send <from> <to> <amount> [--via=<anchor>] [options]
  n1c balance <address> [options]
  n1c history <address> [options]
  n1c accounts [options]
  n1c supply [options]
  n1c verify [--full] [options]
  n1c recompute <address> [options]

Options:
  -h --help        Show this screen.
  --version        Show version.
  --dir=<dir>      Data directory [default: .n1c].
  --via=<anchor>   Route the transfer through an anchor.
  --full           List every violation instead of stopping at the first.
  --debug          Log at debug level.

The data directory defaults to $N1C_DATA when set.
`

type Opts struct {
	Init      bool
	Wallet    bool
	Mint      bool
	Anchor    bool `docopt:"anchor"`
	Send      bool
	Balance   bool
	History   bool
	Accounts  bool
	Supply    bool
	Verify    bool
	Recompute bool

	Address  string `docopt:"<address>"`
	From     string `docopt:"<from>"`
	To       string `docopt:"<to>"`
	Amount   string `docopt:"<amount>"`
	AnchorID string `docopt:"<anchor>"`
	Spread   string `docopt:"<spread>"`
	Tax      string `docopt:"<tax>"`

	Dir     string `docopt:"--dir"`
	Via     string `docopt:"--via"`
	Full    bool   `docopt:"--full"`
	Debug   bool   `docopt:"--debug"`
	Help    bool   `docopt:"--help"`
	Version bool   `docopt:"--version"`
}

func main() {
	os.Exit(run())
}

func run() int {
	parser := &docopt.Parser{OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], n1cVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	var opts Opts
	if err := o.Bind(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	logger := newLogger(opts.Debug || os.Getenv("DEBUG") == "1")
	logger.Debug("parsed arguments", "opts", fmt.Sprintf("%+v", opts))

	dir := opts.Dir
	if env := os.Getenv("N1C_DATA"); env != "" && dir == ".n1c" {
		dir = env
	}

	ctx := context.Background()
	if opts.Init {
		if err := initDir(dir); err != nil {
			logger.Error("init failed", "dir", dir, "error", err)
			return exitFailure
		}
	}

	cli, err := open(ctx, dir, logger)
	if err != nil {
		logger.Error("open ledger", "dir", dir, "error", err)
		if errors.Is(err, n1c.ErrIntegrityViolation) {
			return exitCorrupt
		}
		return exitFailure
	}

	err = cli.dispatch(ctx, &opts)
	if cerr := cli.close(ctx); cerr != nil {
		logger.Error("save ledger", "dir", dir, "error", cerr)
		if err == nil {
			return exitFailure
		}
	}
	if err != nil {
		logger.Error(err.Error())
		switch {
		case n1c.IsAuthorizationError(err):
			return exitRejected
		case errors.Is(err, n1c.ErrIntegrityViolation):
			return exitCorrupt
		case errors.Is(err, n1c.ErrInvalidInput), errors.Is(err, n1c.ErrInvalidRange):
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

const n1cVersion = "0.1.0"

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Layout of the data directory.
func dataFile(dir string) string { return filepath.Join(dir, "ledger.msgpack") }
func keysDir(dir string) string { return filepath.Join(dir, "keys") }
func issuerFile(dir string) string { return filepath.Join(dir, "issuer.pem") }

// initDir creates the data directory and an issuer key unless one exists.
func initDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if _, err := os.Stat(issuerFile(dir)); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	_, priv, err := signing.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	data, err := signing.EncodePrivateKeyPEM(priv)
	if err != nil {
		return err
	}
	return renameio.WriteFile(issuerFile(dir), data, 0o600)
}

type app struct {
	ledger *n1c.Ledger
	dir    string
	dirty  bool
}

// open restores the ledger kept in dir.
func open(ctx context.Context, dir string, logger *slog.Logger) (*app, error) {
	s, err := file.Open(dataFile(dir))
	if err != nil {
		return nil, err
	}
	// The CLI never starts the ledger, so the store is prepared here.
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}

	opts := []n1c.Option{n1c.WithLogger(logger)}
	data, err := os.ReadFile(issuerFile(dir))
	switch {
	case err == nil:
		priv, err := signing.ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, n1c.WithIssuer(priv))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	l, err := n1c.New(s, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.Keyring().Load(keysDir(dir)); err != nil {
		return nil, err
	}
	if err := l.Restore(ctx); err != nil {
		return nil, err
	}
	return &app{ledger: l, dir: dir}, nil
}

// close writes back whatever the command changed. Keys are saved before
// the ledger so a stored account always has its key on disk.
func (a *app) close(ctx context.Context) error {
	if !a.dirty {
		return nil
	}
	if err := a.ledger.Keyring().Save(keysDir(a.dir)); err != nil {
		return fmt.Errorf("save keys: %w", err)
	}
	if err := a.ledger.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// registerAnchor uses the default rates when the command gives none.
func (a *app) registerAnchor(ctx context.Context, opts *Opts) (*anchor.Anchor, error) {
	if opts.Spread == "" {
		return a.ledger.RegisterDefaultAnchor(ctx, opts.AnchorID)
	}
	spread, err := types.ParseRate(opts.Spread)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", n1c.ErrInvalidInput, err)
	}
	tax, err := types.ParseRate(opts.Tax)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", n1c.ErrInvalidInput, err)
	}
	return a.ledger.RegisterAnchor(ctx, opts.AnchorID, spread, tax)
}

func (a *app) dispatch(ctx context.Context, opts *Opts) error {
	l := a.ledger
	switch {
	case opts.Init:
		a.dirty = true
		if addr := l.IssuerAddress(); addr != "" {
			fmt.Println(addr)
		}

	case opts.Wallet:
		acct, err := l.CreateWallet(ctx)
		if err != nil {
			return err
		}
		a.dirty = true
		fmt.Println(acct.Address)

	case opts.Mint:
		amount, err := a.money(opts.Amount)
		if err != nil {
			return err
		}
		tx, err := l.Mint(ctx, opts.Address, amount)
		if err != nil {
			return err
		}
		a.dirty = true
		printTx(tx)

	case opts.Anchor:
		anc, err := a.registerAnchor(ctx, opts)
		if err != nil {
			return err
		}
		a.dirty = true
		fmt.Printf("%s spread=%s%% tax=%s%%\n", anc.ID, anc.Spread, anc.TaxRate)

	case opts.Send:
		amount, err := a.money(opts.Amount)
		if err != nil {
			return err
		}
		ref := n1c.NoAnchor
		if opts.Via != "" {
			ref = n1c.AnchorRefOf(opts.Via)
		}
		tx, err := l.Prepare(ctx, opts.From, opts.To, amount, ref)
		if err != nil {
			return err
		}
		priv, ok := l.Keyring().PrivateKey(opts.From)
		if !ok {
			return fmt.Errorf("no private key for %s in %s: %w", opts.From, keysDir(a.dir), n1c.ErrInvalidSignature)
		}
		if err := tx.Sign(priv); err != nil {
			return err
		}
		committed, err := l.Submit(ctx, n1c.ProposalOf(tx))
		if err != nil {
			return err
		}
		a.dirty = true
		printTx(committed)

	case opts.Balance:
		bal, err := l.GetBalance(ctx, opts.Address)
		if err != nil {
			return err
		}
		fmt.Println(bal.FormatMajor())

	case opts.History:
		txs, err := l.History(ctx, opts.Address)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			printTx(tx)
		}

	case opts.Accounts:
		for _, acct := range l.ListAccounts(ctx) {
			fmt.Printf("%s\t%s\t%s\n", acct.Address, acct.Kind, acct.Balance.FormatMajor())
		}

	case opts.Supply:
		fmt.Printf("supply\t%s\nburned\t%s\n",
			l.TotalSupply(ctx).FormatMajor(), l.TotalBurned(ctx).FormatMajor())

	case opts.Verify:
		if !opts.Full {
			if !l.VerifyIntegrity(ctx) {
				return fmt.Errorf("verify: %w", n1c.ErrIntegrityViolation)
			}
			fmt.Println("ok")
			return nil
		}
		report := l.IntegrityReport(ctx)
		for _, v := range report.Violations {
			fmt.Println(v.String())
		}
		if !report.Consistent {
			return fmt.Errorf("verify: %d violations: %w", len(report.Violations), n1c.ErrIntegrityViolation)
		}
		fmt.Printf("ok: %d accounts, %d transactions in %s\n",
			report.Accounts, report.Transactions, report.Elapsed)

	case opts.Recompute:
		bal, err := l.RecomputeBalance(ctx, opts.Address)
		if err != nil {
			return err
		}
		a.dirty = true
		fmt.Println(bal.FormatMajor())
	}
	return nil
}

func (a *app) money(s string) (types.Money, error) {
	m, err := types.ParseMoney(s, a.ledger.Currency())
	if err != nil {
		return types.Money{}, fmt.Errorf("%w: %v", n1c.ErrInvalidInput, err)
	}
	return m, nil
}

func printTx(tx *transaction.Transaction) {
	anchorID := tx.AnchorID
	if anchorID == "" {
		anchorID = "-"
	}
	fmt.Printf("%d\t%s\t%s\t%s -> %s\t%s\tfee=%s tax=%s via=%s\n",
		tx.Seq, tx.ID, tx.Kind, tx.Sender, tx.Receiver,
		tx.Amount.FormatMajor(), tx.Fee.FormatMajor(), tx.Tax.FormatMajor(), anchorID)
}
