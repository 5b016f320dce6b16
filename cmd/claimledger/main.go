// Command claimledger operates a claim ledger from the shell.
//
//	claimledger [-config file] [-block n] [-hex] [-archive-events] <command> [args]
//
// The clock starts at the highest recorded_at already stored. -block moves it
// forward; a -block below a stored height is rejected so recorded_at never
// goes backwards.
//
// Commands:
//
//	create <caller> <claim>
//	revoke <caller> <claim>
//	transfer <caller> <claim> <recipient>
//	show <claim>
//	list
//	events        print the archived event log
//	snapshot      archive the claim map at the current block to blob storage
//	restore       load the latest archived snapshot into the configured store
//
// With -archive-events, events of a successful transition are appended to the
// blob archive as well as printed.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"claimledger/internal/archive"
	"claimledger/internal/blob"
	"claimledger/internal/config"
	"claimledger/internal/core"
	"claimledger/pkg/domain"
)

var exitFunc = os.Exit

// errUsage marks argument errors so cli can exit with status 2.
var errUsage = errors.New("usage")

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claimledger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		block      uint64
		hexClaims  bool
		archiveEvs bool
	)
	fs.StringVar(&configPath, "config", "", "path to TOML config (optional)")
	fs.Uint64Var(&block, "block", 0, "current block height (default: highest stored height)")
	fs.BoolVar(&hexClaims, "hex", false, "claims are hex encoded")
	fs.BoolVar(&archiveEvs, "archive-events", false, "append emitted events to the blob archive")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stderr, "missing command")
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	inv := invocation{
		command:       fs.Arg(0),
		args:          fs.Args()[1:],
		block:         domain.BlockNumber(block),
		hex:           hexClaims,
		archiveEvents: archiveEvs,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "block" {
			inv.blockSet = true
		}
	})
	err = run(context.Background(), cfg, inv, stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "%s failed: %v\n", fs.Arg(0), err)
		return 1
	}
}

type invocation struct {
	command       string
	args          []string
	block         domain.BlockNumber
	blockSet      bool
	hex           bool
	archiveEvents bool
}

func (inv invocation) want(n int, form string) error {
	if len(inv.args) != n {
		return fmt.Errorf("%w: claimledger %s %s", errUsage, inv.command, form)
	}
	return nil
}

func (inv invocation) claim(i int) (domain.Claim, error) {
	raw := inv.args[i]
	if !inv.hex {
		return domain.Claim(raw), nil
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: claim %q is not hex: %v", errUsage, raw, err)
	}
	return domain.Claim(decoded), nil
}

func run(ctx context.Context, cfg config.Config, inv invocation, stdout io.Writer) error {
	enc := json.NewEncoder(stdout)
	printEvent := core.EventSinkFunc(func(_ context.Context, e core.Event) { _ = enc.Encode(e) })
	clock := core.NewBlockClock(0)
	opts := []core.Option{core.WithClock(clock), core.WithEventSink(printEvent)}

	var (
		arch    *archive.Archiver
		journal *core.EventJournal
	)
	if inv.archiveEvents {
		var err error
		if arch, journal, err = loadJournal(ctx, cfg); err != nil {
			return err
		}
		opts = append(opts, core.WithEventSink(journal))
	}

	ledger, err := core.OpenLedger(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()
	if err := seedClock(ctx, clock, ledger, inv); err != nil {
		return err
	}

	if err := dispatch(ctx, cfg, inv, ledger, clock, enc); err != nil {
		return err
	}
	if journal != nil {
		if _, err := arch.ExportEvents(ctx, journal); err != nil {
			return fmt.Errorf("export events: %w", err)
		}
	}
	return nil
}

func dispatch(ctx context.Context, cfg config.Config, inv invocation, ledger *core.Ledger, clock *core.BlockClock, enc *json.Encoder) error {
	switch inv.command {
	case "create", "revoke":
		if err := inv.want(2, "<caller> <claim>"); err != nil {
			return err
		}
		claim, err := inv.claim(1)
		if err != nil {
			return err
		}
		if inv.command == "create" {
			return ledger.CreateClaim(ctx, domain.AccountID(inv.args[0]), claim)
		}
		return ledger.RevokeClaim(ctx, domain.AccountID(inv.args[0]), claim)
	case "transfer":
		if err := inv.want(3, "<caller> <claim> <recipient>"); err != nil {
			return err
		}
		claim, err := inv.claim(1)
		if err != nil {
			return err
		}
		return ledger.TransferClaim(ctx, domain.AccountID(inv.args[0]), claim, domain.AccountID(inv.args[2]))
	case "show":
		if err := inv.want(1, "<claim>"); err != nil {
			return err
		}
		claim, err := inv.claim(0)
		if err != nil {
			return err
		}
		rec, ok := ledger.Proof(ctx, claim)
		if !ok {
			return domain.NewError(domain.KindClaimNotExist, claim, "")
		}
		return enc.Encode(domain.Proof{Claim: claim, Record: rec})
	case "list":
		if err := inv.want(0, ""); err != nil {
			return err
		}
		for _, p := range ledger.Proofs(ctx) {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	case "events":
		if err := inv.want(0, ""); err != nil {
			return err
		}
		arch, err := openArchive(ctx, cfg)
		if err != nil {
			return err
		}
		events, err := arch.LoadEvents(ctx)
		if err != nil {
			return err
		}
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	case "snapshot":
		arch, err := openArchive(ctx, cfg)
		if err != nil {
			return err
		}
		info, err := arch.SaveSnapshot(ctx, ledger, clock.CurrentBlock())
		if err != nil {
			return err
		}
		return enc.Encode(info)
	case "restore":
		arch, err := openArchive(ctx, cfg)
		if err != nil {
			return err
		}
		snap, err := arch.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		res, err := archive.RestoreSnapshot(ctx, ledger.Store(), snap)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"block": snap.Block, "restored": len(res.Changes)})
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, inv.command)
	}
}

// loadJournal rebuilds the event journal from the archive so new events
// continue its sequence.
func loadJournal(ctx context.Context, cfg config.Config) (*archive.Archiver, *core.EventJournal, error) {
	arch, err := openArchive(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	events, err := arch.LoadEvents(ctx)
	if err != nil {
		return nil, nil, err
	}
	journal := core.NewEventJournal()
	if err := journal.Load(events); err != nil {
		return nil, nil, err
	}
	return arch, journal, nil
}

// seedClock moves clock to the highest stored height, then to -block when
// given. A -block below a stored height is a usage error.
func seedClock(ctx context.Context, clock *core.BlockClock, ledger *core.Ledger, inv invocation) error {
	var highest domain.BlockNumber
	for _, p := range ledger.Proofs(ctx) {
		if p.Record.RecordedAt > highest {
			highest = p.Record.RecordedAt
		}
	}
	if err := clock.Set(highest); err != nil {
		return err
	}
	if !inv.blockSet {
		return nil
	}
	if err := clock.Set(inv.block); err != nil {
		return fmt.Errorf("%w: -block %d is below the stored height %d: %v", errUsage, inv.block, highest, err)
	}
	return nil
}

func openArchive(ctx context.Context, cfg config.Config) (*archive.Archiver, error) {
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, err
	}
	return archive.New(store, cfg.Blob.Prefix), nil
}
