package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claimledger/pkg/domain"
)

// isolate points storage and blobs at a temp dir and silences logging.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLAIMLEDGER_STORAGE_DRIVER", "sqlite")
	t.Setenv("CLAIMLEDGER_STORAGE_SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("CLAIMLEDGER_BLOB_DRIVER", "fs")
	t.Setenv("CLAIMLEDGER_BLOB_FS_ROOT", filepath.Join(dir, "blobs"))
	t.Setenv("CLAIMLEDGER_LOG_LEVEL", "disabled")
	t.Setenv("CLAIMLEDGER_METRICS_BACKEND", "none")
	return dir
}

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLIWalkthrough(t *testing.T) {
	isolate(t)

	code, out, errOut := invoke(t, "-block", "10", "create", "alice", "doc-hash-1")
	if code != 0 {
		t.Fatalf("create: code=%d stderr=%s", code, errOut)
	}
	var event domain.Event
	if err := json.Unmarshal([]byte(out), &event); err != nil {
		t.Fatalf("decode event %q: %v", out, err)
	}
	if event.Type != domain.EventClaimCreated || event.Who != "alice" || event.Block != 10 {
		t.Fatalf("unexpected event %+v", event)
	}

	if code, _, errOut := invoke(t, "-block", "12", "create", "bob", "doc-hash-1"); code != 1 || !strings.Contains(errOut, "ProofAlreadyExist") {
		t.Fatalf("expected ProofAlreadyExist, code=%d stderr=%s", code, errOut)
	}
	if code, _, errOut := invoke(t, "-block", "15", "transfer", "alice", "doc-hash-1", "bob"); code != 0 {
		t.Fatalf("transfer: %s", errOut)
	}

	code, out, _ = invoke(t, "show", "doc-hash-1")
	if code != 0 {
		t.Fatalf("show failed")
	}
	var proof domain.Proof
	if err := json.Unmarshal([]byte(out), &proof); err != nil {
		t.Fatalf("decode proof: %v", err)
	}
	if proof.Record.Owner != "bob" || proof.Record.RecordedAt != 15 {
		t.Fatalf("unexpected proof %+v", proof)
	}

	if code, _, errOut := invoke(t, "revoke", "alice", "doc-hash-1"); code != 1 || !strings.Contains(errOut, "NotClaimOwner") {
		t.Fatalf("expected NotClaimOwner, code=%d stderr=%s", code, errOut)
	}
	if code, _, _ := invoke(t, "revoke", "bob", "doc-hash-1"); code != 0 {
		t.Fatalf("revoke failed")
	}
	if code, _, errOut := invoke(t, "show", "doc-hash-1"); code != 1 || !strings.Contains(errOut, "ClaimNotExist") {
		t.Fatalf("expected ClaimNotExist, code=%d stderr=%s", code, errOut)
	}
}

func TestCLIHexClaimsAndList(t *testing.T) {
	isolate(t)
	if code, _, errOut := invoke(t, "-hex", "create", "alice", "0x00ff"); code != 0 {
		t.Fatalf("create: %s", errOut)
	}
	if code, _, _ := invoke(t, "create", "alice", "plain"); code != 0 {
		t.Fatalf("create plain failed")
	}
	code, out, _ := invoke(t, "list")
	if code != 0 {
		t.Fatalf("list failed")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 proofs, got %q", out)
	}
	var first domain.Proof
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.Claim.Equal(domain.Claim{0x00, 0xff}) {
		t.Fatalf("expected binary claim listed first, got %s", first.Claim)
	}
	if code, _, _ := invoke(t, "-hex", "show", "zz"); code != 2 {
		t.Fatalf("expected usage error for bad hex")
	}
}

func TestCLISnapshotAndRestore(t *testing.T) {
	dir := isolate(t)
	if code, _, _ := invoke(t, "-block", "3", "create", "alice", "x"); code != 0 {
		t.Fatalf("create failed")
	}
	code, out, errOut := invoke(t, "-block", "4", "snapshot")
	if code != 0 {
		t.Fatalf("snapshot: %s", errOut)
	}
	if !strings.Contains(out, "ledger/snapshots/00000000000000000004.json") {
		t.Fatalf("unexpected snapshot output %q", out)
	}

	t.Setenv("CLAIMLEDGER_STORAGE_SQLITE_PATH", filepath.Join(dir, "fresh.db"))
	code, out, errOut = invoke(t, "restore")
	if code != 0 {
		t.Fatalf("restore: %s", errOut)
	}
	if !strings.Contains(out, `"restored":1`) {
		t.Fatalf("unexpected restore output %q", out)
	}
	if code, _, _ := invoke(t, "show", "x"); code != 0 {
		t.Fatalf("expected restored claim in fresh store")
	}
}

func TestCLIUsageErrors(t *testing.T) {
	isolate(t)
	cases := [][]string{
		{},
		{"create", "alice"},
		{"transfer", "alice", "x"},
		{"list", "extra"},
		{"frobnicate"},
		{"-nope"},
	}
	for _, args := range cases {
		if code, _, _ := invoke(t, args...); code != 2 {
			t.Fatalf("expected usage code for %v, got %d", args, code)
		}
	}
}

func TestCLIConfigErrors(t *testing.T) {
	isolate(t)
	if code, _, errOut := invoke(t, "-config", filepath.Join(t.TempDir(), "missing.toml"), "list"); code != 1 || !strings.Contains(errOut, "config") {
		t.Fatalf("expected config error, code=%d stderr=%s", code, errOut)
	}
	t.Setenv("CLAIMLEDGER_BLOB_DRIVER", "memory")
	if code, _, errOut := invoke(t, "restore"); code != 1 || !strings.Contains(errOut, "no snapshot") {
		t.Fatalf("expected missing snapshot error, code=%d stderr=%s", code, errOut)
	}
}

func TestMainExitCodes(t *testing.T) {
	isolate(t)
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"claimledger", "list"}
	main()
	os.Args = []string{"claimledger"}
	main()
	if len(codes) != 2 || codes[0] != 0 || codes[1] != 2 {
		t.Fatalf("unexpected exit codes %v", codes)
	}
}

func TestCLIRejectsBlockBelowStoredHeight(t *testing.T) {
	isolate(t)
	if code, _, errOut := invoke(t, "-block", "10", "create", "alice", "doc"); code != 0 {
		t.Fatalf("create: %s", errOut)
	}
	code, _, errOut := invoke(t, "-block", "3", "transfer", "alice", "doc", "bob")
	if code != 2 || !strings.Contains(errOut, "below the stored height 10") {
		t.Fatalf("expected usage error for regressing block, code=%d stderr=%s", code, errOut)
	}

	code, out, _ := invoke(t, "show", "doc")
	if code != 0 {
		t.Fatalf("show failed")
	}
	var proof domain.Proof
	if err := json.Unmarshal([]byte(out), &proof); err != nil {
		t.Fatalf("decode proof: %v", err)
	}
	if proof.Record.Owner != "alice" || proof.Record.RecordedAt != 10 {
		t.Fatalf("expected untouched record, got %+v", proof.Record)
	}

	// without -block the clock resumes at the stored height
	if code, out, errOut := invoke(t, "transfer", "alice", "doc", "bob"); code != 0 || !strings.Contains(out, `"block":10`) {
		t.Fatalf("expected transfer at block 10, code=%d out=%s stderr=%s", code, out, errOut)
	}
	if code, _, errOut := invoke(t, "-block", "10", "transfer", "bob", "doc", "carol"); code != 0 {
		t.Fatalf("same height must be accepted: %s", errOut)
	}
}

func TestCLIArchivesEvents(t *testing.T) {
	isolate(t)
	steps := [][]string{
		{"-archive-events", "-block", "1", "create", "alice", "doc"},
		{"-archive-events", "-block", "2", "transfer", "alice", "doc", "bob"},
		{"-block", "3", "create", "carol", "other"},
		{"-archive-events", "-block", "4", "revoke", "bob", "doc"},
		{"-archive-events", "-block", "5", "revoke", "bob", "doc"},
	}
	for i, args := range steps {
		code, _, errOut := invoke(t, args...)
		want := 0
		if i == len(steps)-1 {
			want = 1
		}
		if code != want {
			t.Fatalf("step %d %v: code=%d stderr=%s", i, args, code, errOut)
		}
	}

	code, out, errOut := invoke(t, "events")
	if code != 0 {
		t.Fatalf("events: %s", errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 archived events, got %q", out)
	}
	wantTypes := []domain.EventType{domain.EventClaimCreated, domain.EventClaimTransfer, domain.EventClaimRevoked}
	for i, line := range lines {
		var e domain.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode event %d: %v", i, err)
		}
		if e.Seq != uint64(i+1) || e.Type != wantTypes[i] {
			t.Fatalf("event %d: unexpected %+v", i, e)
		}
	}
}

func TestCLIWritesTraceFile(t *testing.T) {
	dir := isolate(t)
	trace := filepath.Join(dir, "spans.jsonl")
	t.Setenv("CLAIMLEDGER_TRACE_FILE", trace)
	if code, _, errOut := invoke(t, "create", "alice", "doc"); code != 0 {
		t.Fatalf("create: %s", errOut)
	}
	_, _, _ = invoke(t, "revoke", "bob", "doc")

	raw, err := os.ReadFile(trace)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"operation":"create_claim"`) || !strings.Contains(lines[1], "NotClaimOwner") {
		t.Fatalf("unexpected trace contents %q", raw)
	}
}
