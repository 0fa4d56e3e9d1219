package state

import (
	"errors"
	"math/big"
	"testing"

	"citadel/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestRegisterTokenCanonicalisesSymbol(t *testing.T) {
	m := newTestManager(t)
	if err := m.RegisterToken(" wbtc ", "Wrapped Bitcoin", 8); err != nil {
		t.Fatalf("register: %v", err)
	}
	meta, err := m.Token("wbtc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if meta.Symbol != "WBTC" || meta.Decimals != 8 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if !m.TokenExists("WBTC") {
		t.Fatalf("token must exist after registration")
	}
	if err := m.RegisterToken("WBTC", "dup", 8); err == nil {
		t.Fatalf("duplicate registration must fail")
	}
}

func TestTokenUnknown(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Token("CTL"); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("expected ErrTokenUnknown, got %v", err)
	}
	if m.TokenExists("CTL") {
		t.Fatalf("unregistered token must not exist")
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if err := m.RegisterToken("CTL", "Citadel", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	addr := []byte{0x01, 0x02}
	if got, err := m.Balance(addr, "CTL"); err != nil || got.Sign() != 0 {
		t.Fatalf("unset balance must be zero, got %s err %v", got, err)
	}
	amount := big.NewInt(1234)
	if err := m.SetBalance(addr, "ctl", amount); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if got, _ := m.Balance(addr, "CTL"); got.Cmp(amount) != 0 {
		t.Fatalf("balance %s, want %s", got, amount)
	}
	if err := m.SetBalance(addr, "CTL", big.NewInt(-1)); err == nil {
		t.Fatalf("negative balance must be rejected")
	}
	if err := m.SetBalance(addr, "UNKNOWN", amount); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("expected ErrTokenUnknown, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	m := newTestManager(t)
	if err := m.RegisterToken("CTL", "Citadel", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	alice := []byte{0xaa}
	bob := []byte{0xbb}
	if err := m.SetBalance(alice, "CTL", big.NewInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := m.Transfer(alice, bob, "CTL", big.NewInt(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got, _ := m.Balance(alice, "CTL"); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("sender balance %s", got)
	}
	if got, _ := m.Balance(bob, "CTL"); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("receiver balance %s", got)
	}
	if err := m.Transfer(alice, bob, "CTL", big.NewInt(41)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got, _ := m.Balance(alice, "CTL"); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("failed transfer must not debit, balance %s", got)
	}
	if err := m.Transfer(alice, bob, "CTL", big.NewInt(0)); err == nil {
		t.Fatalf("zero transfer must be rejected")
	}
	// Self-transfers are a no-op.
	if err := m.Transfer(alice, alice, "CTL", big.NewInt(10)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if got, _ := m.Balance(alice, "CTL"); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("self transfer must not change balance, got %s", got)
	}
}

func TestRoles(t *testing.T) {
	m := newTestManager(t)
	const role = "ROLE_FUNDING_POLICY"
	alice := []byte{0xaa}
	bob := []byte{0xbb}
	if m.HasRole(role, alice) {
		t.Fatalf("role must start empty")
	}
	if err := m.SetRole(role, alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := m.SetRole(role, alice); err != nil {
		t.Fatalf("duplicate grant must be a no-op: %v", err)
	}
	if err := m.SetRole(role, bob); err != nil {
		t.Fatalf("grant: %v", err)
	}
	members, err := m.RoleMembers(role)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if !m.HasRole(role, alice) || !m.HasRole(role, bob) {
		t.Fatalf("both grants must resolve")
	}
	if m.HasRole(role, []byte{0xcc}) {
		t.Fatalf("unassigned address must not hold the role")
	}
	if m.HasRole("ROLE_OTHER", alice) {
		t.Fatalf("grants must not leak across roles")
	}
}

func TestPauseFlag(t *testing.T) {
	m := newTestManager(t)
	if m.IsPaused("funding") {
		t.Fatalf("modules start unpaused")
	}
	if err := m.SetPaused("funding", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !m.IsPaused("funding") {
		t.Fatalf("pause flag must persist")
	}
	if m.IsPaused("other") {
		t.Fatalf("pause must be module-scoped")
	}
	if err := m.SetPaused("funding", false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if m.IsPaused("funding") {
		t.Fatalf("unpause must clear the flag")
	}
}

func TestKVRoundTrip(t *testing.T) {
	m := newTestManager(t)
	type record struct {
		Day   string
		Total *big.Int
	}
	key := []byte("funding/state")
	var missing record
	ok, err := m.KVGet(key, &missing)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatalf("missing key must report absent")
	}
	stored := record{Day: "20260825", Total: big.NewInt(77)}
	if err := m.KVPut(key, stored); err != nil {
		t.Fatalf("put: %v", err)
	}
	var loaded record
	ok, err = m.KVGet(key, &loaded)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.Day != stored.Day || loaded.Total.Cmp(stored.Total) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if _, err := m.KVGet(nil, &loaded); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}
