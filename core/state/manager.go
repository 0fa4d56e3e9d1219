package state

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"citadel/storage"
)

var (
	// ErrTokenUnknown is returned when an operation references a token symbol
	// that has not been registered.
	ErrTokenUnknown = errors.New("state: token not registered")
	// ErrInsufficientBalance is returned when a transfer would overdraw the
	// sender.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
)

var (
	tokenPrefix   = []byte("token/")
	balancePrefix = []byte("balance/")
	rolePrefix    = []byte("role/")
	pausePrefix   = []byte("pause/")
	kvPrefix      = []byte("kv/")
)

// TokenMetadata describes a registered token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

// Manager provides typed access to the ledger state: token balances, role
// assignments, module pause flags, and module-scoped key-value records. All
// records are RLP encoded in the underlying key-value store.
type Manager struct {
	db storage.Database
}

// NewManager constructs a manager over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// RegisterToken stores metadata for a token symbol. Symbols are canonicalised
// to upper case and duplicate registrations are rejected.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return fmt.Errorf("state: token symbol must not be empty")
	}
	key := tokenKey(normalized)
	existing, err := m.db.Get(key)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("state: token %s already registered", normalized)
	}
	meta := TokenMetadata{Symbol: normalized, Name: strings.TrimSpace(name), Decimals: decimals}
	encoded, err := rlp.EncodeToBytes(&meta)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// Token retrieves metadata for a registered token. A missing token yields
// ErrTokenUnknown.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	data, err := m.db.Get(tokenKey(normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTokenUnknown, normalized)
	}
	meta := new(TokenMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// TokenExists reports whether the provided token symbol is registered.
func (m *Manager) TokenExists(symbol string) bool {
	meta, err := m.Token(symbol)
	return err == nil && meta != nil
}

// SetBalance stores an account balance for the provided token.
func (m *Manager) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance not allowed")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if !m.TokenExists(normalized) {
		return fmt.Errorf("%w: %s", ErrTokenUnknown, normalized)
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(balanceKey(addr, normalized), encoded)
}

// Balance retrieves a token balance for the provided account. Unset balances
// are zero.
func (m *Manager) Balance(addr []byte, symbol string) (*big.Int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	data, err := m.db.Get(balanceKey(addr, normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Transfer moves amount of the supplied token between two accounts. The debit
// and credit are applied together; an insufficient sender balance aborts the
// operation before any write.
func (m *Manager) Transfer(from, to []byte, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: transfer amount must be positive")
	}
	if len(from) == 0 || len(to) == 0 {
		return fmt.Errorf("state: transfer endpoints must not be empty")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	fromBalance, err := m.Balance(from, normalized)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, normalized)
	}
	if bytes.Equal(from, to) {
		return nil
	}
	toBalance, err := m.Balance(to, normalized)
	if err != nil {
		return err
	}
	if err := m.SetBalance(from, normalized, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.SetBalance(to, normalized, new(big.Int).Add(toBalance, amount))
}

// SetRole associates an address with the specified role. Duplicate
// assignments are ignored while the stored member list stays sorted for
// determinism.
func (m *Manager) SetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	members, err := m.RoleMembers(trimmed)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.db.Put(roleKey(trimmed), encoded)
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([][]byte, error) {
	data, err := m.db.Get(roleKey(strings.TrimSpace(role)))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the
// specified role. Read failures report false, matching the best-effort
// semantics required by callers.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	members, err := m.RoleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// SetPaused flips the global kill-switch for the named module.
func (m *Manager) SetPaused(module string, paused bool) error {
	trimmed := strings.TrimSpace(module)
	if trimmed == "" {
		return fmt.Errorf("state: module name must not be empty")
	}
	key := pauseKey(trimmed)
	if !paused {
		return m.db.Delete(key)
	}
	return m.db.Put(key, []byte{1})
}

// IsPaused reports whether the named module is halted. It satisfies
// common.PauseView.
func (m *Manager) IsPaused(module string) bool {
	data, err := m.db.Get(pauseKey(strings.TrimSpace(module)))
	if err != nil {
		return false
	}
	return len(data) > 0 && data[0] == 1
}

// KVPut stores the provided value under the supplied module key using RLP
// encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("state: kv key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet decodes the stored value into out, reporting whether the key was
// present.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("state: kv key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func tokenKey(symbol string) []byte {
	return append(append([]byte(nil), tokenPrefix...), symbol...)
}

func balanceKey(addr []byte, symbol string) []byte {
	key := append(append([]byte(nil), balancePrefix...), symbol...)
	key = append(key, '/')
	return append(key, hex.EncodeToString(addr)...)
}

func roleKey(role string) []byte {
	return append(append([]byte(nil), rolePrefix...), role...)
}

func pauseKey(module string) []byte {
	return append(append([]byte(nil), pausePrefix...), module...)
}

func kvKey(key []byte) []byte {
	return append(append([]byte(nil), kvPrefix...), key...)
}
