// Package keyring owns the user's master key: its wrapped-at-rest form, the
// unwrap-on-unlock flow, and the lock/relock lifecycle. The raw key exists
// only in this package's memory while the state is ready; every other
// component reads it through MasterKey and may not cache or mutate it.
package keyring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/logging"
)

// State is the key-management lifecycle position.
type State string

const (
	// StateNeedsPassword: no keyring record exists yet; Setup is required.
	StateNeedsPassword State = "needs-password"
	// StateLocked: a keyring exists but the key is not in memory.
	StateLocked State = "locked"
	// StatePending: a Setup or Unlock is awaiting derivation/remote I/O.
	StatePending State = "pending"
	// StateReady: the raw master key is held in memory.
	StateReady State = "ready"
)

// Store is the slice of the remote contract the keyring needs.
type Store interface {
	KeyringGet(ctx context.Context) (*models.KeyringRecord, error)
	KeyringPut(ctx context.Context, rec *models.KeyringRecord) error
}

// Manager is the encryption context. All methods are safe for concurrent
// use; operations resolve to a state transition plus an error code rather
// than leaving the caller in an indeterminate state.
type Manager struct {
	store Store
	log   logging.Logger

	mu        sync.Mutex
	state     State
	masterKey []byte
}

// NewManager constructs a locked manager. Call Init to resolve the real
// initial state from the remote keyring record.
func NewManager(store Store, log logging.Logger) *Manager {
	return &Manager{store: store, log: log.With("component", "keyring"), state: StateLocked}
}

// Init probes the remote store for an existing keyring record and settles
// the initial state: needs-password when none exists, locked otherwise.
func (m *Manager) Init(ctx context.Context) error {
	_, err := m.store.KeyringGet(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		m.state = StateLocked
		return nil
	case errors.Is(err, common.ErrNotFound):
		m.state = StateNeedsPassword
		return nil
	default:
		return fmt.Errorf("keyring probe: %w", err)
	}
}

// State reports the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Setup generates a fresh master key, wraps it under a key derived from
// password and a fresh random salt, persists the keyring record, and
// transitions to ready holding the key. Any crypto or I/O failure reverts
// to the prior state and returns common.ErrSetupFailed (wrapping the cause).
//
// Setup is only valid in needs-password: an existing keyring is never
// rotated in place.
func (m *Manager) Setup(ctx context.Context, password []byte) error {
	if err := m.transition(StateNeedsPassword); err != nil {
		return err
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	params := cryptox.DefaultKDFParams()
	masterKey := cryptox.GenerateMasterKey()

	wrapped, err := cryptox.WrapMasterKey(masterKey, password, salt, params)
	if err != nil {
		common.WipeByteArray(masterKey)
		m.settle(StateNeedsPassword, nil)
		return fmt.Errorf("%w: %w", common.ErrSetupFailed, err)
	}

	rec := &models.KeyringRecord{WrappedMasterKey: wrapped, Salt: salt, KDF: params}
	if err := m.store.KeyringPut(ctx, rec); err != nil {
		common.WipeByteArray(masterKey)
		m.settle(StateNeedsPassword, nil)
		return fmt.Errorf("%w: %w", common.ErrSetupFailed, err)
	}

	m.settle(StateReady, masterKey)
	m.log.Info(ctx, "keyring created")
	return nil
}

// Unlock derives the wrapping key from the stored salt/KDF params and the
// supplied password and attempts to open the wrapped master key. A wrong
// password and a tampered blob are indistinguishable: both return
// common.ErrInvalidPassword and leave the manager locked. Unlocking an
// already-ready manager is a no-op.
func (m *Manager) Unlock(ctx context.Context, password []byte) error {
	if m.State() == StateReady {
		return nil
	}
	if err := m.transition(StateLocked); err != nil {
		return err
	}

	rec, err := m.store.KeyringGet(ctx)
	if err != nil {
		m.settle(StateLocked, nil)
		if errors.Is(err, common.ErrNotFound) {
			// No keyring; do not reveal more than the locked UI already shows.
			return common.ErrInvalidPassword
		}
		return fmt.Errorf("keyring fetch: %w", err)
	}

	masterKey, err := cryptox.UnwrapMasterKey(rec.WrappedMasterKey, password, rec.Salt, rec.KDF)
	if err != nil {
		m.settle(StateLocked, nil)
		if errors.Is(err, common.ErrCorruptedWrappedKey) {
			return common.ErrCorruptedWrappedKey
		}
		return common.ErrInvalidPassword
	}

	m.settle(StateReady, masterKey)
	m.log.Info(ctx, "keyring unlocked")
	return nil
}

// Lock discards in-memory key material synchronously. Irreversible without
// re-unlocking.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return
	}
	common.WipeByteArray(m.masterKey)
	m.masterKey = nil
	m.state = StateLocked
}

// MasterKey returns a copy of the raw master key, or common.ErrLocked when
// the manager is not ready.
func (m *Manager) MasterKey() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady || m.masterKey == nil {
		return nil, common.ErrLocked
	}
	key := make([]byte, len(m.masterKey))
	copy(key, m.masterKey)
	return key, nil
}

// transition moves from the required state to pending, failing fast when a
// concurrent operation already holds the pending slot.
func (m *Manager) transition(from State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return fmt.Errorf("operation not allowed in state %q", m.state)
	}
	m.state = StatePending
	return nil
}

// settle installs the terminal state and key material of an operation.
func (m *Manager) settle(state State, masterKey []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.masterKey != nil {
		common.WipeByteArray(m.masterKey)
	}
	m.masterKey = masterKey
	m.state = state
}
