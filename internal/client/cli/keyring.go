package cli

import (
	"context"
	"log"
	"os"

	"github.com/quietpage/quietpage/internal/client/keyring"
	"github.com/quietpage/quietpage/internal/common"
)

// Setup creates the master key for a fresh account: prompts for the journal
// password, generates a master key, wraps it and stores the keyring remotely.
// Refuses to run when a keyring already exists (use 'unlock' instead).
func (a *App) Setup(ctx context.Context) error {
	if a.keyring.State() != keyring.StateNeedsPassword {
		printlnFn("A keyring already exists; use 'unlock'.")
		return nil
	}

	printlnFn("Choose a journal password. It never leaves this device; losing it means losing your entries.")
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.keyring.Setup(ctx, password); err != nil {
		log.Printf("Keyring setup failed: %s", err.Error())
		return err
	}

	printlnFn("Keyring created. Your journal is ready.")
	return nil
}

// Unlock derives the wrapping key from the journal password and unwraps the
// master key into memory.
func (a *App) Unlock(ctx context.Context) error {
	if a.keyring.State() == keyring.StateReady {
		printlnFn("Already unlocked.")
		return nil
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.keyring.Unlock(ctx, password); err != nil {
		log.Printf("Unlock failed: %s", err.Error())
		return err
	}

	printlnFn("Unlocked.")
	return nil
}

// Lock flushes pending edits and wipes the master key from memory. Unsynced
// drafts that could not be flushed are lost: they are never persisted without
// a key to encrypt them.
func (a *App) Lock(ctx context.Context) error {
	if err := a.session.Flush(ctx); err != nil {
		log.Printf("Flush before lock failed: %s", err.Error())
	}
	a.keyring.Lock()
	printlnFn("Locked.")
	return nil
}
