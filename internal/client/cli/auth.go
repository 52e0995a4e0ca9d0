package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/quietpage/quietpage/internal/common"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts the user for a username and password and attempts to
// create a new account via the AuthService.
//
// On success it prints "Success! You can log in now." and returns nil. The
// password byte slice is securely wiped before returning. Any I/O or service
// error is logged and returned.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		log.Printf("Registration failed: %s", err.Error())
		return err
	}

	printlnFn("Success! You can log in now.")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// The method first attempts an online login. If the server rejected the
// credentials the failure is final; any other error is treated as the server
// being unreachable and the locally cached verifier is tried instead. On
// success a.userName is set and connectivity Mode updates:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if both fail.
//
// After an online login the keyring state is probed so the status line can
// tell the user whether 'setup' or 'unlock' comes next. The password is
// securely wiped before returning. A nil error does not necessarily imply
// ModeOnline — inspect App.Mode for the final state.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var mode Mode

	err = a.authService.OnlineLogin(ctx, userName, password)
	switch {
	case err == nil:
		log.Printf("Login successful")
		mode = ModeOnline
		a.userName = userName
		if kerr := a.keyring.Init(ctx); kerr != nil {
			log.Printf("Keyring state check failed: %s", kerr.Error())
		}
	case errors.Is(err, common.ErrUnauthenticated):
		log.Printf("Login unsuccessful: %s", err.Error())
		mode = a.Mode
	default:
		log.Printf("Server unavailable, trying offline login...")
		if oerr := a.authService.OfflineLogin(ctx, userName, password); oerr != nil {
			log.Printf("Offline login unsuccessful: %s", oerr.Error())
			mode = ModeDisabled
		} else {
			log.Printf("Offline login successful. Journal content still needs the server.")
			mode = ModeOffline
			a.userName = userName
		}
	}

	a.setMode(mode)
	return nil
}

// Logout flushes pending edits, locks the keyring, drops the remote token
// pair and clears locally cached offline auth metadata.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Flush(ctx); err != nil {
		log.Printf("Flush before logout failed: %s", err.Error())
	}
	a.keyring.Lock()
	a.authService.Logout()
	if err := a.authService.ClearOfflineData(ctx); err != nil {
		return err
	}
	a.userName = ""
	return nil
}
