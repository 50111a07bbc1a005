package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login authenticates against the backend. The user name is taken from args
// or prompted for; the password is always prompted for and wiped afterwards.
// A transport failure switches the App to offline mode.
func (a *App) Login(ctx context.Context, args []string) error {
	var userName string
	if len(args) > 0 {
		userName = args[0]
	} else {
		var err error
		userName, err = getSimpleText(a.reader, "Enter user name", a.out)
		if err != nil {
			return err
		}
	}

	password, err := getPassword(a.reader, a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, userName, password); err != nil {
		if errors.Is(err, client.ErrNetwork) || errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return err
	}

	a.mu.Lock()
	a.userName = userName
	a.mu.Unlock()
	a.setMode(ModeOnline)

	fmt.Fprintln(a.out, "Logged in")
	return nil
}

// Unlock prompts for the decryption passphrase and derives the master key.
func (a *App) Unlock(ctx context.Context, _ []string) error {
	passphrase, err := getPassword(a.reader, a.out, "Enter passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	if err := a.auth.Unlock(ctx, passphrase); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return fmt.Errorf("wrong passphrase: %w", err)
		}
		return err
	}

	fmt.Fprintln(a.out, "Unlocked")
	return nil
}

// Lock forgets the master key and drops every decrypted resource.
func (a *App) Lock(_ context.Context, _ []string) error {
	a.viewer.Close()
	a.gallery.Close()
	a.auth.Lock()
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// Logout closes the session and clears everything stored locally.
func (a *App) Logout(ctx context.Context, args []string) error {
	if err := a.Lock(ctx, args); err != nil {
		return err
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.userName = ""
	a.mu.Unlock()

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// withUnlock runs fn and, when it fails for lack of the master key, prompts
// for the passphrase and then runs retry once. A nil retry repeats fn.
func (a *App) withUnlock(ctx context.Context, fn, retry func() error) error {
	err := fn()
	if !errors.Is(err, common.ErrKeyRequired) {
		return err
	}

	fmt.Fprintln(a.out, "This item is encrypted.")
	if err := a.Unlock(ctx, nil); err != nil {
		return err
	}
	if retry == nil {
		retry = fn
	}
	return retry()
}
