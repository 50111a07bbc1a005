package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	a.mu.Lock()
	parts := make([]string, 0, 3)
	if a.userName != "" {
		parts = append(parts, a.userName)
	}
	if a.mode != "" {
		parts = append(parts, string(a.mode))
	}
	a.mu.Unlock()

	if a.auth.Unlocked() {
		parts = append(parts, "unlocked")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Root prints the banner, logs in when no session was restored, starts the
// connectivity watcher and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to GophGallery CLI (type 'help' for commands)")

	a.checkOnline(ctx)

	if !a.isLoggedIn() {
		a.report(a.Login(ctx, nil))
	}
	if a.isLoggedIn() {
		a.report(a.List(ctx, nil))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) report(err error) {
	if err != nil {
		fmt.Fprintln(a.out, "Error:", describe(err))
	}
}
