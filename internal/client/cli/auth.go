package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/client/services"
	"github.com/dmitrijs2005/gophstore/internal/client/session"
	"github.com/dmitrijs2005/gophstore/internal/common"
)

// getSimpleText, getPassword and getConfirmation are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getConfirmation = GetConfirmation

// Register prompts for a username, a password and an optional role and
// creates the account. The backend's message is shown either way.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	roleText, err := getSimpleText(a.reader, "Role (user, admin, superadmin) [user]", a.out)
	if err != nil {
		return err
	}
	role := models.Role(strings.ToLower(roleText))

	msg, err := a.authService.Register(ctx, userName, password, role)
	if err != nil {
		a.println(services.RegisterFailureMessage(err))
		return err
	}

	a.println(msg)
	return nil
}

// Login prompts for credentials, stores the token and verifies it the way a
// fresh start would. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		a.log.Info(ctx, "login unsuccessful", "error", err)
		a.println(services.LoginFailureMessage(err))
		return err
	}

	a.mount(ctx)
	if !a.isLoggedIn() {
		return session.ErrNotAuthenticated
	}
	a.log.Info(ctx, "login successful", "username", userName)
	a.println("Welcome, " + a.userName + "!")
	return nil
}

// Logout forgets the token. The next command asks for a login.
func (a *App) Logout(ctx context.Context) error {
	a.stopAutoRefresh()
	if err := a.authService.Logout(ctx); err != nil {
		a.println("Error logging out")
		return err
	}
	a.userName = ""
	a.mount(ctx)
	a.println("Logged out")
	return nil
}

// Forget removes the stored session and every other local value, then
// verifies again so the next command asks for a login.
func (a *App) Forget(ctx context.Context) error {
	if !getConfirmation(a.reader, "Remove the stored session and all local data?", a.out) {
		a.println("Cancelled")
		return nil
	}
	a.stopAutoRefresh()
	if err := a.store.Forget(ctx); err != nil {
		a.log.Error(ctx, "failed to remove local data", "error", err)
		a.println("Error removing local data")
		return err
	}
	a.userName = ""
	a.mount(ctx)
	a.println("Local data removed")
	return nil
}

// protect runs fn when the session is authenticated and tells the user why
// not otherwise.
func (a *App) protect(ctx context.Context, fn func(ctx context.Context) error) error {
	err := a.guard.Protect(ctx, fn)
	if errors.Is(err, session.ErrNotAuthenticated) {
		if view := a.guard.View(); view != "" {
			a.println(view)
		} else {
			a.println("Please log in first.")
		}
	}
	return err
}

// protectAdmin is protect for commands only admins are offered.
func (a *App) protectAdmin(ctx context.Context, fn func(ctx context.Context) error) error {
	return a.protect(ctx, func(ctx context.Context) error {
		if !a.isAdmin() {
			a.println("This command is available to admins only.")
			return errAdminOnly
		}
		return fn(ctx)
	})
}

var errAdminOnly = errors.New("admin only")
