package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// Register prompts for an email, a full name and a password and creates the
// account. It does not log the new user in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.auth.Register(ctx, email, fullName, password)
	if err != nil {
		return a.fail(err)
	}

	a.success("Account %s created, you can log in now.", u.Email)
	return nil
}

// Login prompts for credentials and authenticates. A 401 here means wrong
// credentials rather than an expired session, so it is reported inline.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.auth.Login(ctx, username, password)
	if err != nil {
		if client.IsUnauthorized(err) {
			a.println(errorStyle.Render("Error: invalid email or password"))
			return err
		}
		return a.fail(err)
	}

	a.expired.Store(false)
	a.log.Info(ctx, "login successful", "user_id", u.ID)
	a.success("Welcome, %s.", u.DisplayName())
	return nil
}

// Logout clears the stored token and everything cached for the user.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.wipeMetadata(ctx); err != nil {
		return a.fail(err)
	}
	a.docs.Reset()
	a.resetView()
	a.println("Logged out.")
	return nil
}

func (a *App) WhoAmI(context.Context) error {
	u := a.auth.CurrentUser()
	if u == nil {
		a.println("Not logged in.")
		return nil
	}
	a.printf("%s <%s> (id %d)\n", u.DisplayName(), u.Email, u.ID)
	if c, ok := a.session.Claims(); ok && !c.ExpiresAt.IsZero() {
		a.println(dimStyle.Render("Session valid until " + c.ExpiresAt.Local().Format(time.DateTime)))
	}
	return nil
}
