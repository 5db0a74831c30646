// Package cli provides the interactive doccontrol command-line client.
//
// It wires configuration, the local token database, the REST client and the
// document services into a REPL. Typical flow: log in (or resume a saved
// session), list documents, open one, then check it out, check in a new
// revision, browse its history, compare versions and work its task board.
//
// Key features:
//   - Register / Login / Logout, with the session restored on startup
//   - List / Open / Upload / Download documents
//   - Checkout and Check-in, refused locally for anyone but the holder
//   - History with a two-version selection and a unified or split diff
//   - Task board with the pending → in progress → completed|rejected flow
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
