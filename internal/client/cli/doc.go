// Package cli provides the interactive GophStore command-line client.
//
// It wires configuration, the local session store, the API client and the
// catalog and cart views into a REPL. Typical flow: verify the stored token,
// prompt for credentials when there is none or it was rejected, start the
// dashboard auto refresh and execute user commands.
//
// Key features:
//   - Register / Login / Logout, and Forget to wipe the local database
//   - Browse, search and buy catalog items
//   - Cart: add, update, clear, checkout
//   - Admin: item management, low-stock notifications, quotes and charges
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
