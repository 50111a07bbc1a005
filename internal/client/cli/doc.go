// Package cli provides the interactive GophGallery command-line client.
//
// The App ties the gallery, auth and viewer services to a REPL. It logs in
// when no session was restored, watches backend connectivity in the
// background and executes user commands:
//   - login, unlock, lock, logout
//   - list, more, filter, sort and thumbs over the media listing
//   - view, next, prev, close and save for the lightbox
//   - fav, rename, move, delete, comments, comment, versions and upload
//
// Encrypted items prompt for the decryption passphrase on first access.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
