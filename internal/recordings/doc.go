// Package recordings is the only way into stored ECG recordings.
//
// A Repository never answers a query on its own. Callers first bind it to a
// principal with For, and every method on the returned Scope filters on that
// principal's id:
//
//	scope := repo.For(user)
//	rec, err := scope.Get(ctx, id)
//	if errors.Is(err, recordings.ErrNotFound) {
//		// absent, or owned by someone else
//	}
//
// Recordings owned by another principal produce the same ErrNotFound as ids
// that never existed.
package recordings
