/*
Package session drives template generation from a live token stream.

A Session pairs a tagproto.Decoder with an accumulator.Accumulator and pulls
fragments from a TokenSource one at a time. After each fragment every
complete unit is applied in order, and the caller's UpdateFunc receives a
deep-copied snapshot after each applied content unit.

# Lifecycle

	Idle -> Streaming -> Finalizing -> Done
	             |-> Cancelled
	             |-> Failed

A session finalizes when the done-marker is applied, when a done-marker is
buffered behind a unit that never closed, or when the source returns io.EOF.
Finalization discards any half-open remainder, clears the Streaming flag and
invokes the UpdateFunc exactly once more. The done-marker itself does not
trigger a callback, so a stream holding one content unit and the marker
produces two callbacks.

# Cancellation

The UpdateFunc returns Cancel to stop the session. No further fragment is
read and no final callback is made; Run returns OutcomeCancelled with a nil
error. A done context is reported as OutcomeCancelled with ctx.Err(), which
keeps it distinct from a *SourceError.

# Usage

	s := session.New()
	res, err := s.Run(ctx, session.FromCompletion(stream), func(t *types.ServerTemplate) session.Action {
		render(t)
		return session.Continue
	})
	if session.IsSourceError(err) {
		// res.Template still holds the partial template
	}

A Session runs once. Reset returns it to Idle for another run.
*/
package session
