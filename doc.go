// Package webclip is the composition root of the web-capture bridge.
//
// A browser-side component sends capture requests (a page link, a text
// selection or a full page) across a process boundary to a host that owns a
// notes workspace. The host locates the destination record, usually today's
// journal entry, and lays the capture out as an outline: a bold title with
// the source URL, quoted lines and image links nested below it.
//
// Features:
//
//   - **Correlated messaging**: every request carries an id and settles exactly
//     once, with a reply or with an Unreachable result after the timeout.
//   - **Pluggable transports**: in-process channels, JSON lines over stdio, or a
//     spawned host process.
//   - **Journal fallback chain**: today's entry, a newly created one, the latest
//     dated entry, the active record, then a guid scan.
//   - **Workspace adapters**: markdown vaults (optionally git versioned), SQLite,
//     or memory.
//
// Usage:
//
//	sess, err := webclip.Connect(ctx, "./vault", webclip.WithAutoInit(true))
//	if err != nil {
//		return err
//	}
//	defer sess.Close(ctx)
//
//	reply, err := sess.Capture(ctx, core.CapturePayload{
//		Mode:        core.ModeLink,
//		URL:         "https://example.com",
//		Title:       "Example Domain",
//		Destination: core.DestinationRef{Type: core.DestinationJournal},
//	})
package webclip
