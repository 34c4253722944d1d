// Package connection owns the single socket to the game server.
//
// A Manager tracks which session (game, player) the socket belongs to,
// opens and tears it down on request, and broadcasts every status change and
// every received frame to its subscribers. All of its state lives on one
// serial loop; the public methods only post work to that loop, except
// EnsureConnected and GetStatus, which wait for their reply.
//
// Listeners run on the manager's loop, one event at a time and in
// registration order. A listener must return quickly and must not call
// EnsureConnected, GetStatus or History (they would wait on the loop that is
// running the listener); it should hand the event to its own loop instead.
package connection
