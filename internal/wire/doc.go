// Package wire defines the messages exchanged with the game server once the
// socket is live, and their JSON form.
//
// Every message is a JSON object whose "type" member names the variant; the
// variant's own fields sit next to it at the same level:
//
//	{"type":"PLAYER_CONNECTED","message":"Say hello to Toto.","username":"Toto"}
//
// The same convention is used for the nested sums AwaitedAction,
// ComponentUpdate and Component. Encoding is deterministic: "type" first,
// then the fields in declaration order, absent optional values as null and
// nil lists as []. Decoding rejects unknown types and missing, null or
// mistyped required fields, and ignores members it does not know.
//
// Empty lists decode to nil slices, so Decode(Encode(m)) equals m unless m
// holds an empty non-nil slice. Strings must be valid UTF-8: Encode rejects
// anything else instead of rewriting it.
package wire
