package transport

import (
	"fmt"
	"net/url"

	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/domain"
)

// SocketURL derives the socket address for id from the page origin: the join
// route is resolved against origin and the scheme is switched to its socket
// equivalent (http to ws, https to wss).
func SocketURL(origin string, id domain.ConnectionIdentity) (string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}
	if base.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	switch base.Scheme {
	case "http", "ws":
		base.Scheme = "ws"
	case "https", "wss":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("origin %q: unsupported scheme %q", origin, base.Scheme)
	}

	query := url.Values{constants.PlayerIDParam: {id.PlayerID}}
	return Resolve(base, fmt.Sprintf(constants.JoinRoundPath, url.PathEscape(id.GameID)), query)
}

// Resolve resolves an escaped absolute path plus query against base.
func Resolve(base *url.URL, escapedPath string, query url.Values) (string, error) {
	ref, err := url.Parse(escapedPath)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", escapedPath, err)
	}
	ref.RawQuery = query.Encode()
	return base.ResolveReference(ref).String(), nil
}
