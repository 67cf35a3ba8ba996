// Package ghclient provides GitHub API client functionality.
package ghclient

import "github.com/spiffcs/stalebot/internal/stale"

// Ensure Client implements the operations a stale run needs.
var _ stale.API = (*Client)(nil)
