package ghclient

import (
	_ "embed"
)

// lastEventQuery reads the timestamp of an issue's most recent timeline
// event. issueOrPullRequest is used because the issues listing returns
// pull requests too.
//
//go:embed queries/last_event.graphql
var lastEventQuery string
