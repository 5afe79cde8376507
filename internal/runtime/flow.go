package runtime

import "fmt"

type Flow string

const (
	FlowAuto        Flow = "auto"
	FlowPullRequest Flow = "pull_request"
	FlowPush        Flow = "push"
	FlowFreshPush   Flow = "fresh-push"
	FlowOther       Flow = "other"
)

// ResolveFlow picks how changed files are found for e, unless forced.
func ResolveFlow(e Event, forced Flow) Flow {
	if forced != "" && forced != FlowAuto {
		return forced
	}
	switch {
	case e.Name == "pull_request":
		return FlowPullRequest
	case e.IsFreshPush():
		return FlowFreshPush
	case e.Name == "push":
		return FlowPush
	default:
		return FlowOther
	}
}

// ParseFlow accepts the flow names used on the command line; empty means
// auto.
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(s); f {
	case "":
		return FlowAuto, nil
	case FlowAuto, FlowPullRequest, FlowPush, FlowFreshPush, FlowOther:
		return f, nil
	default:
		return "", fmt.Errorf("unknown flow %q", s)
	}
}
