package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Event is the part of the GitHub Actions context (toJSON(github)) that
// decides which images a workflow run touches.
type Event struct {
	Name    string `json:"event_name"`
	BaseRef string `json:"base_ref"`
	Ref     string `json:"ref"`
	Payload struct {
		BaseRef     string `json:"base_ref"`
		Before      string `json:"before"`
		After       string `json:"after"`
		PullRequest *struct {
			Base struct {
				Ref string `json:"ref"`
			} `json:"base"`
		} `json:"pull_request"`
	} `json:"event"`
}

// LoadEvent reads a GitHub Actions context dump.
func LoadEvent(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("read event file: %w", err)
	}
	return ParseEvent(data)
}

// ParseEvent decodes a GitHub Actions context dump.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if strings.TrimSpace(e.Name) == "" {
		return Event{}, fmt.Errorf("parse event: missing event_name")
	}
	return e, nil
}

// TargetBranch is the branch a pull request merges into.
func (e Event) TargetBranch() string {
	var prBase string
	if e.Payload.PullRequest != nil {
		prBase = e.Payload.PullRequest.Base.Ref
	}
	return firstNonEmpty(e.Payload.BaseRef, e.BaseRef, prBase)
}

func (e Event) Before() string { return strings.TrimSpace(e.Payload.Before) }
func (e Event) After() string  { return strings.TrimSpace(e.Payload.After) }

// IsFreshPush reports a push with nothing to compare against (a new
// branch): GitHub sends an all-zero before SHA.
func (e Event) IsFreshPush() bool {
	return e.Name == "push" && strings.Trim(e.Before(), "0") == ""
}

// LogSummary writes the event fields at debug level.
func (e Event) LogSummary(log *logrus.Entry) {
	log.Debug("+++ INPUT +++")
	log.Debugf("event_name : %s", formatOrNone(e.Name))
	log.Debugf("flow       : %s", ResolveFlow(e, FlowAuto))
	log.Debugf("base_ref   : %s", formatOrNone(e.TargetBranch()))
	log.Debugf("before     : %s", formatOrNone(e.Before()))
	log.Debugf("after      : %s", formatOrNone(e.After()))
	log.Debug("+++++++++++++")
}
