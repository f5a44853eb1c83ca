package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/browsertestoor/pkg/agent"
	"github.com/ethpandaops/browsertestoor/pkg/fsutil"
)

// DefaultFailurePhrases is the phrase list scanned in agent output
// when the agent gives no structured completion signal. The scan is
// best effort; output without any of these phrases counts as success.
var DefaultFailurePhrases = []string{
	"failed to",
	"unable to",
	"timeout",
	"exception",
	"404 error",
	"could not",
	"error occurred",
}

// judge decides whether an artifact represents a successful task. A
// structured completion signal from the agent always wins; the phrase
// scan is the fallback.
func (e *executor) judge(art agent.Artifact) (success bool, reason string) {
	if done, ok := art.Done(); ok {
		if done {
			return true, ""
		}

		return false, "agent reported the task as not done"
	}

	phrases := e.cfg.FailurePhrases
	if len(phrases) == 0 {
		phrases = DefaultFailurePhrases
	}

	out := strings.ToLower(art.Output())

	for _, phrase := range phrases {
		if strings.Contains(out, phrase) {
			return false, fmt.Sprintf("output indicates failure: contains %q", phrase)
		}
	}

	return true, ""
}

// captureScreenshot saves the final browser state if the artifact
// supports it.
func (e *executor) captureScreenshot(ctx context.Context, art agent.Artifact, testName string, attempt int) (string, error) {
	shooter, ok := art.(agent.Screenshotter)
	if !ok {
		return "", fmt.Errorf("agent artifact does not support screenshots")
	}

	data, err := shooter.Screenshot(ctx)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_attempt%d_%d.png", fsutil.Slug(testName), attempt, time.Now().Unix())

	path, err := fsutil.WriteFile(e.cfg.ScreenshotDir, name, data)
	if err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}

	return path, nil
}
