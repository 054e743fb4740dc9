package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryNotice_WritesOnce(t *testing.T) {
	var out strings.Builder
	notify := RetryNotice(&out)

	for attempt := 1; attempt <= 3; attempt++ {
		notify(context.Background(), "referral.credit", attempt, errors.New("timeout"))
	}

	assert.Equal(t, "still working...\n", out.String())
}

func TestHealthCmd_NoApp(t *testing.T) {
	SetApp(nil)

	err := healthCmd.RunE(healthCmd, nil)
	assert.Error(t, err)
}

func TestHealthCmd_ReportsMissingGroups(t *testing.T) {
	SetApp(NewApp(uuid.New()))
	defer SetApp(nil)

	var out strings.Builder
	healthCmd.SetOut(&out)

	err := healthCmd.RunE(healthCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 service group(s)")
	assert.Contains(t, out.String(), "social: not wired")
}

func TestVersionCmd(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "nourish dev (none, built unknown")

	out.Reset()
	versionJSON = true
	t.Cleanup(func() { versionJSON = false })
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), `"version":"dev"`)
}
