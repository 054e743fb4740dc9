package referral

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	referralApp "github.com/felixgeelhaar/nourish/internal/referral/application"
	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/referral/infrastructure/persistence"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/clientstore"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
)

type recordingGateway struct {
	mu      sync.Mutex
	credits []string
	err     error
}

func (g *recordingGateway) Credit(_ context.Context, code, source, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.credits = append(g.credits, code+"/"+source)
	return nil
}

func (g *recordingGateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *recordingGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.credits...)
}

func resetFlags() {
	acceptSource = domain.DefaultSource
}

func setupApp(t *testing.T) (*cli.App, *recordingGateway) {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	policy := resilience.RetryPolicy{MaxAttempts: 1, Timeout: time.Second}
	executor := resilience.NewExecutor(nil, nil, resilience.ExecutorConfig{})
	affiliates := persistence.NewAffiliateRepository(conn)
	gateway := &recordingGateway{}
	tracker := referralApp.NewTracker(clientstore.NewMemory())
	allocator := referralApp.NewAllocator(affiliates, executor, policy, nil, nil)

	app := cli.NewApp(uuid.New())
	app.SetReferral(
		allocator,
		tracker,
		referralApp.NewAcceptanceService(tracker, gateway, executor, policy, nil, nil),
		referralApp.NewAffiliateService(affiliates, allocator, nil),
	)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	return app, gateway
}

func TestCodeCmd_NoApp(t *testing.T) {
	cli.SetApp(nil)
	codeCmd.SetContext(context.Background())

	err := codeCmd.RunE(codeCmd, []string{"Jane"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "require database connection")
}

func TestCodeCmd_VerifiedCode(t *testing.T) {
	setupApp(t)

	var output strings.Builder
	codeCmd.SetContext(context.Background())
	codeCmd.SetOut(&output)

	require.NoError(t, codeCmd.RunE(codeCmd, []string{"Jane", "Doe"}))
	assert.Contains(t, output.String(), "Code: janedoe")
	assert.NotContains(t, output.String(), "not verified")
}

func TestRegisterCmd_ReturnsSameAffiliate(t *testing.T) {
	setupApp(t)

	var output strings.Builder
	registerCmd.SetContext(context.Background())
	registerCmd.SetOut(&output)
	require.NoError(t, registerCmd.RunE(registerCmd, []string{"Jane Doe"}))
	first := output.String()
	assert.Contains(t, first, "Affiliate: Jane Doe")

	output.Reset()
	require.NoError(t, registerCmd.RunE(registerCmd, []string{"Someone Else"}))
	assert.Equal(t, first, output.String())
}

func TestAcceptCmd_CreditsOnce(t *testing.T) {
	resetFlags()
	_, gateway := setupApp(t)

	acceptSource = "instagram"
	var output strings.Builder
	acceptCmd.SetContext(context.Background())
	acceptCmd.SetOut(&output)

	require.NoError(t, acceptCmd.RunE(acceptCmd, []string{"JANE42"}))
	require.NoError(t, acceptCmd.RunE(acceptCmd, []string{"jane42"}))

	assert.Equal(t, []string{"jane42/instagram"}, gateway.calls())
	assert.Contains(t, output.String(), "Referral jane42 accepted.")
}

func TestAcceptCmd_RejectedShowsUpstreamMessage(t *testing.T) {
	resetFlags()
	_, gateway := setupApp(t)
	gateway.fail(resilience.NewError(resilience.KindUpstreamRejected, "accept-referral", "referral code expired"))

	acceptCmd.SetContext(context.Background())
	err := acceptCmd.RunE(acceptCmd, []string{"old1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referral code expired")
}

func TestResumeCmd_RetriesInterruptedAcceptance(t *testing.T) {
	resetFlags()
	_, gateway := setupApp(t)
	gateway.fail(resilience.NewError(resilience.KindTransientNetwork, "accept-referral", "unavailable"))

	acceptCmd.SetContext(context.Background())
	require.Error(t, acceptCmd.RunE(acceptCmd, []string{"jane42"}))

	var output strings.Builder
	pendingCmd.SetContext(context.Background())
	pendingCmd.SetOut(&output)
	require.NoError(t, pendingCmd.RunE(pendingCmd, []string{}))
	assert.Contains(t, output.String(), "Pending: jane42 (source direct")

	gateway.fail(nil)
	output.Reset()
	resumeCmd.SetContext(context.Background())
	resumeCmd.SetOut(&output)
	require.NoError(t, resumeCmd.RunE(resumeCmd, []string{}))
	assert.Contains(t, output.String(), "Referral jane42 accepted.")
	assert.Equal(t, []string{"jane42/direct"}, gateway.calls())

	output.Reset()
	require.NoError(t, pendingCmd.RunE(pendingCmd, []string{}))
	assert.Contains(t, output.String(), "No pending referral.")
}

func TestResumeCmd_NothingPending(t *testing.T) {
	setupApp(t)

	var output strings.Builder
	resumeCmd.SetContext(context.Background())
	resumeCmd.SetOut(&output)

	require.NoError(t, resumeCmd.RunE(resumeCmd, []string{}))
	assert.Contains(t, output.String(), "No pending referral.")
}

func TestCmdConfiguration(t *testing.T) {
	assert.Equal(t, "referral", Cmd.Use)

	var names []string
	for _, cmd := range Cmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"code", "register", "accept", "resume", "pending"}, names)
	assert.NotNil(t, acceptCmd.Flags().Lookup("source"))
}
