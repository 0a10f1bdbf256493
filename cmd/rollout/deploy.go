package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/deployer"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/events"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/history"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/manifest"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/metrics"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/migrator"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/platform"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/probe"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/rollout"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/secrets"
	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy an image with health-gated traffic migration",
	Long: `Deploy a pre-built container image as a new service revision.

The candidate revision starts with zero traffic, is health-probed until
it answers 2xx, and only then receives 100% of traffic. Referenced
secrets are checked for reachability before anything is deployed.

Examples:
  # Deploy from a manifest
  rollout deploy -f web.yaml --platform-url https://api.platform.example.com

  # Override the target project and region
  rollout deploy -f web.yaml --project staging --region us-east1

  # Staged promotion: 25%, then 50%, then full cutover
  rollout deploy -f web.yaml --traffic-steps 25,50`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringP("file", "f", "", "Deployment manifest (required)")
	deployCmd.Flags().String("project", envOr("ROLLOUT_PROJECT", ""), "Platform project (manifest value wins)")
	deployCmd.Flags().String("region", envOr("ROLLOUT_REGION", ""), "Deployment region (manifest value wins)")
	deployCmd.Flags().String("platform-url", envOr("ROLLOUT_PLATFORM_URL", ""), "Platform API base URL (required)")
	deployCmd.Flags().String("secrets-url", envOr("ROLLOUT_SECRETS_URL", ""), "Secret manager base URL (unset: check against environment)")
	deployCmd.Flags().String("token", envOr("ROLLOUT_TOKEN", ""), "Bearer token for platform and secret manager calls")
	deployCmd.Flags().String("data-dir", "./rollout-data", "Directory for rollout history")
	deployCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	deployCmd.Flags().IntSlice("traffic-steps", nil, "Intermediate traffic percents before full cutover (overrides manifest)")
	_ = deployCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	project, _ := cmd.Flags().GetString("project")
	region, _ := cmd.Flags().GetString("region")
	platformURL, _ := cmd.Flags().GetString("platform-url")
	secretsURL, _ := cmd.Flags().GetString("secrets-url")
	token, _ := cmd.Flags().GetString("token")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	flagSteps, _ := cmd.Flags().GetIntSlice("traffic-steps")

	m, err := manifest.Load(file)
	if err != nil {
		return err
	}
	if m.Project == "" {
		m.Project = project
	}
	if m.Region == "" {
		m.Region = region
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("manifest %s is invalid:\n%s", file, indentErrors(err))
	}

	if platformURL == "" {
		return fmt.Errorf("--platform-url (or ROLLOUT_PLATFORM_URL) is required")
	}
	if m.Project == "" {
		return fmt.Errorf("a project is required: set it in the manifest or via --project")
	}
	if m.Region == "" {
		return fmt.Errorf("a region is required: set it in the manifest or via --region")
	}

	req, err := m.Request()
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	api := platform.NewClient(platformURL, req.Project, req.Region)
	if token != "" {
		api = api.WithToken(token)
	}

	var store secrets.Store
	if secretsURL != "" {
		hs := secrets.NewHTTPStore(secretsURL, req.Project)
		if token != "" {
			hs = hs.WithToken(token)
		}
		store = hs
	} else {
		fmt.Println("No secret manager configured, checking secrets against the environment")
		store = secrets.NewEnvStore("ROLLOUT_SECRET_")
	}

	steps := m.TrafficSteps
	if len(flagSteps) > 0 {
		steps = flagSteps
	}
	mig := migrator.NewMigrator(api)
	if len(steps) > 0 {
		mig = mig.WithSteps(steps)
	}

	hist, err := history.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open history store: %v", err)
	}
	defer hist.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	done := printProgress(broker.Subscribe())

	ctrl := rollout.New(api, secrets.NewValidator(store), deployer.NewDeployer(api), probe.NewProber(), mig).
		WithHistory(hist).
		WithBroker(broker)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Deploying %s\n", req.Image)
	fmt.Printf("  Service: %s\n", req.Service)
	fmt.Printf("  Project: %s\n", req.Project)
	fmt.Printf("  Region:  %s\n", req.Region)
	fmt.Println()

	res, err := ctrl.Run(ctx, req)
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	printResult(res)
	exitCode = res.ExitCode()
	return nil
}

// printProgress renders rollout events as they arrive. The returned channel
// closes once the terminal event has been printed.
func printProgress(sub events.Subscriber) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			switch ev.Type {
			case events.EventStateChanged:
				state := types.RolloutState(ev.Metadata["state"])
				if !state.Terminal() {
					fmt.Printf("▶ %s\n", state)
				}
			case events.EventSecretChecked:
				if ev.Metadata["reachable"] == "true" {
					fmt.Printf("  ✓ %s\n", ev.Message)
				} else {
					fmt.Printf("  ✗ %s\n", ev.Message)
				}
			case events.EventServiceFound:
				fmt.Printf("  Service exists, serving revision %s\n", ev.Metadata["revision"])
			case events.EventServiceAbsent:
				fmt.Println("  Service does not exist yet, creating")
			case events.EventRevisionDeployed:
				fmt.Printf("  ✓ Candidate %s deployed at 0%% traffic\n", ev.Metadata["revision"])
			case events.EventProbeAttempt:
				fmt.Printf("  Health probe %s after %s attempt(s)\n", ev.Metadata["status"], ev.Metadata["attempts"])
			case events.EventTrafficShifted:
				fmt.Printf("  ✓ %s\n", ev.Message)
			case events.EventRollbackApplied:
				fmt.Printf("  ↩ %s\n", ev.Message)
			case events.EventRolloutFinished:
				return
			}
		}
	}()
	return done
}

func printResult(res *types.RolloutResult) {
	fmt.Println()
	switch res.FinalState {
	case types.StateSucceeded:
		fmt.Printf("✓ Rollout %s succeeded in %s\n", res.ID, res.Duration().Round(time.Millisecond))
		fmt.Printf("  Revision %s is serving 100%% of traffic\n", res.ServingRevision)
	case types.StateRolledBack:
		fmt.Printf("✗ Rollout %s rolled back after %s\n", res.ID, res.Duration().Round(time.Millisecond))
		fmt.Printf("  %s\n", res.Reason)
	default:
		fmt.Printf("✗ Rollout %s aborted (%s)\n", res.ID, res.FailureKind)
		fmt.Printf("  %s\n", res.Reason)
		if res.CandidateRevision != "" {
			fmt.Printf("  Candidate %s is kept at zero traffic for inspection\n", res.CandidateRevision)
		}
	}
}

// indentErrors formats a (possibly multi-error) validation failure for
// operator-facing output, one finding per line
func indentErrors(err error) string {
	var verrs manifest.ValidationErrors
	if errors.As(err, &verrs) {
		lines := make([]string, 0, len(verrs))
		for _, ve := range verrs {
			lines = append(lines, "  - "+ve.Error())
		}
		return strings.Join(lines, "\n")
	}
	return "  - " + err.Error()
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server failed", err)
	}
}
