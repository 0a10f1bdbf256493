package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a deployment manifest without deploying",
	Long: `Parse and validate a deployment manifest.

All findings are reported at once, so a manifest with several problems
is fixed in one pass.

Examples:
  rollout validate -f web.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringP("file", "f", "", "Deployment manifest (required)")
	_ = validateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	m, err := manifest.Load(file)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("manifest %s is invalid:\n%s", file, indentErrors(err))
	}

	req, err := m.Request()
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s is valid\n", file)
	fmt.Printf("  Service:  %s\n", req.Service)
	fmt.Printf("  Image:    %s\n", req.Image)
	fmt.Printf("  Port:     %d\n", req.Port)
	if len(req.Env) > 0 {
		fmt.Printf("  Env vars: %d\n", len(req.Env))
	}
	if len(req.Secrets) > 0 {
		fmt.Printf("  Secrets:  %d referenced\n", len(req.Secrets))
	}
	if len(m.TrafficSteps) > 0 {
		fmt.Printf("  Traffic:  staged promotion via %v\n", m.TrafficSteps)
	}
	return nil
}
