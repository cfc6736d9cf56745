package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"floorview/internal/core/domain"
	"floorview/internal/infrastructure/collaborator"
	apperrors "floorview/pkg/errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type apiCall func(ctx context.Context, api *collaborator.Client) ([]byte, error)

// runAPI calls the REST API and prints the body exactly as returned.
func runAPI(call apiCall) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		api := collaborator.NewClient(cfg.API.BaseURL, cfg.API.Timeout, zap.NewNop().Sugar())

		body, err := call(cmd.Context(), api)
		if err != nil {
			if appErr := apperrors.GetAppError(err); appErr != nil {
				return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
			}
			return err
		}
		return writeBody(cmd, body)
	}
}

func writeBody(cmd *cobra.Command, body []byte) error {
	out := cmd.OutOrStdout()
	if _, err := out.Write(body); err != nil {
		return err
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		_, err := fmt.Fprintln(out)
		return err
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show simulator status (GET /status)",
	Args:  cobra.NoArgs,
	RunE: runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
		return api.StatusRaw(ctx)
	}),
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend liveness (GET /health)",
	Args:  cobra.NoArgs,
	RunE: runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
		return api.Health(ctx)
	}),
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the active policy (GET /policies/active)",
	Args:  cobra.NoArgs,
	RunE: runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
		return api.ActivePolicy(ctx)
	}),
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a sorting document (POST /documents/upload)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.UploadDocument(ctx, filepath.Base(args[0]), f)
		})(cmd, args)
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile [document-id]",
	Short: "Compile a draft policy from a document (POST /policies/compile/{id})",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.CompilePolicy(ctx, args[0])
		})(cmd, args)
	},
}

var approveOperator string

var approveCmd = &cobra.Command{
	Use:   "approve [policy-id]",
	Short: "Approve a policy and make it active (POST /policies/{id}/approve)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.ApprovePolicy(ctx, args[0], approveOperator)
		})(cmd, args)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [policy-id]",
	Short: "Reject a policy (POST /policies/{id}/reject)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.RejectPolicy(ctx, args[0])
		})(cmd, args)
	},
}

var inspectImage string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect one part (POST /inspect)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.InspectRequest{UseCamera: true}
		if inspectImage != "" {
			data, err := os.ReadFile(inspectImage)
			if err != nil {
				return err
			}
			req = domain.InspectRequest{ImageBase64: base64.StdEncoding.EncodeToString(data)}
		}
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.Inspect(ctx, req)
		})(cmd, args)
	},
}

var (
	overrideReason   string
	overrideOperator string
)

var overrideCmd = &cobra.Command{
	Use:   "override [part-id] [bin]",
	Short: "Send a part to another bin (POST /operator/override)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.OverrideRequest{
			PartID:      args[0],
			OverrideBin: strings.ToUpper(args[1]),
			Reason:      overrideReason,
			OperatorID:  overrideOperator,
		}
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.Override(ctx, req)
		})(cmd, args)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the line a question (POST /qa)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.AskQA(ctx, question)
		})(cmd, args)
	},
}

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent line events, newest first (GET /events)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
			return api.Events(ctx, eventsLimit)
		})(cmd, args)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show shift statistics (GET /stats)",
	Args:  cobra.NoArgs,
	RunE: runAPI(func(ctx context.Context, api *collaborator.Client) ([]byte, error) {
		return api.Stats(ctx)
	}),
}

func init() {
	approveCmd.Flags().StringVar(&approveOperator, "operator", "operator", "operator id recorded on the policy")
	inspectCmd.Flags().StringVar(&inspectImage, "image", "", "image file to inspect instead of the camera")
	overrideCmd.Flags().StringVar(&overrideReason, "reason", "", "reason for the override")
	overrideCmd.Flags().StringVar(&overrideOperator, "operator", "operator", "operator id")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "number of events (1-1000)")
}
