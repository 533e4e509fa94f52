package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dan9191/reasonable-comp/internal/app"
	"github.com/Dan9191/reasonable-comp/internal/config"
	"github.com/Dan9191/reasonable-comp/internal/models"
)

var (
	provider string
	verbose  bool
	wire     *app.Wire
)

func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) error {
	wire = nil
	defer func() {
		if wire != nil {
			wire.Close()
		}
	}()

	root := newRootCmd(errOut)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "compcalc",
		Short:        "Reasonable compensation estimates for S-Corp owners",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			logger := logrus.New()
			logger.SetOutput(logOut)
			logger.SetLevel(logrus.WarnLevel)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			switch p := strings.ToLower(provider); p {
			case "":
			case config.ProviderStatic, config.ProviderAggregated:
				cfg.BaselineProvider = p
			default:
				return fmt.Errorf("unknown provider %q, expected %q or %q", provider, config.ProviderStatic, config.ProviderAggregated)
			}
			w, err := app.NewWire(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&provider, "provider", "", "baseline provider: static or aggregated (default from BASELINE_PROVIDER)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(estimateCmd(), reportCmd(), sourcesCmd(), pruneCmd())
	return root
}

// readRequest loads a calculation request from a file, or stdin for "-"
func readRequest(cmd *cobra.Command, path string) (models.CalcRequest, error) {
	var (
		req models.CalcRequest
		r   io.Reader
	)
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to read request %s: %w", path, err)
	}
	return req, nil
}

// prepare refreshes market data before a lookup when the aggregated
// provider has nothing recent
func prepare(ctx context.Context) error {
	return wire.EnsureFresh(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func normaliseState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
