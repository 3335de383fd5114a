package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/eip3074-protection/pkg/config"
	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/redis"
	"github.com/ethpandaops/eip3074-protection/pkg/report"
	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

const namespace = "eip3074_protection"

var (
	log        = logrus.New()
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eip3074-protection",
	Short: "Deploys OnlyEOAs and prints the gas ratio of its methods.",
	Long: `Deploys OnlyEOAs and EIP3074ProtectionTest to a local test network,
calls doSomething and doSomethingElse, prints "Gas ratio: <ratio>" for each
GasInfo event, then calls the EOA-only method from a contract.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCommon()
		if err != nil {
			return err
		}

		return runOnce(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("Failed")

		os.Exit(1)
	}
}

func init() {
	log.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml if present)")
}

func initCommon() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LoggingLevel)
	if err != nil {
		log.WithError(err).Warn("Invalid logging level, using info")

		level = logrus.InfoLevel
	}

	log.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func runOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	set, err := contracts.Load(&cfg.Contracts)
	if err != nil {
		return fmt.Errorf("failed to load contracts: %w", err)
	}

	session, err := ethereum.NewSession(log.WithField("component", "ethereum"), namespace, &cfg.Ethereum)
	if err != nil {
		return fmt.Errorf("failed to create ethereum session: %w", err)
	}

	if err := session.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if err := session.Stop(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("Failed to stop ethereum session")
		}
	}()

	r := runner.New(log, session, set, out)

	if cfg.Redis != nil {
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}

		defer client.Close()

		r.AddRecorder(report.NewRedisStore(log, client, cfg.Redis.Prefix, cfg.Redis.MaxEntries))
	}

	_, err = r.Run(ctx)

	return err
}
