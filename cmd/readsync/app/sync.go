package app

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/c0deZ3R0/readsync/metrics"
	"github.com/c0deZ3R0/readsync/synckit"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile a platform export into the local store",
		Long: `Compare the records in --source with the local store, resolve what can be
resolved automatically and apply the changes with the configured strategy
(MERGE, OVERWRITE or APPEND).`,
		RunE: runSync,
	}
	cmd.Flags().String("source", "", "Path to the source records (JSON or YAML, required)")
	cmd.Flags().String("mode", "", "Strategy mode (overrides strategy.mode)")
	cmd.Flags().Bool("metrics", false, "Print the run metrics after the report")
	if err := cmd.MarkFlagRequired("source"); err != nil {
		panic(err)
	}
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	sourcePath, _ := cmd.Flags().GetString("source")
	source, err := loadRecords(sourcePath)
	if err != nil {
		return err
	}
	target, err := env.store.Load(ctx)
	if err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("mode")
	if mode == "" {
		mode = env.cfg.Strategy.Mode
	}
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	collector, err := metrics.New(provider)
	if err != nil {
		return err
	}

	coordinator := synckit.NewProcessorCoordinator(env.store, env.cfg.ProcessorConfig(), env.logger)
	var handler synckit.ConflictHandler
	if env.cfg.Conflict.AutoResolve {
		handler = env.store
	}

	opts := append(env.cfg.OrchestratorOptions(),
		synckit.WithLogger(env.logger),
		synckit.WithMetricsCollector(collector),
	)
	orchestrator, err := synckit.NewOrchestrator(coordinator, handler, opts...)
	if err != nil {
		return err
	}

	res := orchestrator.OrchestrateSync(ctx, source, target, &synckit.SyncOptions{Mode: mode})

	out := cmd.OutOrStdout()
	if _, err := io.WriteString(out, synckit.FormatReport(res)); err != nil {
		return err
	}
	if showMetrics {
		if err := printMetrics(ctx, out, reader); err != nil {
			return err
		}
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

// printMetrics writes one line per instrument: the total of a counter or the
// count and sum of a histogram.
func printMetrics(ctx context.Context, out io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	var lines []string
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != metrics.MeterName {
			continue
		}
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				lines = append(lines, fmt.Sprintf("  %s %d", m.Name, total))
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				lines = append(lines, fmt.Sprintf("  %s count=%d sum=%.3f", m.Name, count, sum))
			}
		}
	}
	sort.Strings(lines)

	if _, err := fmt.Fprintln(out, "Metrics:"); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
