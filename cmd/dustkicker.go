package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asthma_shield/internal/metrics"
	"asthma_shield/internal/models"
	"asthma_shield/internal/repository"
	"asthma_shield/internal/service"
)

// newDustKickerCmd runs one dust kicker pass in the foreground against the
// configured devices. It is meant for maintenance while serve is stopped;
// interrupting it runs the silent step before exit.
func newDustKickerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dust-kicker",
		Short: "Run the dust kicker sequence once and wait for it to finish.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := openDB(cfg, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			rec := service.NewEventRecorder(repository.NewEventSQLite(conn), nil, log.Named("events"))
			hw := openDevices(ctx, cfg, log)
			defer hw.close()

			m := metrics.New()
			coord := service.NewCoordinator(hw.purifier, hw.thermostat, hw.relay, rec, m, log.Named("coordinator"))
			dust := service.NewDustKicker(service.DustKickerConfig{
				StirDelay:   cfg.DustKicker.StirDelay,
				ScrubPeriod: cfg.DustKicker.ScrubPeriod,
			}, coord, rec, m, log.Named("dust_kicker"))

			if err := dust.Start(ctx); err != nil {
				return err
			}
			dust.Wait()

			res := struct {
				Sequence  models.SequenceState `json:"sequence"`
				Actuators models.ActuatorState `json:"actuators"`
				Completed bool                 `json:"completed"`
			}{
				Sequence:  dust.State(),
				Actuators: coord.State(),
				Completed: ctx.Err() == nil && dust.State().LastCompletedAt != nil,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
