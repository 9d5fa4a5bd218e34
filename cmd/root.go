package cmd

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stacksim/stacksim/stacking"
	"github.com/stacksim/stacksim/stacking/dispatch"
	"github.com/stacksim/stacksim/stacking/gun"
)

var (
	// CLI flags for the run
	seed     int64  // Seed for primary and secondary generation
	events   int    // Number of events to process
	logLevel string // Log verbosity level
	cfgPath  string // Optional YAML config (sub-batches, overrides, gun tuning)

	// Stacking configs
	policyName        string  // Stacking policy name
	energyCut         float64 // Kill cutoff for the energy-cut policy
	additionalTiers   int     // Waiting tiers beyond tier 0
	partitionedUrgent bool    // Use the category-partitioned urgent stack

	// Particle gun configs
	particlesPerEvent int     // Primaries generated per event
	energyMean        float64 // Average primary kinetic energy
	energyStdDev      float64 // Stddev of primary kinetic energy
	energyMin         float64 // Min primary kinetic energy
	energyMax         float64 // Max primary kinetic energy

	// Dispatch configs
	dispatchWorkers int // Workers consuming released sub-batches
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "stacksim",
	Short: "Track stacking and classification engine driver",
}

// runCmd processes synthetic events through the stacking coordinator using
// parameters from CLI flags and the optional YAML config.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stacking event loop",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		bundle := bundleFromFlags()
		if cfgPath != "" {
			loaded, err := stacking.LoadStackingBundle(cfgPath)
			if err != nil {
				logrus.Fatalf("unable to read stacking config; %v", err)
			}
			mergeBundle(bundle, loaded)
		}
		if err := bundle.Validate(); err != nil {
			logrus.Fatalf("invalid stacking config; %v", err)
		}

		logrus.Infof("Starting run: %d events, seed=%d, policy=%q, tiers=%d, partitioned=%v",
			events, seed, bundle.Stacking.Policy, bundle.Stacking.AdditionalWaitingTiers, bundle.Stacking.PartitionedUrgent)

		startTime := time.Now()
		metrics, err := runLoop(bundle, seed, events)
		if err != nil {
			logrus.Fatalf("run failed; %v", err)
		}

		metrics.Print()
		logrus.Infof("Run complete in %v.", time.Since(startTime))
	},
}

// bundleFromFlags builds the run configuration from CLI flags alone.
func bundleFromFlags() *stacking.StackingBundle {
	cut := energyCut
	return &stacking.StackingBundle{
		Stacking: stacking.StackingConfig{
			Policy:                 policyName,
			EnergyCut:              &cut,
			AdditionalWaitingTiers: additionalTiers,
			PartitionedUrgent:      partitionedUrgent,
		},
		Gun: stacking.GunConfig{
			ParticlesPerEvent: particlesPerEvent,
			EnergyMean:        energyMean,
			EnergyStdDev:      energyStdDev,
			EnergyMin:         energyMin,
			EnergyMax:         energyMax,
		},
		Dispatch: stacking.DispatchConfig{Workers: dispatchWorkers},
	}
}

// mergeBundle overlays non-zero fields of the loaded YAML config onto the
// flag-derived bundle. Sub-batch registrations and override entries come only
// from the file.
func mergeBundle(dst, src *stacking.StackingBundle) {
	if src.Stacking.Policy != "" {
		dst.Stacking.Policy = src.Stacking.Policy
	}
	if src.Stacking.EnergyCut != nil {
		dst.Stacking.EnergyCut = src.Stacking.EnergyCut
	}
	if src.Stacking.AdditionalWaitingTiers != 0 {
		dst.Stacking.AdditionalWaitingTiers = src.Stacking.AdditionalWaitingTiers
	}
	if src.Stacking.PartitionedUrgent {
		dst.Stacking.PartitionedUrgent = true
	}
	dst.SubBatches = src.SubBatches
	dst.Defaults = src.Defaults
	if src.Gun.ParticlesPerEvent != 0 {
		dst.Gun.ParticlesPerEvent = src.Gun.ParticlesPerEvent
	}
	if src.Gun.EnergyMean != 0 {
		dst.Gun.EnergyMean = src.Gun.EnergyMean
	}
	if src.Gun.EnergyStdDev != 0 {
		dst.Gun.EnergyStdDev = src.Gun.EnergyStdDev
	}
	if src.Gun.EnergyMin != 0 {
		dst.Gun.EnergyMin = src.Gun.EnergyMin
	}
	if src.Gun.EnergyMax != 0 {
		dst.Gun.EnergyMax = src.Gun.EnergyMax
	}
	if src.Gun.Species != nil {
		dst.Gun.Species = src.Gun.Species
	}
	if src.Dispatch.Workers != 0 {
		dst.Dispatch.Workers = src.Dispatch.Workers
	}
}

// runLoop drives the prepare/push/pop protocol for nEvents events and
// dispatches released sub-batches after each event drains.
func runLoop(bundle *stacking.StackingBundle, seed int64, nEvents int) (*stacking.Metrics, error) {
	var cut float64
	if bundle.Stacking.EnergyCut != nil {
		cut = *bundle.Stacking.EnergyCut
	}
	policy := stacking.NewPolicy(bundle.Stacking.Policy, cut)
	coordinator := stacking.NewStackCoordinator(policy, bundle.Stacking.PartitionedUrgent)
	if err := coordinator.SetAdditionalWaitingTierCount(bundle.Stacking.AdditionalWaitingTiers); err != nil {
		return nil, err
	}
	for _, sb := range bundle.SubBatches {
		if err := coordinator.RegisterSubBatchType(sb.Type, sb.Capacity); err != nil {
			return nil, err
		}
	}
	for _, d := range bundle.Defaults {
		cls, err := d.ToClassification()
		if err != nil {
			return nil, err
		}
		if d.Status != "" {
			coordinator.SetDefaultClassificationByStatus(stacking.TrackStatus(d.Status), cls, stacking.Severity(d.Severity))
		} else {
			coordinator.SetDefaultClassificationByCategory(stacking.ParticleCategory(d.Particle), cls, stacking.Severity(d.Severity))
		}
	}

	prng := gun.NewPartitionedRNG(gun.NewRunKey(seed))
	factory := &gun.TrackFactory{}
	particleGun := gun.NewParticleGun(bundle.Gun, prng, factory)
	sampler := gun.NewSecondarySampler(prng, factory)

	pool := dispatch.NewPool(bundle.Dispatch.Workers, func(_ context.Context, batch *stacking.ReleasedBatch) error {
		dispatch.DestroyRecords(batch)
		return nil
	})

	metrics := stacking.NewMetrics()
	ctx := context.Background()

	for n := 0; n < nEvents; n++ {
		ev, primaries := particleGun.GenerateEvent(n)
		prev := coordinator.Counters()

		reinjected := coordinator.PrepareNewEvent(ev)
		logrus.Debugf("event %d: %d primaries, %d re-injected", n, len(primaries), reinjected)

		for _, tr := range primaries {
			if _, err := coordinator.PushOneTrack(tr, &gun.SimTrajectory{}); err != nil {
				return nil, err
			}
		}

		for rec := coordinator.PopNextTrack(); rec != nil; rec = coordinator.PopNextTrack() {
			parent := rec.Track.(*gun.SimTrack)
			for _, sec := range sampler.Secondaries(parent) {
				if _, err := coordinator.PushOneTrack(sec, nil); err != nil {
					return nil, err
				}
			}
			// Tracking done; the loop owns the popped record and retires it.
			rec.Track.Destroy()
			if rec.Trajectory != nil {
				rec.Trajectory.Destroy()
			}
		}

		coordinator.FlushSubBatches()
		released := ev.DrainSubBatches()
		if err := pool.Process(ctx, released); err != nil {
			return nil, err
		}

		metrics.RecordEvent(prev, coordinator.Counters(), coordinator.PeakUrgentDepth(), len(released))
	}
	return metrics, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for primary and secondary generation")
	runCmd.Flags().IntVar(&events, "events", 10, "Number of events to process")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&cfgPath, "config", "", "Path to YAML run config (sub-batches, overrides, gun tuning)")

	// Stacking configs
	runCmd.Flags().StringVar(&policyName, "policy", "urgent-all", "Stacking policy (urgent-all, energy-cut, neutron-postpone, staged-em)")
	runCmd.Flags().Float64Var(&energyCut, "energy-cut", 1.0, "Kill cutoff for the energy-cut policy")
	runCmd.Flags().IntVar(&additionalTiers, "waiting-tiers", 0, "Waiting tiers beyond tier 0 (0-10)")
	runCmd.Flags().BoolVar(&partitionedUrgent, "partitioned-urgent", false, "Use the category-partitioned urgent stack")

	// Particle gun configs
	runCmd.Flags().IntVar(&particlesPerEvent, "particles-per-event", 8, "Primaries generated per event")
	runCmd.Flags().Float64Var(&energyMean, "energy-mean", 100.0, "Average primary kinetic energy")
	runCmd.Flags().Float64Var(&energyStdDev, "energy-stdev", 30.0, "Stddev of primary kinetic energy")
	runCmd.Flags().Float64Var(&energyMin, "energy-min", 0.1, "Min primary kinetic energy")
	runCmd.Flags().Float64Var(&energyMax, "energy-max", 1000.0, "Max primary kinetic energy")

	// Dispatch configs
	runCmd.Flags().IntVar(&dispatchWorkers, "dispatch-workers", 2, "Workers consuming released sub-batches")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
