package cmd

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// startupParams carries the CLI configuration plus the loggers every
// command writes through.
type startupParams struct {
	verbose     bool
	samplerName string
	randomSeed  int64
	stepSize    float64
	dims        int
	monitorAddr string

	// run command
	steps      int64
	burnIn     int64
	thinning   int64
	chainCount int

	// smc command
	population     int
	generations    int
	innerSteps     int64
	resampleThresh float64

	out   *log.Logger
	trace *log.Logger
}

func (sp *startupParams) setupLoggers() {
	sp.out = log.New(os.Stdout, "", 0)
	if sp.verbose {
		sp.trace = log.New(os.Stdout, "TRACE ", 0)
	} else {
		sp.trace = log.New(ioutil.Discard, "", 0)
	}
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chamber",
	Short: "MCMC chain sampling engine",
	Long: `chamber drives Markov chain Monte Carlo samplers against a Bayesian
model target. Among other features:

  - Capability-checked model/sampler binding (gradient, tensor, tensor derivative)
  - Resumable chains with burn-in and thinning schedules
  - Independent parallel chain populations
  - Sequential Monte Carlo over tempered bridge models with importance weights
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chamber\n")
		fmt.Printf("Verbose:  %v\n", sp.verbose)
		fmt.Printf("Sampler:  %s\n", sp.samplerName)
		fmt.Printf("Rnd Seed: %d\n", sp.randomSeed)
		fmt.Printf("\nUse a subcommand (run, smc) to do actual work\n")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().StringVarP(&sp.samplerName, "sampler", "s", "random-walk", "Sampler to use: random-walk, langevin, or manifold-langevin")
	rootCmd.PersistentFlags().Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")
	rootCmd.PersistentFlags().Float64Var(&sp.stepSize, "step", 0.5, "Step size for gradient-based samplers")
	rootCmd.PersistentFlags().IntVarP(&sp.dims, "dims", "d", 2, "Dimension of the demo Gaussian target")
	rootCmd.PersistentFlags().StringVar(&sp.monitorAddr, "monitor", "", "Listen address for the expvar progress monitor (empty disables)")

	runCmd.Flags().Int64VarP(&sp.steps, "steps", "n", 5000, "Total step budget per chain")
	runCmd.Flags().Int64VarP(&sp.burnIn, "burnin", "b", 500, "Burn-in steps discarded from output")
	runCmd.Flags().Int64VarP(&sp.thinning, "thinning", "t", 1, "Keep every t-th step after burn-in")
	runCmd.Flags().IntVarP(&sp.chainCount, "chains", "c", 4, "Independent chains to run")

	smcCmd.Flags().IntVarP(&sp.population, "population", "p", 64, "Particle population size")
	smcCmd.Flags().IntVarP(&sp.generations, "generations", "g", 10, "Number of bridge generations")
	smcCmd.Flags().Int64VarP(&sp.innerSteps, "inner", "i", 20, "Sampler steps per particle per generation")
	smcCmd.Flags().Float64Var(&sp.resampleThresh, "resample", 0.0, "ESS fraction that triggers resampling (0 disables)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(smcCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
