package main

import (
	"fmt"
	"os"

	"github.com/rotornet/rotorsim/simulator"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	outputFile   string
	verbose      bool
	hostsPerRack int
)

// rootCmd runs a simulation: load or default the config, load or generate
// the workload, run to the horizon, report and save results.
var rootCmd = &cobra.Command{
	Use:   "rotorsim",
	Short: "Packet-level simulator for RotorNet-style optical circuit fabrics",
	Long: `rotorsim replays or generates a datacenter workload over a rotor-scheduled ` +
		`optical circuit fabric and reports flow completion times, throughput, and drops.`,
	SilenceUsage: true,
	RunE:         runSimulation,
}

var convertCmd = &cobra.Command{
	Use:   "convert <opera2rotor|rotor2opera> <input_file> <output_file>",
	Short: "Convert between Opera-sim and RotorNet flow formats",
	Args:  cobra.ExactArgs(3),
	RunE:  runConvert,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "f", "", "Path to key/value configuration file (defaults used when absent)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "results.csv", "Path to results CSV")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose per-event logging")
	convertCmd.Flags().IntVar(&hostsPerRack, "hosts-per-rack", 32, "Hosts per rack for global host id mapping")
	rootCmd.AddCommand(convertCmd)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	config := simulator.DefaultConfig()
	if configFile != "" {
		var err error
		config, err = simulator.LoadConfig(configFile)
		if err != nil {
			return err
		}
	}
	if err := config.Validate(); err != nil {
		return err
	}

	fmt.Println("RotorNet Packet Simulator")
	fmt.Println("=========================")
	config.Print()

	sim, err := simulator.NewSimulator(config)
	if err != nil {
		return err
	}
	if verbose {
		sim.LogEvent = func(msg string) {
			fmt.Fprintf(os.Stderr, "[SIM] %s\n", msg)
		}
	}

	var flows []*simulator.Flow
	if config.FlowFile != "" {
		flows, err = simulator.LoadFlowsFromFile(config.FlowFile)
		if err != nil {
			return err
		}
	} else {
		fmt.Println("Generating workload...")
		wg := simulator.NewWorkloadGenerator(config)
		flows = wg.GenerateFlows()
		if config.SaveFlows {
			if err := simulator.SaveFlowsToFile(flows, config.FlowOutputFile); err != nil {
				return err
			}
		}
	}

	if config.TopologyOutputFile != "" {
		if err := sim.Topology().WriteSchedule(config.TopologyOutputFile); err != nil {
			return err
		}
		fmt.Printf("Schedule written to %s\n", config.TopologyOutputFile)
	}

	sim.AddFlows(flows)
	stats := sim.Run()

	stats.Print()
	if err := stats.SaveToFile(outputFile); err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", outputFile)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	mode, inputFile, output := args[0], args[1], args[2]

	var count int
	var err error
	switch mode {
	case "opera2rotor":
		count, err = simulator.ConvertOperaToRotor(inputFile, output, hostsPerRack)
	case "rotor2opera":
		count, err = simulator.ConvertRotorToOpera(inputFile, output, hostsPerRack)
	default:
		return fmt.Errorf("unknown mode: %s (must be 'opera2rotor' or 'rotor2opera')", mode)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Converted %d flows\n", count)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
