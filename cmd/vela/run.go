package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vela-lang/vela/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <module.vlbc|source.asm>",
	Short: "Execute a VLBC module",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func init() {
	runCmd.Flags().Bool("trace", false, "trace every executed instruction to stderr")
	runCmd.Flags().Int("max-steps", 0, "stop after this many instructions (0 = unbounded)")
	runCmd.Flags().String("cache", "", "build cache database path (for .asm inputs)")
}

func runExecution(cmd *cobra.Command, args []string) error {
	trace, _ := cmd.Flags().GetBool("trace")
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	cachePath, _ := cmd.Flags().GetString("cache")

	m, err := loadInput(args[0], cachePath)
	if err != nil {
		return err
	}

	ctx := vm.NewContext()
	ctx.SetOutput(cmd.OutOrStdout())
	if trace {
		ctx.SetTrace(cmd.ErrOrStderr())
	}
	registerHostNatives(ctx)

	if err := ctx.Attach(m); err != nil {
		return diag(args[0], err)
	}

	state, err := ctx.Run(maxSteps)
	if err != nil {
		return diag(fmt.Sprintf("%s:0x%04X", args[0], ctx.IP()), err)
	}
	if state == vm.StateRunning {
		log.Noticef("step budget of %d exhausted at 0x%04X", maxSteps, ctx.IP())
		// Distinguishable exit for schedulers driving run in slices.
		os.Exit(2)
	}
	log.Infof("halted after run (stack depth %d)", ctx.StackDepth())
	return nil
}
