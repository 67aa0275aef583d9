package lookup

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/nsqc/cmd/util"
	"github.com/spf13/cobra"
)

var (
	LookupCmd = &cobra.Command{
		Use:     "lookup [topic]",
		Short:   "Print the producers of a topic",
		Long:    `Run discovery once and print every producer of the topic as host:port, one per line.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// add flags
	util.SetupClientFlags(LookupCmd)
}

// processConfig binds the flags to viper
func processConfig(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

func run(cmd *cobra.Command, args []string) error {
	config := util.GetClientConfig(args[0], "")

	producers, err := util.Discover(context.Background(), config)
	if err != nil {
		return err
	}

	if len(producers) == 0 {
		util.Logger.Infof("No producers for topic %s", args[0])
		return nil
	}
	for _, producer := range producers {
		fmt.Fprintln(cmd.OutOrStdout(), producer)
	}
	return nil
}
