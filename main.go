package main

import (
	"os"

	"cavepack/elfimage"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		NewLogger(LevelError).Fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	root := &cobra.Command{
		Use:   "cavepack <input_elf>",
		Short: "XOR-encode a section of a 32-bit x86 ELF and hide its decoder in a code cave",
		Long: "cavepack encodes one section of an i386 ELF executable, places a small decoder\n" +
			"stub in the first run of zero bytes large enough to hold it, and points the\n" +
			"entry point at the stub. The original file is left untouched.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			level := LevelInfo
			if o.debug {
				level = LevelDebug
			}
			return processELF(args[0], outputPath(args[0], o.output), cfg, NewLogger(level))
		},
	}
	bindPackFlags(root.Flags(), &o)
	root.AddCommand(newSectionsCmd())
	return root
}

func newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections <elf>",
		Short: "List the section headers the packer sees, in table order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read file")
			}
			img, err := elfimage.Parse(raw)
			if err != nil {
				return errors.Wrap(err, "parse")
			}
			dumpSections(cmd.OutOrStdout(), img)
			return nil
		},
	}
}
