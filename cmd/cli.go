// SPDX-License-Identifier: MIT
package cmd

import (
	"visaudio/internal/config"
	"visaudio/pkg/build"

	"github.com/spf13/cobra"
)

// Command names for one-off invocations that do not start the service.
const (
	CommandList = "list"
)

// Options is the result of parsing the command line.
type Options struct {
	ConfigPath  string
	DeviceID    int
	DeviceSet   bool // --device given explicitly
	Verbose     bool
	Command     string
	Interactive bool
	Serve       bool
}

// NewRootCommand builds the command tree, writing parsed values into opts.
func NewRootCommand(opts *Options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Stream real-time audio features to visualizers",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Serve = true
			opts.DeviceSet = cmd.Flags().Changed("device")
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandList
			opts.Serve = false
			opts.DeviceSet = cmd.Flags().Changed("device")
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Browse devices in an interactive terminal UI")
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "f", "",
		"Path to the YAML configuration. Defaults to ./config.yaml when present")
	rootCmd.PersistentFlags().IntVarP(&opts.DeviceID, "device", "d", config.DefaultDeviceID,
		"Override DEVICE_ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	return rootCmd
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	rootCmd := NewRootCommand(options)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}
