package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Format the volume, destroying every file on it",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if err := client.Format(); err != nil {
			return err
		}
		return client.Unmount()
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the files on the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if err := client.Mount(); err != nil {
			return err
		}

		for _, info := range client.List() {
			fmt.Printf("%8d  %s\n", info.Length, info.Name)
		}
		return client.Unmount()
	},
}

var putCmd = &cobra.Command{
	Use:   "put <local-file> <name>",
	Short: "Copy a local file onto the volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "reading local file")
		}

		client := newClient()
		if err := client.Mount(); err != nil {
			return err
		}

		fh, err := client.Open(args[1])
		if err != nil {
			return err
		}
		if _, err := client.Write(fh, data); err != nil {
			return err
		}
		if err := client.Close(fh); err != nil {
			return err
		}
		return client.Unmount()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <name> [local-file]",
	Short: "Copy a file off the volume, to stdout by default",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if err := client.Mount(); err != nil {
			return err
		}

		fh, err := client.Open(args[0])
		if err != nil {
			return err
		}
		info, err := client.Stat(fh)
		if err != nil {
			return err
		}
		data, err := client.Read(fh, int(info.Length))
		if err != nil {
			return err
		}
		if err := client.Close(fh); err != nil {
			return err
		}
		if err := client.Unmount(); err != nil {
			return err
		}

		if len(args) == 2 {
			return errors.Wrap(os.WriteFile(args[1], data, 0644), "writing local file")
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
}
