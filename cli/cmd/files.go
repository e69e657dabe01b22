package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/cli/internal/output"
	"github.com/grafana/changeset/protocol/hash"
)

var (
	message   string
	inputFile string
)

var catCmd = &cobra.Command{
	Use:   "cat <changeset> <path>",
	Short: "Print a file of a changeset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := csClient.ReadFile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatContent(args[1], content)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <changeset> <path>",
	Short: "Write a file from stdin or --file",
	Long: `Write replaces the content of a file, creating it and its parent
directories when missing. The content is read from --file, or from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readInput(cmd, inputFile)
		if err != nil {
			return err
		}
		id, err := csClient.WriteFile(cmd.Context(), args[0], args[1], content, editOptions()...)
		return edited(cmd, "wrote", args[1], id, err)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <changeset> <path>",
	Short: "Create an empty directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.Mkdir(cmd.Context(), args[0], args[1], editOptions()...)
		return edited(cmd, "created", args[1], id, err)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <changeset> <path>",
	Short: "Remove a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.Unlink(cmd.Context(), args[0], args[1], editOptions()...)
		return edited(cmd, "removed", args[1], id, err)
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <changeset> <src> <dst>",
	Short: "Copy a file or directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.Copy(cmd.Context(), args[0], args[1], args[2], editOptions()...)
		return edited(cmd, "copied", args[1]+" -> "+args[2], id, err)
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <changeset> <src> <dst>",
	Short: "Rename a file or directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.Rename(cmd.Context(), args[0], args[1], args[2], editOptions()...)
		return edited(cmd, "renamed", args[1]+" -> "+args[2], id, err)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <changeset> [path]",
	Short: "List a directory of a changeset",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		entries, err := csClient.ReadDir(cmd.Context(), args[0], path)
		if err != nil {
			return err
		}
		return formatter(cmd).FormatEntries(entries)
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <changeset> <path>",
	Short: "Show type, size and modification time of an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := csClient.Stat(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatStat(info)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <changeset> <other> <path>",
	Short: "Compare a file between two changesets",
	Long: `Diff prints the line changes turning the file in <changeset> into the
file in <other>. A side without the file counts as empty.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := readOrEmpty(cmd, args[0], args[2])
		if err != nil {
			return err
		}
		after, err := readOrEmpty(cmd, args[1], args[2])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatFileDiff(args[2], output.LineDiff(string(before), string(after)))
	},
}

func readOrEmpty(cmd *cobra.Command, name, path string) ([]byte, error) {
	content, err := csClient.ReadFile(cmd.Context(), name, path)
	if errors.Is(err, changeset.ErrPathNotFound) {
		return nil, nil
	}
	return content, err
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file != "" && file != "-" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return content, nil
	}
	content, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return content, nil
}

func editOptions() []changeset.EditOption {
	if message == "" {
		return nil
	}
	return []changeset.EditOption{changeset.Message(message)}
}

func edited(cmd *cobra.Command, action, path string, id hash.Hash, err error) error {
	if err != nil {
		return err
	}
	return formatter(cmd).FormatEdit(output.EditResult{Action: action, Path: path, Commit: id})
}

func init() {
	for _, c := range []*cobra.Command{writeCmd, mkdirCmd, rmCmd, cpCmd, mvCmd} {
		c.Flags().StringVarP(&message, "message", "m", "", "Commit message of the edit")
	}
	writeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read content from this file instead of stdin")

	rootCmd.AddCommand(catCmd, writeCmd, mkdirCmd, rmCmd, cpCmd, mvCmd, lsCmd, statCmd, diffCmd)
}
