package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/cli/internal/output"
	"github.com/grafana/changeset/objectstore"
)

var (
	patchFile string
	relDir    string
	baseDir   string
	notesRef  string
)

var logCmd = &cobra.Command{
	Use:   "log <rev>",
	Short: "List the commits of a revision or range, newest first",
	Long: `Log lists the non-merge commits reachable from <rev>. A range
"from..to" lists the commits of to that from does not contain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commits, err := csClient.ListCommits(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatCommits(commits)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <left> <right>",
	Short: "Show the commits only one side contains",
	Long: `Compare lists the commits of <left> missing from <right> with "+" and
those of <right> missing from <left> with "-". Commits carrying the same change
on both sides, as after a cherry-pick, are left out.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		diff, err := csClient.DiffCommits(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatCommitDiff(args[0], args[1], diff)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <rev>",
	Short: "Print the change of a commit as unified diffs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []changeset.ReadCommitOption
		if relDir != "" {
			opts = append(opts, changeset.RelativeTo(relDir, baseDir))
		}
		diffs, err := csClient.ReadCommit(cmd.Context(), args[0], opts...)
		if err != nil {
			return err
		}
		return formatter(cmd).FormatPatch(args[0], diffs)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <changeset>",
	Short: "Apply a patch to a changeset as one commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := readInput(cmd, patchFile)
		if err != nil {
			return err
		}
		id, err := csClient.ApplyDiffs(cmd.Context(), args[0], []string{string(patch)}, editOptions()...)
		return edited(cmd, "applied", args[0], id, err)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <parent>",
	Short: "Build a commit from a patch on top of a parent without moving any ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := readInput(cmd, patchFile)
		if err != nil {
			return err
		}
		id, err := csClient.CommitFromDiffs(cmd.Context(), args[0], []string{string(patch)}, editOptions()...)
		return edited(cmd, "committed", args[0], id, err)
	},
}

var mergeBaseCmd = &cobra.Command{
	Use:   "merge-base <a> <b>",
	Short: "Print the best common ancestor of two revisions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.FindCommonBase(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatEdit(output.EditResult{Action: "merge base", Commit: id})
	},
}

var parentCmd = &cobra.Command{
	Use:   "parent <rev>",
	Short: "Print the first parent of a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := csClient.ParentOf(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatEdit(output.EditResult{Action: "parent", Path: args[0], Commit: id})
	},
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Read and write commit annotations",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <rev> <text>",
	Short: "Append text to the annotation of a commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.Annotate(cmd.Context(), args[0], notesRef, args[1]); err != nil {
			return err
		}
		note, found, err := csClient.ReadAnnotation(cmd.Context(), args[0], notesRef)
		if err != nil {
			return err
		}
		return formatter(cmd).FormatNote(args[0], notesNamespace(), note, found)
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <rev>",
	Short: "Print the annotation of a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, found, err := csClient.ReadAnnotation(cmd.Context(), args[0], notesRef)
		if err != nil {
			return err
		}
		return formatter(cmd).FormatNote(args[0], notesNamespace(), note, found)
	},
}

var noteClearCmd = &cobra.Command{
	Use:   "clear <rev>",
	Short: "Remove the annotation of a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.ClearAnnotation(cmd.Context(), args[0], notesRef); err != nil {
			return err
		}
		return formatter(cmd).FormatNote(args[0], notesNamespace(), "", false)
	},
}

var ignoredCmd = &cobra.Command{
	Use:   "ignored <path>",
	Short: "Report whether the checkout ignores a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ignored, err := csClient.IsIgnored(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ignored {
			return fmt.Errorf("%s is not ignored", args[0])
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", args[0])
		return err
	},
}

var rootDirCmd = &cobra.Command{
	Use:   "root [dir]",
	Short: "Print the path from a directory to the top of the checkout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			dir = args[0]
		}
		root, err := csClient.RepoRoot(cmd.Context(), dir)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
		return err
	},
}

func notesNamespace() string {
	if notesRef == "" {
		return objectstore.DefaultNotesNamespace
	}
	return notesRef
}

func init() {
	for _, c := range []*cobra.Command{applyCmd, replayCmd} {
		c.Flags().StringVarP(&patchFile, "file", "f", "", "Read the patch from this file instead of stdin")
		c.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	}
	showCmd.Flags().StringVar(&relDir, "relative", "", "Render paths as seen from this directory")
	showCmd.Flags().StringVar(&baseDir, "base", ".", "Top of the checkout --relative is resolved against")
	noteCmd.PersistentFlags().StringVar(&notesRef, "ref", "", "Notes namespace under refs/notes/")

	noteCmd.AddCommand(noteAddCmd, noteShowCmd, noteClearCmd)
	rootCmd.AddCommand(logCmd, compareCmd, showCmd, applyCmd, replayCmd, mergeBaseCmd, parentCmd, noteCmd, ignoredCmd, rootDirCmd)
}
