package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/cli/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List changesets with their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := csClient.ListChangesets(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([]output.ChangesetStatus, 0, len(names))
		for _, name := range names {
			row, err := status(cmd, name)
			if errors.Is(err, changeset.ErrInvalidChangesetName) {
				continue
			}
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return formatter(cmd).FormatChangesets(rows)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <changeset>",
	Short: "Show whether a changeset has a pending commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := status(cmd, args[0])
		if err != nil {
			return err
		}
		return formatter(cmd).FormatChangesets([]output.ChangesetStatus{row})
	},
}

func status(cmd *cobra.Command, name string) (output.ChangesetStatus, error) {
	state, err := csClient.State(cmd.Context(), name)
	if err != nil {
		return output.ChangesetStatus{}, err
	}
	row := output.ChangesetStatus{Name: name, State: state}
	if state == changeset.Dirty {
		if row.Pending, err = csClient.PendingCommit(cmd.Context(), name); err != nil {
			return output.ChangesetStatus{}, err
		}
	}
	return row, nil
}

var ensureCmd = &cobra.Command{
	Use:   "ensure <changeset>",
	Short: "Create a changeset from the checkout or HEAD unless it exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.Ensure(cmd.Context(), args[0]); err != nil {
			return err
		}
		return changesetDone(cmd, "ensured", args[0])
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <changeset>",
	Short: "Move the pending commit onto the changeset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.Promote(cmd.Context(), args[0]); err != nil {
			return err
		}
		return changesetDone(cmd, "promoted", args[0])
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard <changeset>",
	Short: "Drop the pending commit of a changeset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.Discard(cmd.Context(), args[0]); err != nil {
			return err
		}
		return changesetDone(cmd, "discarded", args[0])
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <changeset>",
	Short: "Delete a changeset and its pending commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := csClient.RemoveChangeset(cmd.Context(), args[0]); err != nil {
			return err
		}
		return formatter(cmd).FormatEdit(output.EditResult{Action: "removed", Path: args[0]})
	},
}

var containingCmd = &cobra.Command{
	Use:   "containing <rev>",
	Short: "List the changesets whose history contains a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := csClient.ChangesetsContaining(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rows := make([]output.ChangesetStatus, 0, len(names))
		for _, name := range names {
			row, err := status(cmd, name)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return formatter(cmd).FormatChangesets(rows)
	},
}

// changesetDone reports the commit the changeset points at after a lifecycle command.
func changesetDone(cmd *cobra.Command, action, name string) error {
	commits, err := csClient.ListCommits(cmd.Context(), name)
	if err != nil {
		return err
	}
	result := output.EditResult{Action: action, Path: name}
	if len(commits) > 0 {
		result.Commit = commits[0].Hash
	}
	return formatter(cmd).FormatEdit(result)
}

func init() {
	rootCmd.AddCommand(listCmd, statusCmd, ensureCmd, promoteCmd, discardCmd, removeCmd, containingCmd)
}
