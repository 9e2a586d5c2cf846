package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/store"
)

var deleteCmd = &cobra.Command{
	Use:   "delete candidate|job id",
	Short: "Delete a candidate or a job with its embeddings and match results",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runDelete(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) {
	kind, err := entity.ParseKind(args[0])
	if err != nil {
		cobra.CheckErr(err)
	}
	id := args[1]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := setup(ctx, true, false)
	defer d.close()

	if cmd.Flag("auto-aprove").Value.String() == "false" {
		confirm := promptui.Select{
			Label: fmt.Sprintf("Delete %s %s with its embeddings and match results?", kind, id),
			Items: []string{PromptNo, PromptYes},
		}
		_, answer, err := confirm.Run()
		if err != nil {
			d.logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			d.logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	switch kind {
	case entity.KindCandidate:
		err = d.store.DeleteCandidate(ctx, id)
	case entity.KindJob:
		err = d.store.DeleteJob(ctx, id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			d.logger.Warn("nothing to delete", zap.String("kind", string(kind)), zap.String("id", id))
			return
		}
		d.logger.Fatal("deleting", zap.Error(err))
	}
}
