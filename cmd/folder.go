package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nathonfowlie/zfr/zephyr"
)

func newFolderCmd(a *app) *cobra.Command {
	folderCmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage Zephyr Scale folders",
		Long: `Create and rename the folders used to group test plans, test cycles and
test cases. Zephyr Scale does not allow folders to be read or deleted
through its API.`,
	}

	folderCmd.AddCommand(newFolderCreateCmd(a))
	folderCmd.AddCommand(newFolderUpdateCmd(a))
	return folderCmd
}

func newFolderCreateCmd(a *app) *cobra.Command {
	var project, name, folderType string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new folder",
		Example: `  zfr folder create --project ABC --name Regression --type plan
  zfr folder create --project ABC --name "Sprint 12" --type cycle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := zephyr.ParseFolderType(folderType)
			if err != nil {
				return err
			}

			folder, err := a.folders.Create(cmd.Context(), zephyr.FolderCreate{
				ProjectKey: project,
				Name:       name,
				Type:       ft,
			})
			if err != nil {
				return err
			}
			return a.printer.Print(folder)
		},
	}

	createCmd.Flags().StringVar(&project, "project", "", "key of the project the folder is created in")
	createCmd.Flags().StringVar(&name, "name", "", "name of the folder")
	createCmd.Flags().StringVar(&folderType, "type", "plan", "type of folder to create (plan, cycle or case)")
	_ = createCmd.MarkFlagRequired("project")
	_ = createCmd.MarkFlagRequired("name")

	return createCmd
}

func newFolderUpdateCmd(a *app) *cobra.Command {
	var (
		id   int64
		name string
	)

	updateCmd := &cobra.Command{
		Use:     "update",
		Short:   "Rename an existing folder",
		Example: `  zfr folder update --id 42 --name "Regression (legacy)"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := a.folders.Update(cmd.Context(), zephyr.Folder{
				ID:   id,
				Name: name,
			})
			if err != nil {
				return err
			}
			return a.printer.Print(folder)
		},
	}

	updateCmd.Flags().Int64Var(&id, "id", 0, "id of the folder to update")
	updateCmd.Flags().StringVar(&name, "name", "", "new name of the folder")
	_ = updateCmd.MarkFlagRequired("id")
	_ = updateCmd.MarkFlagRequired("name")

	return updateCmd
}
