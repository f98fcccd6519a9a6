package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nathonfowlie/zfr/zephyr"
)

func newPlanCmd(a *app) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage Zephyr Scale test plans",
	}

	planCmd.AddCommand(newPlanCreateCmd(a))
	planCmd.AddCommand(newPlanGetCmd(a))
	planCmd.AddCommand(newPlanUpdateCmd(a))
	planCmd.AddCommand(newPlanDeleteCmd(a))
	planCmd.AddCommand(newPlanAttachmentsCmd(a))
	return planCmd
}

// planFlags are the optional plan fields shared by create and update.
type planFlags struct {
	name        string
	objective   string
	folder      string
	labels      string
	issues      string
	cycles      string
	fields      string
	owner       string
	status      string
	attachments string
}

func (p *planFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.name, "name", "", "name of the test plan")
	fs.StringVar(&p.objective, "objective", "", "objective of the test plan")
	fs.StringVar(&p.folder, "folder", "", "folder the plan is stored in, created when it does not exist")
	fs.StringVar(&p.labels, "labels", "", "comma separated list of labels")
	fs.StringVar(&p.issues, "issues", "", "comma separated list of Jira issues to link")
	fs.StringVar(&p.cycles, "cycles", "", "comma separated list of test cycle keys to associate")
	fs.StringVar(&p.fields, "fields", "", `custom fields as a JSON object, e.g. '{"Release": "R1"}'`)
	fs.StringVar(&p.owner, "owner", "", "username of the person responsible for the plan")
	fs.StringVar(&p.status, "status", "", "plan status (Draft, Approved or Deprecated)")
	fs.StringVar(&p.attachments, "attachments", "", "comma separated list of files to attach")
}

// parsed holds the values that need more than a plain copy.
type parsed struct {
	status       zephyr.PlanStatus
	customFields map[string]any
}

func (p *planFlags) parse() (parsed, error) {
	status, err := zephyr.ParsePlanStatus(p.status)
	if err != nil {
		return parsed{}, err
	}
	customFields, err := parseCustomFields(p.fields)
	if err != nil {
		return parsed{}, err
	}
	return parsed{status: status, customFields: customFields}, nil
}

func newPlanCreateCmd(a *app) *cobra.Command {
	var (
		project string
		flags   planFlags
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new test plan",
		Long: `Create a new test plan and print it as stored by Zephyr Scale.

If --folder names a folder that does not exist yet, it is created and the
plan is created again.`,
		Example: `  zfr plan create --project ABC --name "Release 1.4" --folder Releases \
    --labels regression,nightly --cycles ABC-C12 --attachments report.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := flags.parse()
			if err != nil {
				return err
			}

			plan, err := a.plans.Create(cmd.Context(), zephyr.PlanCreate{
				ProjectKey:   project,
				Name:         flags.name,
				Objective:    flags.objective,
				Owner:        flags.owner,
				Status:       values.status,
				Folder:       flags.folder,
				Labels:       uniqueList(flags.labels),
				IssueLinks:   splitList(flags.issues),
				CustomFields: values.customFields,
				TestRunKeys:  splitList(flags.cycles),
				Attachments:  splitList(flags.attachments),
			})
			if err != nil {
				return err
			}
			return a.printer.Print(plan)
		},
	}

	createCmd.Flags().StringVar(&project, "project", "", "key of the project the plan is created in")
	flags.register(createCmd.Flags())
	_ = createCmd.MarkFlagRequired("project")

	return createCmd
}

func newPlanGetCmd(a *app) *cobra.Command {
	var key, fields string

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get an existing test plan",
		Long: `Print an existing test plan, or an empty line when it does not exist.

Attachments are read with a second request. Limit the fields with --fields
and leave out "attachments" to skip it.`,
		Example: `  zfr plan get --key ABC-P12
  zfr plan get --key ABC-P12 --fields key,name,status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.plans.Get(cmd.Context(), key, splitList(fields)...)
			if err != nil {
				return err
			}
			return a.printer.Print(plan)
		},
	}

	getCmd.Flags().StringVar(&key, "key", "", "test plan key (e.g. ABC-P12)")
	getCmd.Flags().StringVar(&fields, "fields", "", "comma separated list of fields to return")
	_ = getCmd.MarkFlagRequired("key")

	return getCmd
}

func newPlanUpdateCmd(a *app) *cobra.Command {
	var (
		key   string
		flags planFlags
	)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update an existing test plan",
		Long: `Update the given fields of an existing test plan. Fields that are not set
keep their current value.`,
		Example: `  zfr plan update --key ABC-P12 --status Approved
  zfr plan update --key ABC-P12 --folder "Releases/1.4" --attachments notes.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := flags.parse()
			if err != nil {
				return err
			}

			plan, err := a.plans.Update(cmd.Context(), zephyr.PlanUpdate{
				Key:          key,
				Name:         flags.name,
				Objective:    flags.objective,
				Owner:        flags.owner,
				Status:       values.status,
				Folder:       flags.folder,
				Labels:       uniqueList(flags.labels),
				IssueLinks:   splitList(flags.issues),
				CustomFields: values.customFields,
				TestRuns:     splitList(flags.cycles),
				Attachments:  splitList(flags.attachments),
			})
			if err != nil {
				return err
			}
			return a.printer.Print(plan)
		},
	}

	updateCmd.Flags().StringVar(&key, "key", "", "test plan key (e.g. ABC-P12)")
	flags.register(updateCmd.Flags())
	_ = updateCmd.MarkFlagRequired("key")

	return updateCmd
}

func newPlanDeleteCmd(a *app) *cobra.Command {
	var key string

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a test plan",
		Long:  `Delete a test plan and print its last known state. Nothing is printed when the plan does not exist.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.plans.Delete(cmd.Context(), key)
			if err != nil {
				return err
			}
			return a.printer.Print(plan)
		},
	}

	deleteCmd.Flags().StringVar(&key, "key", "", "test plan key (e.g. ABC-P12)")
	_ = deleteCmd.MarkFlagRequired("key")

	return deleteCmd
}

func newPlanAttachmentsCmd(a *app) *cobra.Command {
	var key string

	attachmentsCmd := &cobra.Command{
		Use:   "attachments",
		Short: "List the files attached to a test plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attachments, found, err := a.plans.GetAttachments(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !found {
				return a.printer.Print(nil)
			}
			return a.printer.Print(attachments)
		},
	}

	attachmentsCmd.Flags().StringVar(&key, "key", "", "test plan key (e.g. ABC-P12)")
	_ = attachmentsCmd.MarkFlagRequired("key")

	return attachmentsCmd
}
