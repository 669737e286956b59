package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lwfm/internal/idgen"
	"lwfm/pkg/lwfm"
)

func newCheckCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Confirm the store opens and is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.manager(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("lwfm store is up")
			return nil
		},
	}
}

func newGenerateIDCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-id",
		Short: "Print a freshly generated unique id",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(idgen.New())
			return nil
		},
	}
}

func newClearEventsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-events",
		Short: "Unset every outstanding trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			events, err := mgr.GetActiveWfEvents(cmd.Context())
			if err != nil {
				return err
			}
			for _, evt := range events {
				if err := mgr.UnsetEvent(cmd.Context(), evt.EventID); err != nil {
					return err
				}
			}
			fmt.Printf("cleared %d events\n", len(events))
			return nil
		},
	}
}

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Get the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			status, err := mgr.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if status == nil {
				fmt.Printf("no status found for job %s\n", args[0])
				return nil
			}
			fmt.Printf("status for job %s: %s\n", args[0], status.Status)
			return nil
		},
	}
}

func newWorkflowsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List every known workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			wfs, err := mgr.GetAllWorkflows(cmd.Context())
			if err != nil {
				return err
			}
			if len(wfs) == 0 {
				fmt.Println("no workflows found")
				return nil
			}
			for _, wf := range wfs {
				fmt.Printf("%s\t%s\n", wf.WorkflowID, wf.Name)
			}
			return nil
		},
	}
}

func newWorkflowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow WORKFLOW_ID",
		Short: "Show a workflow and the aggregated status of every job in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			wf, err := mgr.GetWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if wf == nil {
				fmt.Printf("no workflow found with id %s\n", args[0])
				return nil
			}
			fmt.Printf("workflow %s: %s\n", wf.WorkflowID, wf.Name)

			jobs, err := mgr.GetJobStatusesForWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Printf("no job statuses found for workflow %s\n", args[0])
				return nil
			}
			for _, st := range jobs {
				fmt.Printf("  %s\t%s\n", st.JobID(), st.Status)
			}
			return nil
		},
	}
}

func newLogsByWorkflowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logs-by-workflow WORKFLOW_ID",
		Short: "Print every log line recorded under a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogs(a, cmd, func() ([]string, error) {
				mgr, err := a.manager(cmd.Context())
				if err != nil {
					return nil, err
				}
				return mgr.GetLogsByWorkflow(cmd.Context(), args[0])
			}, fmt.Sprintf("workflow %s", args[0]))
		},
	}
}

func newLogsByJobCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logs-by-job JOB_ID",
		Short: "Print every log line recorded under a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogs(a, cmd, func() ([]string, error) {
				mgr, err := a.manager(cmd.Context())
				if err != nil {
					return nil, err
				}
				return mgr.GetLogsByJob(cmd.Context(), args[0])
			}, fmt.Sprintf("job %s", args[0]))
		},
	}
}

func newAllLogsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "all-logs",
		Short: "Print every log line the store holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogs(a, cmd, func() ([]string, error) {
				mgr, err := a.manager(cmd.Context())
				if err != nil {
					return nil, err
				}
				return mgr.GetAllLogs(cmd.Context())
			}, "store")
		},
	}
}

func printLogs(a *App, cmd *cobra.Command, fetch func() ([]string, error), label string) error {
	lines, err := fetch()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Printf("no logs found for %s\n", label)
		return nil
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func newActiveEventsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "active-events",
		Short: "List every still-registered trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			events, err := mgr.GetActiveWfEvents(cmd.Context())
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no active events")
				return nil
			}
			for _, evt := range events {
				fmt.Printf("%s\t%s\tfires %s\n", evt.EventID, evt.Type, evt.FireJobID)
			}
			return nil
		},
	}
}

func newMetasheetsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metasheets WORKFLOW_ID",
		Short: "List every metasheet notated under a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			sheets, err := mgr.Find(cmd.Context(), map[string]string{lwfm.PropWorkflowID: args[0]})
			if err != nil {
				return err
			}
			if len(sheets) == 0 {
				fmt.Printf("no metasheets found for workflow %s\n", args[0])
				return nil
			}
			for _, ms := range sheets {
				fmt.Printf("%s\t%s\n", ms.SheetID, ms.SiteURL)
			}
			return nil
		},
	}
}
