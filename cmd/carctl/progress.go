package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"car-service/pkg/model"
	"car-service/pkg/progress"
	"car-service/pkg/tracker"
)

var (
	flagTechnician string
	flagViewer     string
)

var provisionCmd = &cobra.Command{
	Use:   "provision <appointment-id>",
	Short: "Create the task list for an appointment if it has none",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer.Close()

		p, err := svc.EnsureProgress(getContext(), args[0])
		if err != nil {
			return fmt.Errorf("failed to provision %s: %w", args[0], err)
		}
		printProgress(os.Stdout, p)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <appointment-id> <task-id> <pending|in-progress|completed>",
	Short: "Move a task to a new status",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := progress.ParseStatus(args[2])
		if err != nil {
			return err
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer.Close()

		res, err := svc.UpdateTaskStatus(getContext(), args[0], args[1], status, flagTechnician)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if !res.Applied {
			fmt.Printf("No task %s on appointment %s; nothing changed\n", args[1], args[0])
			return nil
		}
		printProgress(os.Stdout, res.Progress)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <appointment-id>",
	Short: "Show progress and the photos matched to each task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer.Close()

		viewer := flagViewer
		if viewer == "" {
			if appt, ok, err := svc.Store().GetAppointment(args[0]); err == nil && ok {
				viewer = appt.CustomerID
			}
		}
		view, err := svc.View(getContext(), args[0], viewer)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", args[0], err)
		}
		printView(os.Stdout, view)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&flagTechnician, "technician", "t", "", "technician doing the work")
	showCmd.Flags().StringVar(&flagViewer, "viewer", "", "customer whose photos are visible (default: appointment owner)")
}

func printProgress(w io.Writer, p model.ServiceProgress) {
	fmt.Fprintf(w, "Appointment %s  vehicle %s  %d%%\n", p.AppointmentID, p.VehicleID, p.Progress)
	fmt.Fprintf(w, "%-38s %-12s %-28s %-11s %s\n", "ID", "STATUS", "TITLE", "DATE", "TECHNICIAN")
	for _, t := range p.Tasks {
		fmt.Fprintf(w, "%-38s %-12s %-28s %-11s %s\n", t.ID, t.Status, truncate(t.Title, 28), dash(t.CompletedDate), dash(t.Technician))
	}
}

func printView(w io.Writer, v tracker.ProgressView) {
	fmt.Fprintf(w, "Appointment %s  vehicle %s  %d%%\n", v.AppointmentID, v.VehicleID, v.Progress)
	for _, t := range v.Tasks {
		fmt.Fprintf(w, "- [%s] %s\n", t.Status, t.Title)
		for _, m := range t.Matched {
			fmt.Fprintf(w, "    %s  %s (%s)\n", m.URL, m.Title, m.Reason)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
