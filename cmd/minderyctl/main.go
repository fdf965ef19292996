// Package main provides minderyctl, a command line companion for the Mindery
// API: it previews generated slots locally and books or checks slots
// remotely through the booking client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ariebrainware/mindery/booking"
	"github.com/ariebrainware/mindery/slot"
	"github.com/spf13/cobra"
)

const appName = "minderyctl"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type remoteFlags struct {
	api      string
	token    string
	timezone string
	timeout  time.Duration
}

func (f *remoteFlags) client() *booking.Client {
	return booking.NewClient(f.api, booking.WithToken(f.token))
}

func (f *remoteFlags) location() (*time.Location, error) {
	loc, err := time.LoadLocation(f.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", f.timezone, err)
	}
	return loc, nil
}

func (f *remoteFlags) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), f.timeout)
}

func rootCmd() *cobra.Command {
	remote := &remoteFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Mindery slot and booking tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&remote.api, "api", envOr("MINDERY_API", "http://localhost:8080"), "Mindery API base URL")
	cmd.PersistentFlags().StringVar(&remote.token, "token", os.Getenv("MINDERY_TOKEN"), "Bearer token")
	cmd.PersistentFlags().StringVar(&remote.timezone, "timezone", envOr("TIMEZONE", "Asia/Jakarta"), "Zone slot dates are read in")
	cmd.PersistentFlags().DurationVar(&remote.timeout, "timeout", 15*time.Second, "Request timeout")

	cmd.AddCommand(slotsCmd(remote), bookCmd(remote), statusCmd(remote))
	return cmd
}

func slotsCmd(remote *remoteFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Generate or look up slots",
	}

	var (
		start, end string
		duration   int
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print the slots of a working window",
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := slot.Generate(start, end, duration)
			if len(slots) == 0 {
				return fmt.Errorf("no %d minute slot fits between %s and %s", duration, start, end)
			}
			printSlots(cmd.OutOrStdout(), slots)
			return nil
		},
	}
	generate.Flags().StringVar(&start, "start", "09:00", "Window start (HH:MM)")
	generate.Flags().StringVar(&end, "end", "17:00", "Window end (HH:MM)")
	generate.Flags().IntVar(&duration, "duration", 15, "Slot length in minutes")

	var (
		doctorID uint
		date     string
	)
	available := &cobra.Command{
		Use:   "available",
		Short: "Bookable slots of a doctor on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := remote.context(cmd)
			defer cancel()
			slots, err := remote.client().Availability(ctx, doctorID, date)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no bookable slots on %s\n", date)
				return nil
			}
			printSlots(cmd.OutOrStdout(), slots)
			return nil
		},
	}
	available.Flags().UintVar(&doctorID, "doctor", 0, "Doctor ID")
	available.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD)")
	_ = available.MarkFlagRequired("doctor")
	_ = available.MarkFlagRequired("date")

	var days int
	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "Upcoming dates with bookable slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := remote.context(cmd)
			defer cancel()
			result, err := remote.client().AvailableDates(ctx, doctorID, days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result) == 0 {
				fmt.Fprintln(out, "no upcoming dates")
				return nil
			}
			for _, day := range result {
				fmt.Fprintf(out, "%s (%d)\n", day.Date, len(day.Slots))
				for _, s := range day.Slots {
					fmt.Fprintf(out, "  %s-%s\n", s.StartTime, s.EndTime)
				}
			}
			return nil
		},
	}
	upcoming.Flags().UintVar(&doctorID, "doctor", 0, "Doctor ID")
	upcoming.Flags().IntVar(&days, "days", 14, "Days to look ahead")
	_ = upcoming.MarkFlagRequired("doctor")

	cmd.AddCommand(generate, available, upcoming)
	return cmd
}

func bookCmd(remote *remoteFlags) *cobra.Command {
	var (
		sel       booking.Selection
		slotValue string
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a slot with a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			picked, err := booking.ParseSlotValue(slotValue)
			if err != nil {
				return err
			}
			sel.Slot = picked
			loc, err := remote.location()
			if err != nil {
				return err
			}
			req, err := booking.NewRequest(sel, loc)
			if err != nil {
				return err
			}
			ctx, cancel := remote.context(cmd)
			defer cancel()
			appt, err := remote.client().Book(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booked appointment %d (%s) on %s %s, status %s\n",
				appt.ID, appt.Reference, sel.Date, picked.StartTime, appt.Status)
			return nil
		},
	}
	cmd.Flags().UintVar(&sel.DoctorID, "doctor", 0, "Doctor ID")
	cmd.Flags().StringVar(&sel.Date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&slotValue, "slot", "", "Slot as HH:MM|HH:MM")
	cmd.Flags().StringVar(&sel.Mode, "mode", booking.ModeOnline, "online or offline")
	cmd.Flags().StringVar(&sel.Notes, "notes", "", "Notes for the counsellor")
	return cmd
}

func statusCmd(remote *remoteFlags) *cobra.Command {
	var (
		id     uint
		status string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Approve, reject or complete an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := remote.context(cmd)
			defer cancel()
			appt, err := remote.client().UpdateStatus(ctx, id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appointment %d is now %s\n", appt.ID, appt.Status)
			return nil
		},
	}
	cmd.Flags().UintVar(&id, "id", 0, "Appointment ID")
	cmd.Flags().StringVar(&status, "status", "", "approved, rejected or completed")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func printSlots(w io.Writer, slots []slot.Slot) {
	for _, s := range slots {
		fmt.Fprintf(w, "%s-%s\n", s.StartTime, s.EndTime)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
