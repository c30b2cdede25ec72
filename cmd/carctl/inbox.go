package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"car-service/pkg/model"
)

var (
	flagImagesCustomer string
	flagLimit          int
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List shared images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer.Close()

		list, err := svc.VisibleImages(getContext(), flagImagesCustomer)
		if err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No shared images")
			return nil
		}
		printImages(os.Stdout, list)
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications <customer-id>",
	Short: "List a customer's notifications, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer.Close()

		list, err := svc.Notifications(getContext(), args[0], flagLimit)
		if err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}
		if len(list) == 0 {
			fmt.Printf("No notifications for %s\n", args[0])
			return nil
		}
		printNotifications(os.Stdout, list)
		return nil
	},
}

func init() {
	imagesCmd.Flags().StringVar(&flagImagesCustomer, "customer", "", "only images visible to this customer")
	notificationsCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "maximum notifications to show (0 for all)")
}

func printImages(w io.Writer, list []model.SharedImage) {
	fmt.Fprintf(w, "%-12s %-12s %-30s %-14s %s\n", "SCOPE", "CATEGORY", "TITLE", "UPLOADED", "URL")
	for _, img := range list {
		fmt.Fprintf(w, "%-12s %-12s %-30s %-14s %s\n", img.CustomerID, img.Category, truncate(img.Title, 30), humanize.Time(img.UploadedAt), img.URL)
	}
}

func printNotifications(w io.Writer, list []model.Notification) {
	for _, n := range list {
		mark := "*"
		if n.Read {
			mark = " "
		}
		fmt.Fprintf(w, "%s %-14s %-16s %s\n", mark, humanize.Time(n.Date), n.Details.Type, n.Message)
	}
}
