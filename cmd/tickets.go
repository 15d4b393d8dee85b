package cmd

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/psds-microservice/support-bot/internal/application"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/service"
	"github.com/psds-microservice/support-bot/internal/store"
	"github.com/spf13/cobra"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Show tickets and message history from the store",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tickets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			tickets, err := service.NewTicketService(st, nil).List(ctx)
			if err != nil {
				return err
			}
			users := sortedByTicket(tickets)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKET\tUSER ID\tSTATUS\tCREATED")
			for _, uid := range users {
				t := tickets[uid]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Ticket, uid, t.Status, t.Created)
			}
			return w.Flush()
		})
	},
}

var ticketsHistoryCmd = &cobra.Command{
	Use:   "history TICKET",
	Short: "Print the message history of a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !store.ValidKey(args[0]) {
			return fmt.Errorf("invalid ticket %q", args[0])
		}
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			entries, err := service.NewMessageLog(st, nil).History(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "%s: no messages\n", args[0])
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "[%s] %-5s %s\n", e.Time, e.Sender, e.Text)
			}
			return nil
		})
	},
}

// sortedByTicket упорядочивает пользователей по номеру тикета (TKT-9999 раньше TKT-10000).
// Номера не в формате TKT-N идут в конце, по строке.
func sortedByTicket(tickets map[string]model.Ticket) []string {
	users := make([]string, 0, len(tickets))
	for uid := range tickets {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := tickets[users[i]].Ticket, tickets[users[j]].Ticket
		na, okA := model.TicketNumber(a)
		nb, okB := model.TicketNumber(b)
		switch {
		case okA && okB && na != nb:
			return na < nb
		case okA != okB:
			return okA
		case a != b:
			return a < b
		default:
			return users[i] < users[j]
		}
	})
	return users
}

func init() {
	ticketsCmd.AddCommand(ticketsListCmd, ticketsHistoryCmd)
}

func withStore(parent context.Context, fn func(ctx context.Context, st store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, time.Minute)
	defer cancel()
	st, err := application.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()
	return fn(ctx, st)
}
