package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/swaadanna/storefront/internal/admin"
	"github.com/swaadanna/storefront/internal/domain"
)

func (a *app) console() *admin.Console {
	return admin.NewConsole(a.api, a.store, admin.Credentials{
		Username:     a.cfg.AdminUsername,
		PasswordHash: a.cfg.AdminPasswordHash,
	}, admin.WithLogger(a.log))
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	c := a.console()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		fs := newFlags("admin login")
		password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
		if err := fs.Parse(rest); err != nil || fs.NArg() != 1 {
			return errUsage
		}
		if err := c.Login(ctx, fs.Arg(0), *password); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged in")
		return nil
	case "logout":
		return c.Logout(ctx)
	case "history":
		if len(rest) != 1 {
			return errUsage
		}
		return a.history(ctx, c, rest[0])
	}

	if err := c.Load(ctx); err != nil {
		return err
	}

	switch cmd {
	case "list":
		fs := newFlags("admin list")
		var f admin.Filter
		fs.StringVar(&f.Status, "status", admin.StatusAll, "Pending, Accept, Reject, Delivered or All")
		fs.StringVar(&f.Date, "date", "", "order date YYYY-MM-DD (UTC)")
		fs.StringVar(&f.Query, "query", "", "order id contains")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if err := c.SetFilter(f); err != nil {
			return err
		}
		return a.listOrders(c.Orders())

	case "set":
		if len(rest) != 2 {
			return errUsage
		}
		if err := c.StageStatus(rest[0], domain.OrderStatus(rest[1])); err != nil {
			return err
		}
		if err := c.SaveStatus(ctx, rest[0]); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		fmt.Fprintf(a.out, "%s is now %s\n", rest[0], rest[1])
		return nil

	case "bulk":
		if len(rest) < 2 {
			return errUsage
		}
		for _, id := range rest[1:] {
			c.ToggleSelect(id)
		}
		n, err := c.BulkUpdate(ctx, domain.OrderStatus(rest[0]))
		if err != nil {
			return fmt.Errorf("bulk update failed: %w", err)
		}
		fmt.Fprintf(a.out, "Successfully updated %d orders to %s\n", n, rest[0])
		return nil

	case "show":
		if len(rest) != 1 {
			return errUsage
		}
		inv, err := c.Detail(rest[0])
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, admin.FormatInvoice(inv))
		return nil
	}
	return fmt.Errorf("%w: unknown admin command %q", errUsage, cmd)
}

func (a *app) listOrders(orders []domain.Order) error {
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "No orders found")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tCUSTOMER\tPHONE\tTOTAL\tITEMS\tSTATUS\tEMAIL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t₹%d\t%d\t%s\t%t\n",
			o.OrderID, o.Timestamp.UTC().Format("02 Jan 2006 15:04"), o.CustomerName, o.Phone,
			o.TotalAmount, len(o.Products), o.Status, o.EmailSent)
	}
	return tw.Flush()
}

func (a *app) history(ctx context.Context, c *admin.Console, orderID string) error {
	changes, err := c.History(ctx, orderID)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(a.out, "No status changes")
		return nil
	}
	for _, ch := range changes {
		fmt.Fprintf(a.out, "%s  %s -> %s  (%s)\n", ch.At.UTC().Format("2006-01-02 15:04:05"), ch.From, ch.To, ch.Source)
	}
	return nil
}
