package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/swaadanna/storefront/internal/checkout"
	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/poller"
)

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := newFlags("products")
	category := fs.String("category", "All", "Pickle, Honey or All")
	sort := fs.String("sort", "featured", "featured, price_asc, price_desc or newest")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	products, err := a.api.ListProducts(ctx, *category, *sort)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tWEIGHT\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t₹%d\n", p.ID, p.Name, p.Weight, p.Category, p.Price)
	}
	return tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad product id %q", errUsage, s)
	}
	return id, nil
}

func (a *app) cartCommand(ctx context.Context, cmd string, args []string) error {
	c := a.cart(ctx)

	switch cmd {
	case "add":
		if len(args) != 1 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		p, err := a.api.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		return c.Add(ctx, *p)

	case "remove":
		if len(args) != 1 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return c.Remove(ctx, id)

	case "qty":
		if len(args) != 2 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: bad quantity %q", errUsage, args[1])
		}
		return c.UpdateQuantity(ctx, id, n)

	case "clear":
		return c.Clear(ctx)
	}

	if c.IsEmpty() {
		fmt.Fprintln(a.out, "Your cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tLINE")
	for _, it := range c.Items() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t₹%d\t₹%d\n", it.ID, it.Name, it.Quantity, it.Price, it.ToOrderItem().LineTotal())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	flow := checkout.NewFlow(c, a.api)
	q := flow.Quote()
	fmt.Fprintf(a.out, "\n%d items  subtotal ₹%d  shipping ₹%d  GST ₹%d  total ₹%d\n",
		c.Count(), q.Subtotal, q.Shipping, q.Tax, q.Total)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := newFlags("checkout")
	var form checkout.Form
	fs.StringVar(&form.Name, "name", "", "full name")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Phone, "phone", "", "phone number")
	fs.StringVar(&form.Address, "address", "", "street address")
	fs.StringVar(&form.City, "city", "", "city")
	fs.StringVar(&form.Pincode, "pincode", "", "pincode")
	track := fs.Bool("track", true, "follow the confirmation email after ordering")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	flow := checkout.NewFlow(a.cart(ctx), a.api,
		checkout.WithClearDelay(a.cfg.CartClearDelay),
		checkout.WithLogger(a.log),
		checkout.WithNotifier(func(_ checkout.NoticeKind, title, desc string) {
			if desc != "" {
				fmt.Fprintf(a.out, "%s %s\n", title, desc)
				return
			}
			fmt.Fprintln(a.out, title)
		}),
	)
	if err := flow.Guard(); err != nil {
		fmt.Fprintln(a.out, "Your cart is empty. Browse products with: storefront products")
		return err
	}

	res, err := flow.Submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%s\n", res.OperatorMessage)

	// Let the delayed clear finish before the process exits.
	select {
	case <-res.Cleared:
	case <-ctx.Done():
		return ctx.Err()
	}

	if !*track {
		fmt.Fprintf(a.out, "Track it with: storefront track %s\n", res.Order.OrderID)
		return nil
	}
	return a.follow(ctx, res.Order.OrderID)
}

func (a *app) track(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return a.follow(ctx, args[0])
}

func (a *app) follow(ctx context.Context, orderID string) error {
	p := poller.New(a.api, orderID,
		poller.WithLogger(a.log),
		poller.WithObserver(func(v poller.View) { a.printView(v) }),
	)
	defer p.Stop()

	if err := p.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("order %s could not be loaded: %w", orderID, err)
	}

	select {
	case <-p.Done():
	case <-ctx.Done():
	}
	return nil
}

func (a *app) printView(v poller.View) {
	switch v.State {
	case poller.StateLoading:
		fmt.Fprintln(a.out, "Loading order...")
	case poller.StateLoaded:
		a.printOrder(v.Order)
		fmt.Fprintf(a.out, "Subtotal ₹%d + Shipping ₹%d + GST ₹%d = ₹%d\n",
			v.Quote.Subtotal, v.Quote.Shipping, v.Quote.Tax, v.Order.TotalAmount)
	case poller.StatePolling:
		fmt.Fprintln(a.out, "Sending confirmation email...")
	case poller.StateStable:
		fmt.Fprintf(a.out, "Confirmation email sent to %s\n", v.Order.CustomerEmail)
		fmt.Fprintln(a.out, "Our team will contact you on WhatsApp with payment options within an hour.")
	case poller.StateError:
		fmt.Fprintln(a.out, "Order not found")
	}
}

func (a *app) printOrder(o *domain.Order) {
	fmt.Fprintf(a.out, "Order %s (%s)\n", o.OrderID, o.Status)
	for _, it := range o.Products {
		fmt.Fprintf(a.out, "  %s x%d  ₹%d\n", it.Name, it.Quantity, it.LineTotal())
	}
}
