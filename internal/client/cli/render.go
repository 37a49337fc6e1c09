package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/cart"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
)

const shippingAddress = "123 Main St, Anytown, USA 12345"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func stockLabel(inStock bool) string {
	if inStock {
		return "in stock"
	}
	return "out of stock"
}

func renderItems(w io.Writer, items []models.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "BRAND\tNAME\tPRICE\tQTY\tSTOCK\tDESCRIPTION")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t$%s\t%d\t%s\t%s\n",
			it.Brand, it.Name, cart.Money(it.Price), it.Quantity, stockLabel(it.InStock), it.Description)
	}
	_ = tw.Flush()
}

func renderStats(w io.Writer, st models.ItemStats) {
	fmt.Fprintf(w, "Total items: %d\nIn stock: %d\nOut of stock: %d\n", st.TotalItems, st.InStock, st.OutOfStock)
}

func renderNotifications(w io.Writer, notes []models.Notification) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	tw := newTable(w)
	for _, n := range notes {
		at := ""
		if !n.NotifiedAt.IsZero() {
			at = n.NotifiedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Brand, n.Msg, at)
	}
	_ = tw.Flush()
}

// renderCart draws the cart panel: the lines with their promotional price,
// the client-side totals and a few catalog suggestions.
func renderCart(w io.Writer, c models.Cart, catalog []models.Item) {
	fmt.Fprintln(w, "Your Cart")
	fmt.Fprintln(w, "Shipping Address: "+shippingAddress)
	fmt.Fprintln(w)

	if c.IsEmpty() {
		fmt.Fprintln(w, "Your cart is empty.")
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "BRAND\tNAME\tPRICE\tNOW\tQTY")
		for _, ci := range c.Items {
			fmt.Fprintf(tw, "%s\t%s\t$%s\t$%s\t%d\n",
				ci.Brand, ci.Name, cart.Money(ci.Price), cart.Money(cart.DiscountedPrice(ci.Price)), ci.Quantity)
		}
		_ = tw.Flush()

		sum := cart.Summarize(c.Items)
		fmt.Fprintln(w)
		tw = newTable(w)
		fmt.Fprintf(tw, "Subtotal:\t$%s\n", cart.Money(sum.Subtotal))
		fmt.Fprintf(tw, "Shipping:\t$%s\n", cart.Money(sum.Shipping))
		fmt.Fprintf(tw, "Total:\t$%s\n", cart.Money(sum.Total))
		fmt.Fprintf(tw, "Discounted Total:\t$%s\n", cart.Money(sum.DiscountedTotal))
		_ = tw.Flush()
		fmt.Fprintf(w, "You saved $%s!\n", cart.Money(sum.Savings))
	}

	suggest(w, "Pairs well with", catalog, 0, 2)
	suggest(w, "Similar Items", catalog, 2, 3)
}

func suggest(w io.Writer, title string, catalog []models.Item, from, to int) {
	if len(catalog) <= from {
		return
	}
	to = min(to, len(catalog))
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	for _, it := range catalog[from:to] {
		fmt.Fprintf(w, "  %s  $%s\n", it.Brand, cart.Money(it.Price))
	}
}

func renderQuote(w io.Writer, q *models.Quote) {
	if q == nil {
		return
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Subtotal:\t$%s\n", cart.Money(q.Subtotal))
	fmt.Fprintf(tw, "Tax:\t$%s\n", cart.Money(q.Tax))
	fmt.Fprintf(tw, "Discount:\t$%s\n", cart.Money(q.Discount))
	fmt.Fprintf(tw, "Total:\t$%s\n", cart.Money(q.Total))
	_ = tw.Flush()
}
