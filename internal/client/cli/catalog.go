package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
)

func (a *App) notify(n models.Notice) {
	if n.IsZero() {
		return
	}
	a.println(n.Text)
}

func (a *App) Items(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		st := a.dash.State()
		renderItems(a.out, st.Items)
		if !st.LastRefresh.IsZero() {
			a.println(fmt.Sprintf("Last refresh %s, next in %s",
				st.LastRefresh.Format(time.TimeOnly), a.dash.Remaining()))
		}
		return nil
	})
}

func (a *App) Stats(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		renderStats(a.out, a.dash.State().Stats)
		return nil
	})
}

func (a *App) Notifications(ctx context.Context) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		renderNotifications(a.out, a.dash.State().Notifications)
		return nil
	})
}

func (a *App) Search(ctx context.Context, query string) error {
	return a.protect(ctx, func(ctx context.Context) error {
		if strings.TrimSpace(query) == "" {
			a.dash.ClearSearch()
			a.println("Usage: search <query>")
			return nil
		}
		renderItems(a.out, a.dash.Search(ctx, query))
		return nil
	})
}

func (a *App) Buy(ctx context.Context, brand string) error {
	return a.protect(ctx, func(ctx context.Context) error {
		a.notify(a.dash.BuyItem(ctx, brand))
		return nil
	})
}

// Refresh reloads the catalog and the cart now and restarts the countdown.
func (a *App) Refresh(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		if err := a.dash.FetchData(ctx); err != nil {
			a.println(client.Detail(err, "Error fetching data"))
			return err
		}
		_ = a.cart.FetchCart(ctx)
		a.dash.FetchRole(ctx)
		a.println("Refreshed")
		return nil
	})
}

func (a *App) Create(ctx context.Context) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		item, err := a.promptItem(models.Item{}, true)
		if err != nil {
			return err
		}
		a.notify(a.dash.CreateItem(ctx, item))
		return nil
	})
}

// Edit loads the item fresh from the backend and lets the user change every
// field but the brand. An empty answer keeps the current value.
func (a *App) Edit(ctx context.Context, brand string) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		current, err := a.api.GetItem(ctx, brand)
		if errors.Is(err, client.ErrNotFound) {
			a.println("No item with brand " + brand)
			return err
		}
		if err != nil {
			a.println(client.Detail(err, "Error loading item"))
			return err
		}
		item, err := a.promptItem(*current, false)
		if err != nil {
			return err
		}
		a.notify(a.dash.UpdateItem(ctx, current.Brand, item))
		return nil
	})
}

func (a *App) Delete(ctx context.Context, brand string) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		if !getConfirmation(a.reader, fmt.Sprintf("Delete %s?", brand), a.out) {
			a.println("Cancelled")
			return nil
		}
		a.notify(a.dash.DeleteItem(ctx, brand))
		return nil
	})
}

func (a *App) ClearNotifications(ctx context.Context) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		a.notify(a.dash.ClearNotifications(ctx))
		return nil
	})
}

func (a *App) ClearItems(ctx context.Context) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		if !getConfirmation(a.reader, "Are you sure you want to delete ALL items? This cannot be undone.", a.out) {
			a.println("Cancelled")
			return nil
		}
		a.notify(a.dash.ClearAllItems(ctx))
		return nil
	})
}

// promptItem asks for the item fields. With withBrand false the brand of
// base is kept and empty answers keep base's values.
func (a *App) promptItem(base models.Item, withBrand bool) (models.Item, error) {
	item := base

	ask := func(label, current string) (string, error) {
		prompt := label
		if current != "" {
			prompt = fmt.Sprintf("%s [%s]", label, current)
		}
		v, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return "", err
		}
		if v == "" {
			return current, nil
		}
		return v, nil
	}

	var err error
	if withBrand {
		if item.Brand, err = ask("Brand", ""); err != nil {
			return item, err
		}
	}
	if item.Name, err = ask("Name", base.Name); err != nil {
		return item, err
	}

	priceText := ""
	if !withBrand {
		priceText = base.Price.String()
	}
	price, err := ask("Price", priceText)
	if err != nil {
		return item, err
	}
	if item.Price, err = decimal.NewFromString(price); err != nil {
		a.println("Price must be a number")
		return item, fmt.Errorf("%w: price %q", models.ErrInvalid, price)
	}

	qtyText := ""
	if !withBrand {
		qtyText = strconv.Itoa(base.Quantity)
	}
	qty, err := ask("Quantity", qtyText)
	if err != nil {
		return item, err
	}
	if item.Quantity, err = strconv.Atoi(qty); err != nil {
		a.println("Quantity must be a whole number")
		return item, fmt.Errorf("%w: quantity %q", models.ErrInvalid, qty)
	}

	if item.Description, err = ask("Description", base.Description); err != nil {
		return item, err
	}
	item.InStock = item.Quantity > 0
	return item, nil
}
