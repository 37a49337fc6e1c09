package dashboard

import (
	"context"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
)

// Admin operations. The backend enforces roles; these only report what it
// answered. Each successful mutation refreshes the view.

func (d *Dashboard) CreateItem(ctx context.Context, item models.Item) models.Notice {
	if err := item.Validate(); err != nil {
		return models.Failure(err.Error())
	}
	created, err := d.api.CreateItem(ctx, item)
	if err != nil {
		return d.fail(ctx, "create item", err, "Error creating item")
	}
	d.mu.Lock()
	d.state.Items = append(d.state.Items, *created)
	d.mu.Unlock()
	d.refresh(ctx)
	return models.Success("Item created successfully!")
}

func (d *Dashboard) UpdateItem(ctx context.Context, brand string, item models.Item) models.Notice {
	if err := item.Validate(); err != nil {
		return models.Failure(err.Error())
	}
	upd, err := d.api.UpdateItem(ctx, brand, item)
	if err != nil {
		return d.fail(ctx, "update item", err, "Error updating item")
	}
	if upd.AfterUpdate != nil {
		d.mu.Lock()
		for i := range d.state.Items {
			if d.state.Items[i].Brand == brand {
				d.state.Items[i] = *upd.AfterUpdate
			}
		}
		d.mu.Unlock()
	}
	d.refresh(ctx)
	return models.Success("Item updated successfully!")
}

func (d *Dashboard) DeleteItem(ctx context.Context, brand string) models.Notice {
	if _, err := d.api.DeleteItem(ctx, brand); err != nil {
		return d.fail(ctx, "delete item", err, "Error deleting item")
	}
	d.mu.Lock()
	kept := d.state.Items[:0:0]
	for _, it := range d.state.Items {
		if it.Brand != brand {
			kept = append(kept, it)
		}
	}
	d.state.Items = kept
	d.mu.Unlock()
	d.refresh(ctx)
	return models.Success("Item deleted successfully!")
}

// BuyItem decrements stock by one outside the cart.
func (d *Dashboard) BuyItem(ctx context.Context, brand string) models.Notice {
	msg, err := d.api.BuyItem(ctx, brand)
	if err != nil {
		return d.fail(ctx, "buy item", err, "Error buying item")
	}
	d.refresh(ctx)
	return models.Success(msg.Msg)
}

func (d *Dashboard) ClearNotifications(ctx context.Context) models.Notice {
	msg, err := d.api.ClearNotifications(ctx)
	if err != nil {
		return d.fail(ctx, "clear notifications", err, "Error clearing notifications")
	}
	d.mu.Lock()
	d.state.Notifications = []models.Notification{}
	d.mu.Unlock()
	d.refresh(ctx)
	return models.Success(msg.Msg)
}

// ClearAllItems deletes every item one by one. A failed deletion is logged
// and skipped; users are untouched.
func (d *Dashboard) ClearAllItems(ctx context.Context) models.Notice {
	items, err := d.api.ListItems(ctx)
	if err != nil {
		d.log.Warn(ctx, "clear items: list failed", "error", err)
		d.unauthorized(ctx, err)
		return models.Failure("Error clearing items. Please check the log for details.")
	}

	failed := 0
	for _, it := range items {
		if _, err := d.api.DeleteItem(ctx, it.Brand); err != nil {
			failed++
			d.log.Error(ctx, "clear items: delete failed", "brand", it.Brand, "error", err)
			d.unauthorized(ctx, err)
		}
	}

	d.mu.Lock()
	d.state.Items = []models.Item{}
	d.state.SearchResults = []models.Item{}
	d.mu.Unlock()
	d.refresh(ctx)

	if failed > 0 {
		d.log.Warn(ctx, "clear items finished with failures", "failed", failed, "total", len(items))
	}
	return models.Success("All items have been cleared successfully! Users remain intact.")
}

// refresh reloads the view after a mutation; FetchData logs its own failure.
func (d *Dashboard) refresh(ctx context.Context) {
	_ = d.FetchData(ctx)
}
