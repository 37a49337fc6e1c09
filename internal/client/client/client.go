package client

import (
	"context"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
)

// Client is the transport-agnostic contract of the store backend.
type Client interface {
	Close() error

	Login(ctx context.Context, username string, password []byte) (*models.Token, error)
	Register(ctx context.Context, reg models.Registration) (*models.Message, error)
	// Me resolves the identity of the stored token.
	Me(ctx context.Context) (*models.Identity, error)
	// VerifyToken resolves the identity of an explicit token, ignoring the store.
	VerifyToken(ctx context.Context, token string) (*models.Identity, error)

	ListItems(ctx context.Context) ([]models.Item, error)
	CountItems(ctx context.Context) (*models.ItemStats, error)
	SearchItems(ctx context.Context, query string) ([]models.Item, error)
	GetItem(ctx context.Context, brand string) (*models.Item, error)
	CreateItem(ctx context.Context, item models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, brand string, item models.Item) (*models.ItemUpdate, error)
	DeleteItem(ctx context.Context, brand string) (*models.ItemDeletion, error)
	BuyItem(ctx context.Context, brand string) (*models.Message, error)

	GetCart(ctx context.Context) (*models.Cart, error)
	AddToCart(ctx context.Context, brand string, quantity int) error
	UpdateCart(ctx context.Context, brand string, quantity int) error
	ClearCart(ctx context.Context) error
	Checkout(ctx context.Context) (*models.CheckoutResult, error)

	Notifications(ctx context.Context) ([]models.Notification, error)
	ClearNotifications(ctx context.Context) (*models.Message, error)

	Quote(ctx context.Context, req models.PaymentRequest) (*models.Quote, error)
	Charge(ctx context.Context, req models.PaymentRequest) (*models.Charge, error)
}

// TokenSource yields the bearer token attached to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
