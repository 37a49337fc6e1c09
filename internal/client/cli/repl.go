package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	// takeRedirect reports, once, that the session sent the user to login.
	takeRedirect() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Forget(ctx context.Context) error

	Items(ctx context.Context) error
	Stats(ctx context.Context) error
	Notifications(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Buy(ctx context.Context, brand string) error
	Refresh(ctx context.Context) error

	Add(ctx context.Context, brand string, quantity int) error
	Update(ctx context.Context, brand string, quantity int) error
	Step(ctx context.Context, brand string, delta int) error
	Cart(ctx context.Context) error
	Clear(ctx context.Context) error
	Checkout(ctx context.Context) error
	Quote(ctx context.Context, taxRate, discount decimal.Decimal) error
	Charge(ctx context.Context, method models.PaymentMethod, taxRate, discount decimal.Decimal) error

	Create(ctx context.Context) error
	Edit(ctx context.Context, brand string) error
	Delete(ctx context.Context, brand string) error
	ClearNotifications(ctx context.Context) error
	ClearItems(ctx context.Context) error
}

const (
	helpGuest = "Available commands: register, login, forget, help, exit"
	helpUser  = "Available commands: items, stats, search <q>, buy <brand>, refresh, " +
		"cart, add <brand> [qty], update <brand> <qty>, inc <brand>, dec <brand>, clear, checkout, logout, forget, exit"
	helpAdmin = "Admin commands: notifications, create, edit <brand>, delete <brand>, clearnotifications, clearitems, " +
		"quote <tax%> <discount>, charge <cash|card|upi> <tax%> <discount>"
)

const (
	sessionEndedText = "Your session has ended. Please log in."
	// sessionEndedNotice is shown when the session ends while the prompt
	// waits for input.
	sessionEndedNotice = "\n" + sessionEndedText + " Press Enter to continue."
)

// commands that make sense without a session; a pending redirect does not
// interrupt them.
var sessionless = map[string]bool{
	"help": true, "register": true, "login": true, "forget": true, "exit": true, "quit": true,
}

// runREPL starts a simple read–eval–print loop for the store CLI.
//
// It reads a line from next, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands and malformed arguments are
// reported back to the user. The loop exits when next reports no more input
// or when the user types "exit" or "quit".
//
// When the session redirected to login since the last command, the user is
// asked to log in before the command runs.
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, next func() (string, bool)) {
	for {
		printlnFn(fmt.Sprintf("gs %s> ", statusFn()))
		line, ok := next()
		if !ok {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if a.takeRedirect() {
				_ = a.Login(ctx)
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !sessionless[cmd] && a.takeRedirect() {
			printlnFn(sessionEndedText)
			_ = a.Login(ctx)
		}

		switch cmd {
		case "help":
			switch {
			case !a.isLoggedIn():
				printlnFn(helpGuest)
			case a.isAdmin():
				printlnFn(helpUser)
				printlnFn(helpAdmin)
			default:
				printlnFn(helpUser)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			a.takeRedirect()
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "forget":
			_ = a.Forget(ctx)

		case "items", "l", "list":
			_ = a.Items(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "notifications":
			_ = a.Notifications(ctx)

		case "search":
			_ = a.Search(ctx, strings.Join(args, " "))

		case "buy":
			if brand, ok := oneArg(cmd, args, "<brand>"); ok {
				_ = a.Buy(ctx, brand)
			}

		case "refresh":
			_ = a.Refresh(ctx)

		case "cart":
			_ = a.Cart(ctx)

		case "add":
			if len(args) < 1 || len(args) > 2 {
				usage(cmd, "<brand> [qty]")
				continue
			}
			qty := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					printlnFn("Quantity must be a positive number")
					continue
				}
				qty = n
			}
			_ = a.Add(ctx, args[0], qty)

		case "update":
			if len(args) != 2 {
				usage(cmd, "<brand> <qty>")
				continue
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				printlnFn("Quantity must be a number")
				continue
			}
			_ = a.Update(ctx, args[0], n)

		case "inc", "dec":
			if brand, ok := oneArg(cmd, args, "<brand>"); ok {
				delta := 1
				if cmd == "dec" {
					delta = -1
				}
				_ = a.Step(ctx, brand, delta)
			}

		case "clear":
			_ = a.Clear(ctx)

		case "checkout":
			_ = a.Checkout(ctx)

		case "quote":
			if len(args) != 2 {
				usage(cmd, "<tax%> <discount>")
				continue
			}
			if tax, discount, ok := amounts(args[0], args[1]); ok {
				_ = a.Quote(ctx, tax, discount)
			}

		case "charge":
			if len(args) != 3 {
				usage(cmd, "<cash|card|upi> <tax%> <discount>")
				continue
			}
			method, err := models.ParsePaymentMethod(args[0])
			if err != nil {
				printlnFn("Payment method must be one of: cash, card, upi")
				continue
			}
			if tax, discount, ok := amounts(args[1], args[2]); ok {
				_ = a.Charge(ctx, method, tax, discount)
			}

		case "create":
			_ = a.Create(ctx)

		case "edit":
			if brand, ok := oneArg(cmd, args, "<brand>"); ok {
				_ = a.Edit(ctx, brand)
			}

		case "delete":
			if brand, ok := oneArg(cmd, args, "<brand>"); ok {
				_ = a.Delete(ctx, brand)
			}

		case "clearnotifications":
			_ = a.ClearNotifications(ctx)

		case "clearitems":
			_ = a.ClearItems(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func usage(cmd, args string) {
	printlnFn(fmt.Sprintf("Usage: %s %s", cmd, args))
}

func oneArg(cmd string, args []string, name string) (string, bool) {
	if len(args) != 1 {
		usage(cmd, name)
		return "", false
	}
	return args[0], true
}

// amounts parses a tax rate and a discount; neither may be negative.
func amounts(taxArg, discountArg string) (decimal.Decimal, decimal.Decimal, bool) {
	tax, err := decimal.NewFromString(taxArg)
	if err != nil || tax.IsNegative() {
		printlnFn("Tax rate must be a non-negative number")
		return decimal.Zero, decimal.Zero, false
	}
	discount, err := decimal.NewFromString(discountArg)
	if err != nil || discount.IsNegative() {
		printlnFn("Discount must be a non-negative number")
		return decimal.Zero, decimal.Zero, false
	}
	return tax, discount, true
}
