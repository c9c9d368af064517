package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/cart"
	"github.com/swaadanna/storefront/internal/client"
	"github.com/swaadanna/storefront/internal/config"
	"github.com/swaadanna/storefront/internal/logger"
	"github.com/swaadanna/storefront/internal/storage"
)

const usage = `usage: storefront <command> [flags] [args]

Customer:
  products [--category C] [--sort S]   list the catalog
  add <product_id>                     add one unit to the cart
  remove <product_id>                  drop a line from the cart
  qty <product_id> <n>                 set a line quantity (n < 1 removes)
  cart                                 show the cart and totals
  clear                                empty the cart
  checkout --name --email --phone --address --city --pincode
  track <order_id>                     follow confirmation email status

Admin:
  admin login <username> --password P
  admin logout
  admin list [--status S] [--date YYYY-MM-DD] [--query Q]
  admin set <order_id> <status>
  admin bulk <status> <order_id>...
  admin show <order_id>
  admin history <order_id>
`

var errUsage = errors.New("invalid usage")

type app struct {
	cfg   *config.ClientConfig
	log   zerolog.Logger
	api   *client.Client
	store storage.Storage
	out   io.Writer
}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, true)
	a := &app{
		cfg:   cfg,
		log:   log,
		api:   client.New(cfg.APIURL),
		store: openStorage(ctx, cfg, log),
		out:   os.Stdout,
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openStorage prefers Redis so the cart and admin session survive between
// invocations; without Redis they last for one command only.
func openStorage(ctx context.Context, cfg *config.ClientConfig, log zerolog.Logger) storage.Storage {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory storage")
		_ = rdb.Close()
		return storage.NewMemoryStorage()
	}
	return storage.NewRedisStorage(rdb, cfg.SessionID)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return a.products(ctx, rest)
	case "add", "remove", "qty", "cart", "clear":
		return a.cartCommand(ctx, cmd, rest)
	case "checkout":
		return a.checkout(ctx, rest)
	case "track":
		return a.track(ctx, rest)
	case "admin":
		return a.admin(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) cart(ctx context.Context) *cart.Store {
	return cart.NewStore(ctx, a.store,
		cart.WithLogger(a.log),
		cart.WithNotifier(cart.NotifierFunc(func(_ cart.NoticeKind, msg string) {
			fmt.Fprintln(a.out, msg)
		})),
	)
}
