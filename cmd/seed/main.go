package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xtrntr/p2pexchange/internal/account"
	"github.com/xtrntr/p2pexchange/internal/auth"
	"github.com/xtrntr/p2pexchange/internal/avatars"
	"github.com/xtrntr/p2pexchange/internal/config"
	"github.com/xtrntr/p2pexchange/internal/db"
	"github.com/xtrntr/p2pexchange/internal/entropy"
	"github.com/xtrntr/p2pexchange/internal/exchange"
	"github.com/xtrntr/p2pexchange/internal/identity"
	"github.com/xtrntr/p2pexchange/internal/logging"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
	"github.com/xtrntr/p2pexchange/internal/orders"
)

const base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// shorter random base62 tokens rarely clear 128 bits
const minTokenLength = 30

var paymentMethods = []string{"Revolut", "SEPA", "Cash F2F", "Wise", "Strike"}

// global flags
var (
	databaseURL string
	users       int
	tokenLength int
	makeOrders  bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with generated identities and public orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context())
	},
}

func init() {
	godotenv.Load()
	cfg := config.Load()

	rootCmd.Flags().StringVar(&databaseURL, "database-url", cfg.Database.URL, "Postgres connection string")
	rootCmd.Flags().IntVar(&users, "users", 4, "Number of identities to generate")
	rootCmd.Flags().IntVar(&tokenLength, "token-length", 36, "Length of each generated token")
	rootCmd.Flags().BoolVar(&makeOrders, "orders", true, "Make one public order per identity")
}

// Seed the database with test data
func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func seed(ctx context.Context) error {
	if tokenLength < minTokenLength {
		return fmt.Errorf("token-length must be at least %d", minTokenLength)
	}
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	m := metrics.NopMetrics()

	// Connect to database
	database, err := db.NewDB(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close(ctx)

	if err := database.Migrate(ctx); err != nil {
		return err
	}

	deriver, err := identity.NewDeriver(identity.Options{
		MaxNicknameLength: cfg.Identity.MaxNicknameLength,
		MaxNumber:         cfg.Identity.MaxNumber,
		AvatarSize:        cfg.Identity.AvatarSize,
	})
	if err != nil {
		return err
	}
	avatarStore, err := avatars.NewFileStore(cfg.Identity.AvatarDir)
	if err != nil {
		return err
	}

	sessions := auth.NewSessionService(cfg.Session.Secret, cfg.Session.TTL, auth.NewMemoryRevocations())
	provisioner := account.NewProvisioner(database, sessions, account.Options{
		WelcomeGrace: cfg.Session.WelcomeGrace,
		DeleteMaxAge: cfg.Session.DeleteMaxAge,
	}, logger, m)
	generator := account.NewGenerator(deriver, avatarStore, provisioner, logger, m)
	ledger := orders.NewLedger(database, exchange.NewBook(), cfg.Orders.Lifetime, logger, m)

	for i := 0; i < users; i++ {
		token, err := randomToken(tokenLength)
		if err != nil {
			return err
		}

		gen, err := generator.Generate(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to generate identity %d: %w", i+1, err)
		}
		if gen.Status == account.StatusCollision {
			fmt.Printf("Skipping token for taken nickname %s\n", gen.Nickname)
			continue
		}
		fmt.Printf("%-20s token=%s\n", gen.Nickname, token)

		if !makeOrders {
			continue
		}
		requester := &models.Requester{AccountID: gen.Account.ID, Username: gen.Account.Username}
		order, err := ledger.Create(ctx, requester, sampleOrder(i))
		if err != nil {
			return fmt.Errorf("failed to create order for %s: %w", gen.Nickname, err)
		}
		fmt.Printf("%-20s order=%d type=%s premium=%s\n", "", order.ID, order.Type, order.Premium)
	}

	fmt.Println("Successfully seeded the database!")
	return nil
}

// randomToken returns a base62 token of length n that passes the entropy gate
func randomToken(n int) (string, error) {
	for {
		token, err := drawToken(n)
		if err != nil {
			return "", err
		}
		if entropy.Validate(token).Accepted {
			return token, nil
		}
	}
}

func drawToken(n int) (string, error) {
	token := make([]byte, n)
	limit := big.NewInt(int64(len(base62)))
	for i := range token {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		token[i] = base62[idx.Int64()]
	}
	return string(token), nil
}

func sampleOrder(i int) orders.Fields {
	orderType := models.OrderTypeBuy
	if i%2 == 1 {
		orderType = models.OrderTypeSell
	}
	return orders.Fields{
		Type:          orderType,
		Currency:      1 + i%3,
		Amount:        decimal.NewFromInt(int64(50 * (i + 1))),
		PaymentMethod: paymentMethods[i%len(paymentMethods)],
		Premium:       decimal.NewFromInt(int64(i%7) - 3),
	}
}
