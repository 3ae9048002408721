package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/agromarket/payments/internal/auth"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/agromarket/payments/pkg/logger"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Demo users with payment methods pointing at the registry's demo accounts,
// so seeded methods resolve to providers with known balances.
type seedMethod struct {
	UserID   int64
	Email    string
	Kind     paymentmethod.Kind
	Details  interface{}
	Verified bool
	Default  bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with demo payment methods for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			if err := db.Exec("DELETE FROM payment_methods").Error; err != nil {
				log.Fatalf("failed to clear payment methods: %v", err)
			}
			fmt.Println("Cleared existing payment methods")
		}

		seeds := []seedMethod{
			{
				UserID: 1, Email: "abebe@agromarket.et", Kind: paymentmethod.KindBank,
				Details:  paymentmethod.BankDetails{AccountNumber: "1000123456789", BankCode: "cbe"},
				Verified: true, Default: true,
			},
			{
				UserID: 1, Email: "abebe@agromarket.et", Kind: paymentmethod.KindMobile,
				Details:  paymentmethod.MobileDetails{PhoneNumber: "+251911123456", ProviderCode: "telebirr"},
				Verified: true,
			},
			{
				UserID: 2, Email: "tigist@agromarket.et", Kind: paymentmethod.KindBank,
				Details:  paymentmethod.BankDetails{AccountNumber: "1000987654321", BankCode: "cbe"},
				Verified: true, Default: true,
			},
			{
				UserID: 2, Email: "tigist@agromarket.et", Kind: paymentmethod.KindMobile,
				Details:  paymentmethod.MobileDetails{PhoneNumber: "+251911987654", ProviderCode: "telebirr"},
				Verified: true,
			},
			{
				UserID: 3, Email: "yonas@agromarket.et", Kind: paymentmethod.KindBank,
				Details:  paymentmethod.BankDetails{AccountNumber: "5010123456789", BankCode: "dashen"},
				Verified: true, Default: true,
			},
			{
				UserID: 3, Email: "yonas@agromarket.et", Kind: paymentmethod.KindCash,
				Details:  paymentmethod.CashDetails{},
				Verified: true,
			},
			{
				UserID: 4, Email: "hana@agromarket.et", Kind: paymentmethod.KindMobile,
				Details:  paymentmethod.MobileDetails{PhoneNumber: "+251933123456", ProviderCode: "hellocash"},
				Verified: false,
			},
		}

		verifier := auth.NewJWTVerifier(cfg.Security.JWTSecret)
		tokens := make(map[int64]string)

		for _, seed := range seeds {
			raw, err := json.Marshal(seed.Details)
			if err != nil {
				log.Fatalf("failed to marshal method details: %v", err)
			}

			var exists int64
			db.Model(&paymentmethod.PaymentMethod{}).
				Where("user_id = ? AND kind = ?", seed.UserID, seed.Kind).
				Count(&exists)
			if exists > 0 {
				continue
			}

			method := &paymentmethod.PaymentMethod{
				UserID:     seed.UserID,
				Kind:       seed.Kind,
				Details:    raw,
				IsVerified: seed.Verified,
				IsDefault:  seed.Default,
				IsActive:   true,
			}
			if err := db.Create(method).Error; err != nil {
				log.Fatalf("failed to insert payment method for user %d: %v", seed.UserID, err)
			}
			fmt.Printf("Seeded %s method %d for user %d\n", seed.Kind, method.ID, seed.UserID)

			if _, ok := tokens[seed.UserID]; !ok {
				token, err := verifier.GenerateAccessToken(seed.UserID, seed.Email)
				if err != nil {
					log.Fatalf("failed to mint demo token for user %d: %v", seed.UserID, err)
				}
				tokens[seed.UserID] = token
			}
		}

		if len(tokens) > 0 {
			fmt.Println("\nDemo access tokens:")
			for userID, token := range tokens {
				fmt.Printf("  user %d: %s\n", userID, token)
			}
		}

		fmt.Println("Payment methods seeded successfully")
	},
}
