// Package seed loads deterministic demo accounts and monthly transactions.
package seed

import (
	"context"
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	authPostgres "github.com/frahmantamala/finance-dashboard/internal/auth/postgres"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
)

// skipThreshold leaves accounts alone that already hold real data.
const skipThreshold = 50

var Start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type Account struct {
	Username string
	Password string
	IsAdmin  bool
	Income   int64
	Expenses []Entry
}

type Entry struct {
	Description string
	Amount      int64
	Category    string
}

var incomeSources = []Entry{
	{"Gehalt", 0, "Einnahmen"},
	{"Nebenjob", 0, "Einnahmen"},
	{"Zinsen", 0, "Kapitalerträge"},
	{"Steuerrückzahlung", 0, "Sonstiges"},
	{"Verkauf", 0, "Sonstiges"},
	{"Mieteinnahmen", 0, "Einnahmen"},
	{"Dividende", 0, "Kapitalerträge"},
	{"Elterngeld", 0, "Sozialleistungen"},
	{"Kindergeld", 0, "Sozialleistungen"},
	{"Bonus", 0, "Einnahmen"},
	{"Geschenk", 0, "Sonstiges"},
	{"Rückerstattung", 0, "Sonstiges"},
}

var Accounts = []Account{
	{
		Username: "demo", Password: "demo123", IsAdmin: true, Income: 3500,
		Expenses: []Entry{
			{"Supermarkt", -50, "Lebensmittel"},
			{"Miete", -700, "Wohnen"},
			{"Internet", -30, "Kommunikation"},
			{"Tanken", -80, "Mobilität"},
			{"Strom", -60, "Versorgung"},
			{"Kino", -20, "Freizeit"},
			{"Arzt", -30, "Gesundheit"},
			{"Bücher", -15, "Bildung"},
			{"Restaurant", -40, "Freizeit"},
			{"Urlaub", -150, "Reisen"},
			{"Kleidung", -45, "Shopping"},
			{"Versicherung", -90, "Versicherung"},
		},
	},
	{
		Username: "alice", Password: "alice123", Income: 4200,
		Expenses: []Entry{
			{"Supermarkt", -120, "Lebensmittel"},
			{"Miete", -800, "Wohnen"},
			{"Fitnessstudio", -40, "Freizeit"},
			{"Bahn", -60, "Mobilität"},
			{"Strom", -70, "Versorgung"},
			{"Arzt", -50, "Gesundheit"},
			{"Bücher", -25, "Bildung"},
			{"Konzert", -35, "Freizeit"},
			{"Urlaub", -200, "Reisen"},
			{"Kleidung", -60, "Shopping"},
			{"Versicherung", -100, "Versicherung"},
			{"Drogerie", -30, "Haushalt"},
		},
	},
	{
		Username: "bob", Password: "bob123", Income: 3900,
		Expenses: []Entry{
			{"Restaurant", -55, "Freizeit"},
			{"Miete", -650, "Wohnen"},
			{"Handyvertrag", -25, "Kommunikation"},
			{"Benzin", -90, "Mobilität"},
			{"Strom", -55, "Versorgung"},
			{"Kino", -25, "Freizeit"},
			{"Arzt", -20, "Gesundheit"},
			{"Bücher", -10, "Bildung"},
			{"Urlaub", -120, "Reisen"},
			{"Kleidung", -40, "Shopping"},
			{"Versicherung", -80, "Versicherung"},
			{"Haushalt", -35, "Haushalt"},
		},
	},
	{
		Username: "carla", Password: "carla123", Income: 4800,
		Expenses: []Entry{
			{"Supermarkt", -200, "Lebensmittel"},
			{"Miete", -950, "Wohnen"},
			{"Kino", -30, "Freizeit"},
			{"Fahrrad", -150, "Mobilität"},
			{"Strom", -80, "Versorgung"},
			{"Arzt", -60, "Gesundheit"},
			{"Bücher", -35, "Bildung"},
			{"Konzert", -45, "Freizeit"},
			{"Urlaub", -250, "Reisen"},
			{"Kleidung", -90, "Shopping"},
			{"Versicherung", -120, "Versicherung"},
			{"Haushalt", -50, "Haushalt"},
		},
	},
}

type Options struct {
	// Clear removes the demo accounts' transactions before seeding.
	Clear      bool
	BcryptCost int
	Today      time.Time
}

type Report struct {
	UsersCreated        int
	TransactionsCreated int
	AccountsSkipped     []string
}

type Seeder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{db: db, logger: logger}
}

// Run is idempotent. Existing users are kept, accounts holding more than
// skipThreshold transactions are left alone, and otherwise only generated
// rows whose fingerprint the account does not hold yet are inserted. An
// account that receives no rows is reported in AccountsSkipped.
func (s *Seeder) Run(ctx context.Context, accounts []Account, opts Options) (Report, error) {
	var report Report
	today := opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}

	for _, account := range accounts {
		u, created, err := s.ensureUser(ctx, account, opts.BcryptCost)
		if err != nil {
			return report, err
		}
		if created {
			report.UsersCreated++
		}

		if opts.Clear {
			if err := s.db.WithContext(ctx).Where("user_id = ?", u.ID).Delete(&txDatamodel.Transaction{}).Error; err != nil {
				return report, fmt.Errorf("clear transactions of %s: %w", account.Username, err)
			}
		}

		var count int64
		if err := s.db.WithContext(ctx).Model(&txDatamodel.Transaction{}).Where("user_id = ?", u.ID).Count(&count).Error; err != nil {
			return report, fmt.Errorf("count transactions of %s: %w", account.Username, err)
		}
		if count > skipThreshold {
			report.AccountsSkipped = append(report.AccountsSkipped, account.Username)
			s.logger.Info("seed: account already has data", "username", account.Username, "transactions", count)
			continue
		}

		rows, err := s.missing(ctx, u.ID, Monthly(u.ID, account, Start, today))
		if err != nil {
			return report, fmt.Errorf("reconcile transactions of %s: %w", account.Username, err)
		}
		if len(rows) == 0 {
			report.AccountsSkipped = append(report.AccountsSkipped, account.Username)
			s.logger.Info("seed: account up to date", "username", account.Username, "transactions", count)
			continue
		}
		if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
			return report, fmt.Errorf("insert transactions of %s: %w", account.Username, err)
		}
		report.TransactionsCreated += len(rows)
		s.logger.Info("seed: account populated", "username", account.Username, "transactions", len(rows))
	}

	return report, nil
}

// missing drops generated rows the account already holds, matching by
// fingerprint with multiplicity.
func (s *Seeder) missing(ctx context.Context, userID int64, rows []*txDatamodel.Transaction) ([]*txDatamodel.Transaction, error) {
	var existing []string
	if err := s.db.WithContext(ctx).Model(&txDatamodel.Transaction{}).
		Where("user_id = ?", userID).
		Pluck("fingerprint", &existing).Error; err != nil {
		return nil, err
	}

	held := make(map[string]int, len(existing))
	for _, fp := range existing {
		held[fp]++
	}
	out := rows[:0]
	for _, row := range rows {
		if held[row.Fingerprint] > 0 {
			held[row.Fingerprint]--
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Seeder) ensureUser(ctx context.Context, account Account, cost int) (*userDatamodel.User, bool, error) {
	repo := authPostgres.NewRepository(s.db)
	existing, err := repo.GetByUsername(ctx, account.Username)
	if err == nil {
		return existing, false, nil
	}
	if !stderrors.Is(err, errors.ErrUserNotFound) {
		return nil, false, fmt.Errorf("look up %s: %w", account.Username, err)
	}

	hash, err := auth.HashPassword(account.Password, cost)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	u := &userDatamodel.User{
		Username:     account.Username,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      account.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", account.Username, err)
	}
	return u, true, nil
}

// Monthly builds one income on the first of every month from start through
// today plus the account's expenses in shuffled order every other day from
// the 3rd. Amounts vary per month but are stable across runs, and expenses
// stay negative. Dates after today are left out.
func Monthly(userID int64, account Account, start, today time.Time) []*txDatamodel.Transaction {
	var rows []*txDatamodel.Transaction
	add := func(day time.Time, e Entry) {
		if day.After(today) {
			return
		}
		t := &transaction.Transaction{
			UserID:      userID,
			Date:        day,
			Amount:      decimal.NewFromInt(e.Amount),
			Currency:    transaction.DefaultCurrency,
			Description: e.Description,
			Category:    e.Category,
			CreatedAt:   today,
			UpdatedAt:   today,
		}
		t.Refingerprint()
		rows = append(rows, transaction.ToDataModel(t))
	}

	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(today); month = month.AddDate(0, 1, 0) {
		key := fmt.Sprintf("%s-%d-%d", account.Username, month.Year(), month.Month())

		r := random(key + "-income")
		source := incomeSources[r.IntN(len(incomeSources))]
		source.Amount = account.Income + r.Int64N(201) - 100
		add(month, source)

		expenses := append([]Entry(nil), account.Expenses...)
		random(key + "-expenses").Shuffle(len(expenses), func(i, j int) {
			expenses[i], expenses[j] = expenses[j], expenses[i]
		})
		last := month.AddDate(0, 1, -1).Day()
		for i, e := range expenses {
			day := min(3+i*2, last)
			e.Amount += random(fmt.Sprintf("%s-%d", key, i)).Int64N(41) - 20
			if e.Amount >= 0 {
				e.Amount = -1
			}
			add(month.AddDate(0, 0, day-1), e)
		}
	}
	return rows
}

func random(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}
